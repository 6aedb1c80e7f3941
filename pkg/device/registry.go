// Package device tracks the Bluetooth devices discovered during the current scan session.
package device

import (
	"fmt"
	"sync"

	"github.com/ardelias/blueberry/pkg/connector/ble"
)

// Handle identifies a physical Bluetooth device. Handles are immutable values; a registry replaces
// a handle rather than modifying it.
type Handle struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// FromDevice converts a device reported by a provider into a Handle.
func FromDevice(d ble.Device) Handle {
	return Handle{Address: d.Address, Name: d.Name}
}

func (h Handle) String() string {
	if h.Name == "" {
		return h.Address
	}
	return fmt.Sprintf("%s (%s)", h.Name, h.Address)
}

// Registry maps addresses to Handles.
type Registry struct {
	lock    sync.Mutex
	devices map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Handle)}
}

// Upsert records h. It returns true if the registry changed, meaning the address was not known or
// it was known under a different name. Re-reporting a device never creates a second entry.
func (r *Registry) Upsert(h Handle) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if existing, ok := r.devices[h.Address]; ok {
		// Advertisements without a name don't erase a name we already know.
		if h.Name == "" || existing.Name == h.Name {
			return false
		}
	}
	r.devices[h.Address] = h
	return true
}

func (r *Registry) Get(address string) (Handle, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	h, ok := r.devices[address]
	return h, ok
}

func (r *Registry) Clear() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.devices = make(map[string]Handle)
}

func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.devices)
}

// List returns a snapshot of all known handles in no particular order.
func (r *Registry) List() []Handle {
	r.lock.Lock()
	defer r.lock.Unlock()

	handles := make([]Handle, 0, len(r.devices))
	for _, h := range r.devices {
		handles = append(handles, h)
	}
	return handles
}
