// Package session manages RFCOMM sessions with Bluetooth devices.
//
// A Manager holds at most one Session per device address. Connecting to an address that already
// has a Session replaces it, and the previous socket is closed.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/protocol"
)

// DefaultReadBufferSize caps the number of bytes returned by a single Send.
const DefaultReadBufferSize = 4096

type Config struct {
	// SendTimeout bounds the write and read of a Send. Zero means no timeout, in which case a
	// Send blocks until the device answers or the session is closed.
	SendTimeout time.Duration

	// ConnectTimeout bounds Connect in addition to the caller's context. Zero means no
	// additional bound.
	ConnectTimeout time.Duration

	// ReadBufferSize is the maximum response size returned by Send. Defaults to
	// DefaultReadBufferSize.
	ReadBufferSize int
}

// Resolver looks up devices that are not bonded with the host, such as scan results.
type Resolver interface {
	Lookup(address string) (device.Handle, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(address string) (device.Handle, bool)

func (f ResolverFunc) Lookup(address string) (device.Handle, bool) {
	return f(address)
}

// Manager owns the connection table and every Session's socket.
type Manager struct {
	provider ble.Provider
	resolver Resolver
	cfg      Config

	lock     sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. The resolver may be nil, in which case only bonded devices can be
// connected.
func NewManager(provider ble.Provider, resolver Resolver, cfg Config) *Manager {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	return &Manager{
		provider: provider,
		resolver: resolver,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// resolve checks bonded devices first, then the resolver.
func (m *Manager) resolve(address string) (device.Handle, bool) {
	bonded, err := m.provider.BondedDevices()
	if err != nil {
		log.Warning("Cannot list bonded devices: %s", err)
	}
	for _, d := range bonded {
		if d.Address == address {
			return device.FromDevice(d), true
		}
	}
	if m.resolver != nil {
		return m.resolver.Lookup(address)
	}
	return device.Handle{}, false
}

// Connect opens a Session with address.
//
// It returns protocol.ErrDeviceNotFound if the address is neither bonded nor known to the
// resolver. A failed connection attempt is an expected outcome and is reported as false with a
// nil error. A successful connection replaces any existing Session for the address.
func (m *Manager) Connect(ctx context.Context, address string) (bool, error) {
	handle, ok := m.resolve(address)
	if !ok {
		return false, fmt.Errorf("%w: %s", protocol.ErrDeviceNotFound, address)
	}

	if m.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()
	}

	log.Debug("Connecting to %s...", handle)
	socket, err := m.provider.Dial(ctx, handle.Address)
	if err != nil {
		log.Warning("Connection to %s failed: %s", address, err)
		return false, nil
	}

	s := newSession(address, socket)
	m.lock.Lock()
	previous := m.sessions[address]
	m.sessions[address] = s
	m.lock.Unlock()

	if previous != nil {
		log.Debug("Replacing existing session with %s", address)
		if err := previous.close(); err != nil {
			log.Debug("Error closing replaced session with %s: %s", address, err)
		}
	}
	log.Info("Connected to %s", handle)
	return true, nil
}

// Disconnect closes the Session for address. It returns false if there was no Session. Errors
// closing the socket are not reported.
func (m *Manager) Disconnect(address string) bool {
	m.lock.Lock()
	s, ok := m.sessions[address]
	delete(m.sessions, address)
	m.lock.Unlock()

	if !ok {
		return false
	}
	m.closeSession(s)
	return true
}

// DisconnectAll closes every Session.
func (m *Manager) DisconnectAll() {
	m.lock.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.lock.Unlock()

	for _, s := range sessions {
		m.closeSession(s)
	}
}

func (m *Manager) closeSession(s *Session) {
	if err := s.close(); err != nil {
		log.Debug("Error closing session with %s: %s", s.Address(), err)
	}
	log.Info("Disconnected from %s", s.Address())
}

// Send writes payload to the Session for address and returns the bytes the device has made
// available in response.
//
// It returns protocol.ErrSocketNotFound if there is no Session, and protocol.ErrSendError if the
// write or read fails. A failed Send leaves the Session open.
func (m *Manager) Send(ctx context.Context, address string, payload []byte) ([]byte, error) {
	m.lock.Lock()
	s, ok := m.sessions[address]
	m.lock.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrSocketNotFound, address)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := s.exchange(payload, m.cfg.ReadBufferSize, m.cfg.SendTimeout)
	if err != nil {
		log.Warning("[%s] Send failed: %s", address, err)
		return nil, fmt.Errorf("%w: %w", protocol.ErrSendError, err)
	}
	return response, nil
}

// IsConnected reports whether a Session exists for address. It does not probe the link.
func (m *Manager) IsConnected(address string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, ok := m.sessions[address]
	return ok
}

// Addresses returns the addresses of all open Sessions in sorted order.
func (m *Manager) Addresses() []string {
	m.lock.Lock()
	addresses := make([]string, 0, len(m.sessions))
	for address := range m.sessions {
		addresses = append(addresses, address)
	}
	m.lock.Unlock()

	sort.Strings(addresses)
	return addresses
}
