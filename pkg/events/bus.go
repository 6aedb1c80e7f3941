// Package events fans out asynchronous notifications, such as scan results, to subscribers.
package events

import (
	"sync"

	"github.com/cskr/pubsub/v2"
)

// ScanResult is published once per newly discovered device while a scan is running. The event's
// Data is a device.Handle.
const ScanResult = "scanResult"

// DefaultCapacity is the number of events buffered per subscriber. Events published to a full
// subscriber are dropped for that subscriber.
const DefaultCapacity = 16

// Event is a named notification.
type Event struct {
	Name string
	Data any
}

// Publisher publishes events to the event stream.
type Publisher interface {
	Publish(name string, data any)
}

// Subscription receives events until Close is called.
type Subscription struct {
	C <-chan Event

	once  sync.Once
	unsub func()
}

// Close stops delivery. The channel is closed asynchronously.
func (s *Subscription) Close() {
	s.once.Do(s.unsub)
}

// Bus is a Publisher that delivers events to subscribers by name.
type Bus struct {
	ps *pubsub.PubSub[string, Event]

	lock   sync.Mutex
	closed bool
	// unsubs tracks Unsub calls still waiting on the pubsub loop. Shutdown must not run before
	// they are accepted, or they block forever.
	unsubs sync.WaitGroup
}

// NewBus returns a Bus that buffers up to capacity events per subscriber.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{ps: pubsub.New[string, Event](capacity)}
}

// Publish delivers an event without blocking.
func (b *Bus) Publish(name string, data any) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return
	}
	b.ps.TryPub(Event{Name: name, Data: data}, name)
}

// Subscribe returns a subscription to the named events.
func (b *Bus) Subscribe(names ...string) *Subscription {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return &Subscription{C: ch, unsub: func() {}}
	}

	ch := b.ps.Sub(names...)
	return &Subscription{
		C: ch,
		unsub: func() {
			b.lock.Lock()
			defer b.lock.Unlock()
			if b.closed {
				return
			}
			// Unsub blocks until the pubsub loop drains; don't hold up the caller.
			b.unsubs.Add(1)
			go func() {
				defer b.unsubs.Done()
				b.ps.Unsub(ch, names...)
			}()
		},
	}
}

// Close shuts the bus down and closes every subscription channel.
func (b *Bus) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.unsubs.Wait()
	b.ps.Shutdown()
}

type nilPublisher struct{}

func (nilPublisher) Publish(string, any) {}

// Discard is a Publisher that drops every event.
var Discard Publisher = nilPublisher{}
