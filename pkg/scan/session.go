// Package scan runs Bluetooth device discovery.
//
// A Session owns the registry of devices discovered by the most recent scan. Starting a scan
// begins a new discovery epoch: the registry is cleared and every open RFCOMM session is closed.
// Stopping a scan keeps the registry, so discovered devices remain connectable.
package scan

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/protocol"
)

// DefaultPollInterval is the period between device list polls when the provider does not support
// callback scanning.
const DefaultPollInterval = time.Second

type State int

const (
	Idle State = iota
	Starting
	Scanning
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Scanning:
		return "scanning"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SessionCloser closes every open RFCOMM session.
type SessionCloser interface {
	DisconnectAll()
}

type Config struct {
	PollInterval time.Duration
}

type Session struct {
	sessions  SessionCloser
	publisher events.Publisher
	strategy  strategy
	registry  *device.Registry

	lock   sync.Mutex
	state  State
	epoch  uint64
	closed bool
}

var errClosed = errors.New("scan: session closed")

// New returns an idle Session. The discovery mechanism is chosen from the provider's
// capabilities once, here. A nil publisher discards events.
func New(provider ble.Provider, sessions SessionCloser, publisher events.Publisher, cfg Config) *Session {
	if publisher == nil {
		publisher = events.Discard
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	var strat strategy
	if provider.SupportsCallbackScan() {
		strat = &callbackStrategy{provider: provider}
	} else {
		strat = &pollingStrategy{provider: provider, interval: cfg.PollInterval}
	}
	log.Debug("Using %s scan strategy", strat)

	return &Session{
		sessions:  sessions,
		publisher: publisher,
		strategy:  strat,
		registry:  device.NewRegistry(),
	}
}

// Start begins a scan. It returns protocol.ErrAlreadyScanning if a scan is running or starting,
// and protocol.ErrScanFailed if the provider refuses to scan or the Session has been closed.
func (s *Session) Start() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return fmt.Errorf("%w: %w", protocol.ErrScanFailed, errClosed)
	}
	if s.state != Idle {
		state := s.state
		s.lock.Unlock()
		return fmt.Errorf("%w: scan is %s", protocol.ErrAlreadyScanning, state)
	}
	s.state = Starting
	s.epoch++
	epoch := s.epoch
	s.registry.Clear()
	s.lock.Unlock()

	if s.sessions != nil {
		s.sessions.DisconnectAll()
	}

	err := s.strategy.start(func(d ble.Device) {
		s.handle(epoch, d)
	})

	s.lock.Lock()
	if err != nil {
		s.state = Idle
		s.lock.Unlock()
		log.Warning("Failed to start %s scan: %s", s.strategy, err)
		return fmt.Errorf("%w: %w", protocol.ErrScanFailed, err)
	}
	if s.closed {
		// Close ran while the provider was starting; it left the scan for us to stop.
		s.state = Stopping
		s.epoch++
		s.lock.Unlock()
		if err := s.finishStop(); err != nil {
			log.Warning("Failed to stop %s scan: %s", s.strategy, err)
		}
		return fmt.Errorf("%w: %w", protocol.ErrScanFailed, errClosed)
	}
	s.state = Scanning
	s.lock.Unlock()
	log.Info("Scan started")
	return nil
}

// Stop ends a running scan. It returns protocol.ErrNotScanning unless a scan is running. The scan
// is considered stopped even if the provider reports protocol.ErrScanFailed.
func (s *Session) Stop() error {
	s.lock.Lock()
	if s.state != Scanning {
		state := s.state
		s.lock.Unlock()
		return fmt.Errorf("%w: scan is %s", protocol.ErrNotScanning, state)
	}
	s.state = Stopping
	s.epoch++
	s.lock.Unlock()

	if err := s.finishStop(); err != nil {
		log.Warning("Failed to stop %s scan: %s", s.strategy, err)
		return fmt.Errorf("%w: %w", protocol.ErrScanFailed, err)
	}
	log.Info("Scan stopped, %d devices found", s.registry.Len())
	return nil
}

// finishStop stops the provider scan of a Session the caller has moved to Stopping.
func (s *Session) finishStop() error {
	err := s.strategy.stop()

	s.lock.Lock()
	s.state = Idle
	s.lock.Unlock()
	return err
}

// Close stops a running scan and rejects further starts. A scan that is still starting is
// stopped by Start as soon as the provider returns.
func (s *Session) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	scanning := s.state == Scanning
	s.lock.Unlock()

	if !scanning {
		return nil
	}
	err := s.Stop()
	if errors.Is(err, protocol.ErrNotScanning) {
		return nil
	}
	return err
}

// handle records a device reported during the scan that started epoch.
func (s *Session) handle(epoch uint64, d ble.Device) {
	h := device.FromDevice(d)
	if h.Address == "" {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.epoch != epoch || (s.state != Starting && s.state != Scanning) {
		return
	}
	if s.registry.Upsert(h) {
		log.Debug("Discovered %s", h)
		s.publisher.Publish(events.ScanResult, h)
	}
}

func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *Session) Scanning() bool {
	return s.State() == Scanning
}

// Lookup returns a device discovered by the most recent scan.
func (s *Session) Lookup(address string) (device.Handle, bool) {
	return s.registry.Get(address)
}

// Devices lists devices discovered by the most recent scan.
func (s *Session) Devices() []device.Handle {
	return s.registry.List()
}
