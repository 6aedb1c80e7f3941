// Package plugin exposes the Bluetooth operations offered to host applications.
//
// Every operation first checks that a Bluetooth adapter is available and fails with
// protocol.ErrBluetoothUnavailable otherwise. Addresses are normalized to upper-case
// colon-separated form before use.
package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/protocol"
	"github.com/ardelias/blueberry/pkg/scan"
	"github.com/ardelias/blueberry/pkg/session"
)

type Config struct {
	// SendTimeout bounds each send. The default of zero means no timeout: a send to a device
	// that never answers blocks until the session is disconnected.
	SendTimeout time.Duration

	// ConnectTimeout bounds each connect. Zero means only the caller's context applies.
	ConnectTimeout time.Duration

	// ReadBufferSize caps the bytes returned by one send.
	ReadBufferSize int

	// PollInterval is used by providers without callback scanning.
	PollInterval time.Duration

	// EventCapacity is the number of events buffered per subscriber.
	EventCapacity int
}

func DefaultConfig() Config {
	return Config{
		ReadBufferSize: session.DefaultReadBufferSize,
		PollInterval:   scan.DefaultPollInterval,
		EventCapacity:  events.DefaultCapacity,
	}
}

type Plugin struct {
	provider ble.Provider
	bus      *events.Bus
	scan     *scan.Session
	sessions *session.Manager

	closeOnce sync.Once
	closeErr  error
}

// New takes ownership of provider; it is closed by Close.
func New(provider ble.Provider, cfg Config) *Plugin {
	p := &Plugin{
		provider: provider,
		bus:      events.NewBus(cfg.EventCapacity),
	}
	p.sessions = session.NewManager(provider, session.ResolverFunc(p.lookup), session.Config{
		SendTimeout:    cfg.SendTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadBufferSize: cfg.ReadBufferSize,
	})
	p.scan = scan.New(provider, p.sessions, p.bus, scan.Config{PollInterval: cfg.PollInterval})
	return p
}

func (p *Plugin) lookup(address string) (device.Handle, bool) {
	return p.scan.Lookup(address)
}

// Available reports whether a Bluetooth adapter is usable.
func (p *Plugin) Available() bool {
	return p.provider.Available()
}

func (p *Plugin) checkAvailable() error {
	if !p.provider.Available() {
		return protocol.ErrBluetoothUnavailable
	}
	return nil
}

func (p *Plugin) checkAddress(address string) (string, error) {
	if err := p.checkAvailable(); err != nil {
		return "", err
	}
	if address == "" {
		return "", fmt.Errorf("%w: address", protocol.ErrMissingParameter)
	}
	return ble.NormalizeAddress(address), nil
}

// PlatformVersion describes the host operating system and Bluetooth stack.
func (p *Plugin) PlatformVersion() (string, error) {
	if err := p.checkAvailable(); err != nil {
		return "", err
	}
	version := platformVersion()
	if n, ok := p.provider.(interface{ Name() string }); ok {
		version += " " + n.Name()
	}
	return version, nil
}

// StartScan clears previously discovered devices, closes every session and starts discovery.
// Discovered devices are published as events.ScanResult events.
func (p *Plugin) StartScan() error {
	if err := p.checkAvailable(); err != nil {
		return err
	}
	return p.scan.Start()
}

func (p *Plugin) StopScan() error {
	if err := p.checkAvailable(); err != nil {
		return err
	}
	return p.scan.Stop()
}

// IsConnected reports whether a session with address is open. The link itself is not probed.
func (p *Plugin) IsConnected(address string) (bool, error) {
	address, err := p.checkAddress(address)
	if err != nil {
		return false, err
	}
	return p.sessions.IsConnected(address), nil
}

// Connect opens a session with a bonded or discovered device. A device that cannot be reached
// yields false rather than an error.
func (p *Plugin) Connect(ctx context.Context, address string) (bool, error) {
	address, err := p.checkAddress(address)
	if err != nil {
		return false, err
	}
	return p.sessions.Connect(ctx, address)
}

// Disconnect closes the session with address, or every session if address is empty. It returns
// false if address names no open session.
func (p *Plugin) Disconnect(address string) (bool, error) {
	if err := p.checkAvailable(); err != nil {
		return false, err
	}
	if address == "" {
		p.sessions.DisconnectAll()
		return true, nil
	}
	return p.sessions.Disconnect(ble.NormalizeAddress(address)), nil
}

// Send writes payload to the session with address and returns the response bytes available after
// the write. Responses spanning several reads are truncated to the first read.
func (p *Plugin) Send(ctx context.Context, address string, payload []byte) ([]byte, error) {
	address, err := p.checkAddress(address)
	if err != nil {
		return nil, err
	}
	return p.sessions.Send(ctx, address, payload)
}

// Subscribe returns a subscription to the named events. Without names it subscribes to
// events.ScanResult.
func (p *Plugin) Subscribe(names ...string) *events.Subscription {
	if len(names) == 0 {
		names = []string{events.ScanResult}
	}
	return p.bus.Subscribe(names...)
}

// Scanning reports whether a scan is running.
func (p *Plugin) Scanning() bool {
	return p.scan.Scanning()
}

// Devices lists devices discovered by the most recent scan.
func (p *Plugin) Devices() []device.Handle {
	return p.scan.Devices()
}

// Connections lists the addresses of open sessions.
func (p *Plugin) Connections() []string {
	return p.sessions.Addresses()
}

// Close stops any running scan, closes every session and releases the provider. A scan that is
// still starting is stopped once the provider finishes starting it.
func (p *Plugin) Close() error {
	p.closeOnce.Do(func() {
		if err := p.scan.Close(); err != nil {
			log.Warning("Error stopping scan: %s", err)
		}
		p.sessions.DisconnectAll()
		p.bus.Close()
		p.closeErr = p.provider.Close()
	})
	return p.closeErr
}
