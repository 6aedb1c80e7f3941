//go:build linux

package goble

import (
	"context"
	"strings"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/godbus/dbus/v5"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

type provider struct {
	cfg     Config
	bus     *dbus.Conn
	adapter dbus.ObjectPath

	le *leScanner

	mu     sync.Mutex
	closed bool
}

func newProvider(cfg Config) (ble.Provider, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "system-bus"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot connect to the system D-Bus"),
		)
	}

	adapter, err := findAdapter(bus, cfg.AdapterID)
	if err != nil {
		bus.Close()
		return nil, err
	}
	log.Debug("Using BlueZ adapter %s", adapter)

	if err := checkRFCOMM(); err != nil {
		bus.Close()
		return nil, err
	}

	p := &provider{
		cfg:     cfg,
		bus:     bus,
		adapter: adapter,
	}

	if !cfg.DisableHCI {
		le, err := newLEScanner(adapterIndex(adapter))
		if err != nil {
			log.Warning("LE callback scanning unavailable, falling back to discovery polling: %s", err)
		} else {
			p.le = le
		}
	}
	return p, nil
}

func (p *provider) Available() bool {
	powered, err := adapterPowered(p.bus, p.adapter)
	if err != nil {
		log.Debug("Cannot read adapter state: %s", err)
		return false
	}
	return powered
}

// Name identifies the Bluetooth stack.
func (p *provider) Name() string {
	return "BlueZ"
}

func (p *provider) SupportsCallbackScan() bool {
	return p.le != nil
}

func (p *provider) StartLEScan(handler func(ble.Device)) error {
	if p.le == nil {
		return ble.ErrNotSupported
	}
	return p.le.start(handler)
}

func (p *provider) StopLEScan() error {
	if p.le == nil {
		return ble.ErrNotSupported
	}
	return p.le.stop()
}

func (p *provider) StartDiscovery() error {
	return callAdapter(p.bus, p.adapter, "StartDiscovery")
}

func (p *provider) StopDiscovery() error {
	err := callAdapter(p.bus, p.adapter, "StopDiscovery")
	if err != nil && strings.Contains(err.Error(), "No discovery started") {
		return nil
	}
	return err
}

func (p *provider) DiscoveredDevices() ([]ble.Device, error) {
	return listDevices(p.bus, p.adapter, func(props map[string]dbus.Variant) bool {
		_, seen := props["RSSI"]
		return seen
	})
}

func (p *provider) BondedDevices() ([]ble.Device, error) {
	return listDevices(p.bus, p.adapter, func(props map[string]dbus.Variant) bool {
		return boolProperty(props, "Paired") || boolProperty(props, "Bonded")
	})
}

func (p *provider) Dial(ctx context.Context, address string) (ble.Socket, error) {
	return dialRFCOMM(ctx, address, p.cfg.RFCOMMChannel)
}

func (p *provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.le != nil {
		err = p.le.close()
	}
	if closeErr := p.bus.Close(); err == nil {
		err = closeErr
	}
	return err
}
