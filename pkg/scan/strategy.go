package scan

import (
	"context"
	"sync"
	"time"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

// strategy is one of the provider's discovery mechanisms.
type strategy interface {
	start(handler func(ble.Device)) error
	stop() error
	String() string
}

type callbackStrategy struct {
	provider ble.Provider
}

func (c *callbackStrategy) start(handler func(ble.Device)) error {
	return c.provider.StartLEScan(handler)
}

func (c *callbackStrategy) stop() error {
	return c.provider.StopLEScan()
}

func (c *callbackStrategy) String() string {
	return "callback"
}

// pollingStrategy runs legacy discovery and feeds the discovered device list to the handler every
// interval.
type pollingStrategy struct {
	provider ble.Provider
	interval time.Duration

	lock   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *pollingStrategy) start(handler func(ble.Device)) error {
	if err := p.provider.StartDiscovery(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.lock.Lock()
	p.cancel = cancel
	p.done = done
	p.lock.Unlock()

	go p.poll(ctx, done, handler)
	return nil
}

func (p *pollingStrategy) poll(ctx context.Context, done chan<- struct{}, handler func(ble.Device)) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		devices, err := p.provider.DiscoveredDevices()
		if err != nil {
			log.Debug("Polling discovered devices failed: %s", err)
		}
		for _, d := range devices {
			if ctx.Err() != nil {
				return
			}
			handler(d)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *pollingStrategy) stop() error {
	p.lock.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.lock.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return p.provider.StopDiscovery()
}

func (p *pollingStrategy) String() string {
	return "polling"
}
