//go:build linux

package goble

import (
	"context"
	"errors"
	"sync"
	"time"

	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci/cmd"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

// scanSettleTime is how long StartLEScan waits for the controller to reject a scan request before
// reporting success. The go-ble Scan call blocks for the lifetime of the scan, so early errors
// can only be observed this way.
const scanSettleTime = 250 * time.Millisecond

var scanParams = cmd.LESetScanParameters{
	LEScanType:           1,    // Active scanning
	LEScanInterval:       0x10, // 10ms
	LEScanWindow:         0x10, // 10ms
	OwnAddressType:       0,    // Static
	ScanningFilterPolicy: 0,    // Accept all advertisements
}

var errScanInProgress = errors.New("ble: LE scan already in progress")

type leScanner struct {
	device goble.Device

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newLEScanner(index int) (*leScanner, error) {
	device, err := linux.NewDevice(goble.OptDeviceID(index), goble.OptScanParams(scanParams))
	if err != nil {
		return nil, err
	}
	return &leScanner{device: device}, nil
}

func (s *leScanner) start(handler func(ble.Device)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errScanInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	errCh := make(chan error, 1)

	go func() {
		defer close(done)
		err := s.device.Scan(ctx, true, func(a goble.Advertisement) {
			handler(ble.Device{
				Address: ble.NormalizeAddress(a.Addr().String()),
				Name:    a.LocalName(),
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancel()
		<-done
		return err
	case <-time.After(scanSettleTime):
	}

	s.cancel = cancel
	s.done = done
	log.Debug("LE scan running")
	return nil
}

func (s *leScanner) stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	log.Debug("LE scan stopped")
	return nil
}

func (s *leScanner) close() error {
	if err := s.stop(); err != nil {
		return err
	}
	return s.device.Stop()
}
