// Package bttest provides an in-memory ble.Provider for tests.
package bttest

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/ardelias/blueberry/pkg/connector/ble"
)

var ErrUnavailable = errors.New("bttest: adapter unavailable")

// Responder computes the bytes a device makes available after receiving payload. A nil return
// value means the device does not answer, so a subsequent read blocks until the socket is closed.
type Responder func(address string, payload []byte) []byte

// Echo answers every payload with itself.
func Echo(_ string, payload []byte) []byte {
	return append([]byte(nil), payload...)
}

// Silent never answers.
func Silent(string, []byte) []byte {
	return nil
}

// Provider is a fake ble.Provider backed by lists of devices. All methods are safe for
// concurrent use.
type Provider struct {
	lock sync.Mutex

	available    bool
	callbackScan bool
	bonded       []ble.Device
	bondedErr    error
	discovered   []ble.Device
	scanErr      error
	dialErr      error
	dialGate     chan struct{}
	responder    Responder

	handler     func(ble.Device)
	leScanning  bool
	discovering bool
	scanStarts  int
	sockets     map[string][]*Socket
	closed      bool
}

// NewProvider returns an available Provider that supports callback scanning and echoes payloads.
func NewProvider() *Provider {
	return &Provider{
		available:    true,
		callbackScan: true,
		responder:    Echo,
		sockets:      make(map[string][]*Socket),
	}
}

func (p *Provider) SetAvailable(available bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.available = available
}

func (p *Provider) SetCallbackScan(supported bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.callbackScan = supported
}

func (p *Provider) AddBonded(devices ...ble.Device) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.bonded = append(p.bonded, devices...)
}

func (p *Provider) SetBondedError(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.bondedErr = err
}

// SetDiscovered replaces the devices returned by DiscoveredDevices.
func (p *Provider) SetDiscovered(devices ...ble.Device) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.discovered = append([]ble.Device(nil), devices...)
}

// SetScanError makes subsequent StartLEScan and StartDiscovery calls fail.
func (p *Provider) SetScanError(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.scanErr = err
}

// SetDialError makes subsequent Dial calls fail.
func (p *Provider) SetDialError(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.dialErr = err
}

// HoldDials makes Dial block until the returned function is called or the Dial context expires.
func (p *Provider) HoldDials() (release func()) {
	gate := make(chan struct{})
	p.lock.Lock()
	p.dialGate = gate
	p.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.lock.Lock()
			if p.dialGate == gate {
				p.dialGate = nil
			}
			p.lock.Unlock()
			close(gate)
		})
	}
}

func (p *Provider) SetResponder(r Responder) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.responder = r
}

// Advertise delivers d to the LE scan handler. It reports whether a callback scan was running.
func (p *Provider) Advertise(d ble.Device) bool {
	p.lock.Lock()
	handler := p.handler
	p.lock.Unlock()

	if handler == nil {
		return false
	}
	handler(d)
	return true
}

// Scanning reports whether either discovery mechanism is running.
func (p *Provider) Scanning() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.leScanning || p.discovering
}

// ScanStarts counts successful StartLEScan and StartDiscovery calls.
func (p *Provider) ScanStarts() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.scanStarts
}

// Sockets returns every socket dialed to address, oldest first.
func (p *Provider) Sockets(address string) []*Socket {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]*Socket(nil), p.sockets[address]...)
}

func (p *Provider) Closed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

func (p *Provider) Available() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.available && !p.closed
}

func (p *Provider) SupportsCallbackScan() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.callbackScan
}

func (p *Provider) StartLEScan(handler func(ble.Device)) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.scanErr != nil {
		return p.scanErr
	}
	if !p.callbackScan {
		return ble.ErrNotSupported
	}
	p.handler = handler
	p.leScanning = true
	p.scanStarts++
	return nil
}

func (p *Provider) StopLEScan() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.handler = nil
	p.leScanning = false
	return nil
}

func (p *Provider) StartDiscovery() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.scanErr != nil {
		return p.scanErr
	}
	p.discovering = true
	p.scanStarts++
	return nil
}

func (p *Provider) StopDiscovery() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.discovering = false
	return nil
}

func (p *Provider) DiscoveredDevices() ([]ble.Device, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.discovering {
		return nil, nil
	}
	return append([]ble.Device(nil), p.discovered...), nil
}

func (p *Provider) BondedDevices() ([]ble.Device, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.bondedErr != nil {
		return nil, p.bondedErr
	}
	return append([]ble.Device(nil), p.bonded...), nil
}

func (p *Provider) Dial(ctx context.Context, address string) (ble.Socket, error) {
	p.lock.Lock()
	gate := p.dialGate
	p.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.available || p.closed {
		return nil, ErrUnavailable
	}
	if p.dialErr != nil {
		return nil, p.dialErr
	}
	s := newSocket(address, p.responder)
	p.sockets[address] = append(p.sockets[address], s)
	return s, nil
}

func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	p.handler = nil
	p.leScanning = false
	p.discovering = false
	return nil
}

// Socket is a fake RFCOMM stream. Reads return the bytes queued by the Provider's Responder, at
// most one response per read.
type Socket struct {
	address   string
	responder Responder

	lock      sync.Mutex
	written   [][]byte
	pending   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newSocket(address string, responder Responder) *Socket {
	return &Socket{
		address:   address,
		responder: responder,
		pending:   make(chan []byte, 16),
		closed:    make(chan struct{}),
	}
}

func (s *Socket) Write(p []byte) (int, error) {
	if s.IsClosed() {
		return 0, net.ErrClosed
	}
	s.lock.Lock()
	s.written = append(s.written, append([]byte(nil), p...))
	s.lock.Unlock()

	if response := s.responder(s.address, p); response != nil {
		s.pending <- response
	}
	return len(p), nil
}

// Read returns a single queued response, truncated to len(p).
func (s *Socket) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, net.ErrClosed
	default:
	}
	select {
	case response := <-s.pending:
		return copy(p, response), nil
	case <-s.closed:
		return 0, net.ErrClosed
	}
}

func (s *Socket) Close() error {
	err := net.ErrClosed
	s.closeOnce.Do(func() {
		close(s.closed)
		err = nil
	})
	return err
}

func (s *Socket) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Written returns every payload written to the socket.
func (s *Socket) Written() [][]byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([][]byte(nil), s.written...)
}
