package ble

//go:generate mockgen -destination=../../../mocks/provider.go -package=mocks -mock_names=Provider=Provider,Socket=Socket . Provider,Socket

import (
	"context"
	"io"
)

// Device is a Bluetooth device reported by a Provider, either from a scan or from the list of
// devices bonded with the host.
type Device struct {
	Address string
	Name    string
}

// Provider is the capability surface of the platform Bluetooth stack.
//
// A Provider only supports one discovery mechanism at a time. Callers must use either the
// callback-based LE scan (StartLEScan/StopLEScan) or the polling-based discovery
// (StartDiscovery/DiscoveredDevices/StopDiscovery), selected from SupportsCallbackScan, and must
// not run both simultaneously.
type Provider interface {
	// Available reports whether a usable Bluetooth adapter is present.
	Available() bool

	// SupportsCallbackScan reports whether StartLEScan is supported.
	SupportsCallbackScan() bool

	// StartLEScan starts a callback-based LE scan. The handler may be invoked from a goroutine
	// owned by the Provider, once per received advertisement.
	StartLEScan(handler func(Device)) error
	StopLEScan() error

	// StartDiscovery starts legacy discovery. Results are collected by polling DiscoveredDevices.
	StartDiscovery() error
	StopDiscovery() error
	DiscoveredDevices() ([]Device, error)

	// BondedDevices lists devices paired with the host at the operating-system level.
	BondedDevices() ([]Device, error)

	// Dial creates an RFCOMM socket to address and blocks until it is connected, ctx expires, or
	// the connection fails.
	Dial(ctx context.Context, address string) (Socket, error)

	// Close releases the adapter.
	Close() error
}

// Socket is an open RFCOMM stream. Reads return whatever bytes are currently available.
//
// Implementations may also implement SetDeadline(time.Time) error, which is used when a send
// timeout is configured.
type Socket interface {
	io.ReadWriteCloser
}
