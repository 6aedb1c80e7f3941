// Package goble implements ble.Provider on top of the host Bluetooth stack.
//
// On Linux, adapter state, bonded devices and legacy discovery go through BlueZ over D-Bus, LE
// advertisements are received through go-ble's HCI device when it can be opened, and RFCOMM
// sessions use kernel Bluetooth sockets. Other platforms are not supported.
package goble

import (
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

// DefaultRFCOMMChannel is used when Config.RFCOMMChannel is zero. Most serial-port profile
// servers listen on channel 1.
const DefaultRFCOMMChannel uint8 = 1

type Config struct {
	// AdapterID selects an adapter, e.g. "hci0". The first adapter is used when empty.
	AdapterID string

	// RFCOMMChannel is the channel sessions connect to.
	RFCOMMChannel uint8

	// DisableHCI skips opening the raw HCI device, which forces polling discovery.
	DisableHCI bool
}

// NewProvider opens the platform Bluetooth stack.
func NewProvider(cfg Config) (ble.Provider, error) {
	if cfg.RFCOMMChannel == 0 {
		cfg.RFCOMMChannel = DefaultRFCOMMChannel
	}
	return newProvider(cfg)
}
