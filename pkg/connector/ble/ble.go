package ble

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrNotSupported   = errors.New("ble: not supported on this platform")
	ErrInvalidAddress = errors.New("ble: invalid device address")
)

// NormalizeAddress returns address in the canonical upper-case, colon-separated form used as the
// key for devices and sessions. Addresses that are not MAC-48 strings are upper-cased and returned
// as they are, since some stacks identify devices with opaque strings.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if hw, err := net.ParseMAC(address); err == nil && len(hw) == 6 {
		return strings.ToUpper(hw.String())
	}
	return strings.ToUpper(address)
}

// ParseAddress converts a MAC-48 address into the little-endian byte order the Linux kernel uses
// for bdaddr_t.
func ParseAddress(address string) ([6]byte, error) {
	var b [6]byte
	hw, err := net.ParseMAC(address)
	if err != nil || len(hw) != 6 {
		return b, fmt.Errorf("%w: '%s'", ErrInvalidAddress, address)
	}
	for i := 0; i < 6; i++ {
		b[i] = hw[5-i]
	}
	return b, nil
}

func (d Device) String() string {
	if d.Name == "" {
		return d.Address
	}
	return fmt.Sprintf("%s (%s)", d.Address, d.Name)
}
