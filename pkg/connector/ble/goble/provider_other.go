//go:build !linux

package goble

import (
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

func newProvider(_ Config) (ble.Provider, error) {
	return nil, ble.ErrNotSupported
}

func IsAdapterError(_ error) bool {
	// TODO: Add checks once a non-Linux provider exists
	return false
}

func AdapterErrorHelpMessage(err error) string {
	return err.Error()
}
