package goble

import "errors"

var (
	ErrAdapterNotFound   = errors.New("ble: the bluetooth adapter ID is invalid or no adapter is present")
	ErrRFCOMMUnsupported = errors.New("ble: the kernel does not support RFCOMM sockets")
)
