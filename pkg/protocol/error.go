package protocol

import (
	"errors"
)

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// Code returns the machine-readable error code reported to method-channel callers.
	Code() string

	// MayHaveSucceeded returns true if the Error was triggered by an operation that might have
	// taken effect on the remote device. For example, a send that fails while reading the response
	// may already have delivered the request bytes.
	MayHaveSucceeded() bool

	// Temporary returns true if the Error might be the result of a transient condition, such as a
	// device being out of range.
	Temporary() bool
}

var (
	// ErrBluetoothUnavailable indicates the host has no usable Bluetooth adapter. Every operation
	// checks for this before validating its arguments.
	ErrBluetoothUnavailable = NewError("bluetooth_unavailable", "Bluetooth is not available", false, false)
	// ErrMissingParameter indicates the caller omitted a required argument.
	ErrMissingParameter = NewError("missing_parameter", "a required parameter was not provided", false, false)
	// ErrInvalidParameter indicates an argument was present but malformed.
	ErrInvalidParameter = NewError("invalid_parameter", "a parameter has an invalid value", false, false)
	// ErrAlreadyScanning indicates startScan was called while a scan is ongoing.
	ErrAlreadyScanning = NewError("bluetooth_already_scanning", "a bluetooth device scan is already ongoing", false, false)
	// ErrNotScanning indicates stopScan was called without an ongoing scan.
	ErrNotScanning = NewError("bluetooth_not_scanning", "there is no ongoing bluetooth device scan", false, false)
	// ErrScanFailed indicates the Bluetooth stack refused to start or stop a scan.
	ErrScanFailed = NewError("bluetooth_scan_failed", "the bluetooth stack could not change the scan state", false, true)
	// ErrDeviceNotFound indicates an address is neither bonded nor discovered by the current scan.
	ErrDeviceNotFound = NewError("bluetooth_device_not_found", "cannot find the specified bluetooth device", false, false)
	// ErrSocketNotFound indicates there is no open session for an address. You may have forgotten
	// to call connect.
	ErrSocketNotFound = NewError("bluetooth_socket_not_found", "cannot find the specified bluetooth socket, are you connected to it?", false, false)
	// ErrSendError indicates an I/O fault while writing to or reading from a session. The request
	// may have reached the device.
	ErrSendError = NewError("bluetooth_send_error", "cannot write on the specified bluetooth socket", true, true)
	// ErrNotImplemented indicates the method channel received an unknown method name.
	ErrNotImplemented = NewError("not_implemented", "method not implemented", false, false)
)

type CommandError struct {
	ErrCode           string
	Err               error
	PossibleSuccess   bool
	PossibleTemporary bool
}

func NewError(code, message string, mayHaveSucceeded bool, temporary bool) error {
	return &CommandError{ErrCode: code, Err: errors.New(message), PossibleSuccess: mayHaveSucceeded, PossibleTemporary: temporary}
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Code() string {
	return e.ErrCode
}

func (e *CommandError) MayHaveSucceeded() bool {
	return e.PossibleSuccess
}

func (e *CommandError) Temporary() bool {
	return e.PossibleTemporary
}

// MayHaveSucceeded returns true if err wraps an Error that indicates the operation may have taken
// effect even though it failed.
func MayHaveSucceeded(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.MayHaveSucceeded() {
		return true
	}
	return false
}

// Temporary returns true if err wraps an Error that indicates the operation failed due to possibly
// transient conditions.
func Temporary(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.Temporary() {
		return true
	}
	return false
}

// Code returns the error code of the first Error wrapped by err, or "error" if err does not wrap
// one. It returns an empty string for a nil error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var commErr Error
	if errors.As(err, &commErr) {
		return commErr.Code()
	}
	return "error"
}
