// Package channel routes method calls from a host application to the Bluetooth plugin.
//
// A call names a method and carries its arguments as a structpb.Struct, so it can be decoded from
// any JSON-compatible transport. Results are structpb.Values: null for scan control, a bool for
// connection state and a list of byte values for send.
package channel

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/protocol"
)

// Name identifies the method channel.
const Name = "blueberry"

// Method names.
const (
	MethodPlatformVersion = "getPlatformVersion"
	MethodStartScan       = "startScan"
	MethodStopScan        = "stopScan"
	MethodIsConnected     = "isConnected"
	MethodConnect         = "connect"
	MethodDisconnect      = "disconnect"
	MethodSend            = "send"
)

// Methods lists every supported method.
var Methods = []string{
	MethodPlatformVersion,
	MethodStartScan,
	MethodStopScan,
	MethodIsConnected,
	MethodConnect,
	MethodDisconnect,
	MethodSend,
}

// MethodCall is a request to invoke a method, or an event delivered to the host.
type MethodCall struct {
	Method    string
	Arguments *structpb.Struct
}

// NewMethodCall builds a MethodCall from Go values accepted by structpb.NewStruct.
func NewMethodCall(method string, arguments map[string]any) (*MethodCall, error) {
	args, err := structpb.NewStruct(arguments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrInvalidParameter, err)
	}
	return &MethodCall{Method: method, Arguments: args}, nil
}

// Bluetooth is the set of operations a Dispatcher routes calls to. It is implemented by
// *plugin.Plugin.
type Bluetooth interface {
	Available() bool
	PlatformVersion() (string, error)
	StartScan() error
	StopScan() error
	IsConnected(address string) (bool, error)
	Connect(ctx context.Context, address string) (bool, error)
	Disconnect(address string) (bool, error)
	Send(ctx context.Context, address string, payload []byte) ([]byte, error)
}

type Dispatcher struct {
	bt Bluetooth
}

func NewDispatcher(bt Bluetooth) *Dispatcher {
	return &Dispatcher{bt: bt}
}

// Dispatch invokes call. Bluetooth availability is checked before the method name or arguments
// are examined. Unknown methods fail with protocol.ErrNotImplemented.
func (d *Dispatcher) Dispatch(ctx context.Context, call *MethodCall) (*structpb.Value, error) {
	if !d.bt.Available() {
		return nil, protocol.ErrBluetoothUnavailable
	}

	args := newArguments(call.Arguments)
	switch call.Method {
	case MethodPlatformVersion:
		version, err := d.bt.PlatformVersion()
		if err != nil {
			return nil, err
		}
		return structpb.NewStringValue(version), nil
	case MethodStartScan:
		if err := d.bt.StartScan(); err != nil {
			return nil, err
		}
		return structpb.NewNullValue(), nil
	case MethodStopScan:
		if err := d.bt.StopScan(); err != nil {
			return nil, err
		}
		return structpb.NewNullValue(), nil
	case MethodIsConnected:
		address, err := args.getAddress(true)
		if err != nil {
			return nil, err
		}
		return boolResult(d.bt.IsConnected(address))
	case MethodConnect:
		address, err := args.getAddress(true)
		if err != nil {
			return nil, err
		}
		return boolResult(d.bt.Connect(ctx, address))
	case MethodDisconnect:
		address, err := args.getAddress(false)
		if err != nil {
			return nil, err
		}
		return boolResult(d.bt.Disconnect(address))
	case MethodSend:
		address, err := args.getAddress(true)
		if err != nil {
			return nil, err
		}
		payload, err := args.getBytes("bytes")
		if err != nil {
			return nil, err
		}
		response, err := d.bt.Send(ctx, address, payload)
		if err != nil {
			return nil, err
		}
		return bytesValue(response), nil
	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrNotImplemented, call.Method)
	}
}

func boolResult(ok bool, err error) (*structpb.Value, error) {
	if err != nil {
		return nil, err
	}
	return structpb.NewBoolValue(ok), nil
}

// EventCall converts an event published by the plugin into the MethodCall delivered to the host.
func EventCall(e events.Event) (*MethodCall, error) {
	switch data := e.Data.(type) {
	case device.Handle:
		args := &structpb.Struct{Fields: map[string]*structpb.Value{
			"address": structpb.NewStringValue(data.Address),
			"name":    structpb.NewNullValue(),
		}}
		if data.Name != "" {
			args.Fields["name"] = structpb.NewStringValue(data.Name)
		}
		return &MethodCall{Method: e.Name, Arguments: args}, nil
	default:
		return nil, fmt.Errorf("unsupported event data %T for %s", e.Data, e.Name)
	}
}
