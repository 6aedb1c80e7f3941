package channel

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardelias/blueberry/pkg/protocol"
)

// Arguments are the named values passed with a method call.
type Arguments struct {
	fields map[string]*structpb.Value
}

func newArguments(s *structpb.Struct) Arguments {
	return Arguments{fields: s.GetFields()}
}

func missingParamError(key string) error {
	return fmt.Errorf("%w: '%s'", protocol.ErrMissingParameter, key)
}

func invalidParamError(key string) error {
	return fmt.Errorf("%w: '%s'", protocol.ErrInvalidParameter, key)
}

// lookup treats explicit nulls as absent.
func (a Arguments) lookup(key string) (*structpb.Value, bool) {
	value, exists := a.fields[key]
	if !exists {
		return nil, false
	}
	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return value, true
}

func (a Arguments) getString(key string, required bool) (string, error) {
	value, exists := a.lookup(key)
	if exists {
		if s, isString := value.GetKind().(*structpb.Value_StringValue); isString {
			return s.StringValue, nil
		}
		return "", invalidParamError(key)
	}

	if !required {
		return "", nil
	}

	return "", missingParamError(key)
}

// getAddress reads the device address, which callers may pass as either "address" or "id".
func (a Arguments) getAddress(required bool) (string, error) {
	address, err := a.getString("address", false)
	if err != nil || address != "" {
		return address, err
	}
	id, err := a.getString("id", false)
	if err != nil || id != "" {
		return id, err
	}
	if !required {
		return "", nil
	}
	return "", fmt.Errorf("%w: pass the device address as 'address' or 'id'", protocol.ErrMissingParameter)
}

// getBytes reads a list of integers in the range 0-255.
func (a Arguments) getBytes(key string) ([]byte, error) {
	value, exists := a.lookup(key)
	if !exists {
		return nil, missingParamError(key)
	}
	list, isList := value.GetKind().(*structpb.Value_ListValue)
	if !isList {
		return nil, invalidParamError(key)
	}

	values := list.ListValue.GetValues()
	data := make([]byte, len(values))
	for i, v := range values {
		n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
		if !isNumber {
			return nil, fmt.Errorf("%w: '%s' element %d is not a number", protocol.ErrInvalidParameter, key, i)
		}
		f := n.NumberValue
		if f != math.Trunc(f) || f < 0 || f > math.MaxUint8 {
			return nil, fmt.Errorf("%w: '%s' element %d is not a byte: %v", protocol.ErrInvalidParameter, key, i, f)
		}
		data[i] = byte(f)
	}
	return data, nil
}

// bytesValue encodes data the way getBytes decodes it.
func bytesValue(data []byte) *structpb.Value {
	values := make([]*structpb.Value, len(data))
	for i, b := range data {
		values[i] = structpb.NewNumberValue(float64(b))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}
