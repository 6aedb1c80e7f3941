//go:build linux

package goble

import (
	"context"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/godbus/dbus/v5"

	"github.com/ardelias/blueberry/pkg/connector/ble"
)

const (
	bluezService    = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func getManagedObjects(bus *dbus.Conn) (managedObjects, error) {
	var objs managedObjects
	call := bus.Object(bluezService, dbus.ObjectPath("/")).Call(objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fault.Wrap(call.Err,
			fctx.With(context.Background(), "error_at", "get-managed-objects"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot list BlueZ objects"),
		)
	}
	if err := call.Store(&objs); err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "decode-managed-objects"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot decode BlueZ objects"),
		)
	}
	return objs, nil
}

// findAdapter returns the object path of the adapter named id (e.g. "hci0"), or of the first
// adapter if id is empty.
func findAdapter(bus *dbus.Conn, id string) (dbus.ObjectPath, error) {
	objs, err := getManagedObjects(bus)
	if err != nil {
		return "", err
	}

	var first dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[adapterIface]; !ok {
			continue
		}
		if id != "" && strings.HasSuffix(string(path), "/"+id) {
			return path, nil
		}
		if first == "" || path < first {
			first = path
		}
	}
	if id != "" || first == "" {
		return "", fault.Wrap(ErrAdapterNotFound,
			fctx.With(context.Background(), "adapter_id", id),
			ftag.With(ftag.NotFound),
			fmsg.With("No matching Bluetooth adapter"),
		)
	}
	return first, nil
}

// adapterIndex extracts the HCI index from an adapter path such as /org/bluez/hci0.
func adapterIndex(path dbus.ObjectPath) int {
	s := string(path)
	idx := strings.LastIndex(s, "hci")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(s[idx+3:])
	if err != nil {
		return 0
	}
	return n
}

func adapterPowered(bus *dbus.Conn, adapter dbus.ObjectPath) (bool, error) {
	var v dbus.Variant
	call := bus.Object(bluezService, adapter).Call(propsIface+".Get", 0, adapterIface, "Powered")
	if call.Err != nil {
		return false, call.Err
	}
	if err := call.Store(&v); err != nil {
		return false, err
	}
	powered, _ := v.Value().(bool)
	return powered, nil
}

func callAdapter(bus *dbus.Conn, adapter dbus.ObjectPath, method string) error {
	if call := bus.Object(bluezService, adapter).Call(adapterIface+"."+method, 0); call.Err != nil {
		return fault.Wrap(call.Err,
			fctx.With(context.Background(), "error_at", method),
			ftag.With(ftag.Internal),
			fmsg.With("BlueZ adapter call failed"),
		)
	}
	return nil
}

func listDevices(bus *dbus.Conn, adapter dbus.ObjectPath, filter func(map[string]dbus.Variant) bool) ([]ble.Device, error) {
	objs, err := getManagedObjects(bus)
	if err != nil {
		return nil, err
	}

	var devices []ble.Device
	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok || !strings.HasPrefix(string(path), string(adapter)+"/") {
			continue
		}
		if !filter(props) {
			continue
		}
		if device, ok := deviceFromProperties(path, props); ok {
			devices = append(devices, device)
		}
	}
	return devices, nil
}

func deviceFromProperties(path dbus.ObjectPath, props map[string]dbus.Variant) (ble.Device, bool) {
	address := stringProperty(props, "Address")
	if address == "" {
		address = addressFromPath(path)
	}
	if address == "" {
		return ble.Device{}, false
	}
	return ble.Device{
		Address: ble.NormalizeAddress(address),
		Name:    stringProperty(props, "Name"),
	}, true
}

func stringProperty(props map[string]dbus.Variant, name string) string {
	if v, ok := props[name]; ok {
		s, _ := v.Value().(string)
		return s
	}
	return ""
}

func boolProperty(props map[string]dbus.Variant, name string) bool {
	if v, ok := props[name]; ok {
		b, _ := v.Value().(bool)
		return b
	}
	return false
}

// addressFromPath recovers the address from a path like .../dev_XX_XX_XX_XX_XX_XX.
func addressFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}
