//go:build linux

package goble

import (
	"errors"
	"io/fs"

	"github.com/godbus/dbus/v5"
)

const bluezServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"

// adapterHint returns advice for an error returned by NewProvider, or "" if err is not caused by
// the host Bluetooth setup.
func adapterHint(err error) string {
	var dbusErr dbus.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRFCOMMUnsupported):
		return "The rfcomm kernel module is not loaded. Load it with `modprobe rfcomm` " +
			"(and add it to /etc/modules-load.d to keep it across reboots)."
	case errors.Is(err, ErrAdapterNotFound):
		return "BlueZ does not list a matching adapter. Check `bluetoothctl list`, pass the adapter " +
			"name with -adapter (e.g. hci0), and make sure it is not blocked (`rfkill unblock bluetooth`)."
	case errors.As(err, &dbusErr) && dbusErr.Name == bluezServiceUnknown:
		return "The system D-Bus is running but bluetoothd is not. Start it with " +
			"`systemctl start bluetooth`, then power the adapter on with `bluetoothctl power on`."
	case errors.Is(err, fs.ErrNotExist):
		return "The system D-Bus socket is missing. If running in a container, mount the host's " +
			"socket (e.g. -v /var/run/dbus:/var/run/dbus)."
	}
	return ""
}

func IsAdapterError(err error) bool {
	return adapterHint(err) != ""
}

func AdapterErrorHelpMessage(err error) string {
	return "Failed to initialize Bluetooth adapter:\n\t" + err.Error() + "\n" + adapterHint(err) + "\n" +
		"The adapter must also be powered on (`bluetoothctl power on`) before scanning or connecting."
}
