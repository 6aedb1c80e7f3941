package cli

import "flag"

func (c *Config) registerCommandLineFlagsOsSpecific(fs *flag.FlagSet) {
	fs.StringVar(&c.AdapterID, "adapter", "", "ID of the Bluetooth adapter to use. Defaults to $BLUEBERRY_ADAPTER or the first adapter.")
	fs.BoolVar(&c.DisableHCI, "disable-hci", false, "Use BlueZ discovery polling instead of raw HCI LE scanning")
}
