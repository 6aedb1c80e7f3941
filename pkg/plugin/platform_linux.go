//go:build linux

package plugin

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

func platformVersion() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fmt.Sprintf("Linux (%s)", runtime.GOARCH)
	}
	return fmt.Sprintf("Linux %s (%s)", unix.ByteSliceToString(uts.Release[:]), runtime.GOARCH)
}
