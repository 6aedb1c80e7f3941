//go:build !linux

package plugin

import (
	"fmt"
	"runtime"
)

func platformVersion() string {
	return fmt.Sprintf("%s (%s)", runtime.GOOS, runtime.GOARCH)
}
