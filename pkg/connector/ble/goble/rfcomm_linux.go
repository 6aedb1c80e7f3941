//go:build linux

package goble

import (
	"context"
	"fmt"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"golang.org/x/sys/unix"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

// checkRFCOMM fails with ErrRFCOMMUnsupported if the kernel cannot create RFCOMM sockets, which
// usually means the rfcomm module is not loaded.
func checkRFCOMM() error {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return fault.Wrap(fmt.Errorf("%w: %w", ErrRFCOMMUnsupported, err),
			fctx.With(context.Background(), "error_at", "rfcomm-socket"),
			ftag.With(ftag.Internal),
			fmsg.With("RFCOMM sockets are not available"),
		)
	}
	return unix.Close(fd)
}

// dialRFCOMM opens a kernel RFCOMM socket to address on channel. The returned socket is a
// non-blocking *os.File, so Close unblocks pending reads and SetDeadline is supported.
func dialRFCOMM(ctx context.Context, address string, channel uint8) (ble.Socket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bdaddr, err := ble.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "address", address),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot create RFCOMM socket"),
		)
	}

	// unix.Connect cannot be canceled, so it runs in its own goroutine. If ctx expires first, the
	// goroutine owns the descriptor and closes it once the connect attempt returns.
	errCh := make(chan error, 1)
	go func() {
		errCh <- unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: bdaddr, Channel: channel})
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		go func() {
			<-errCh
			unix.Close(fd)
		}()
		return nil, ctx.Err()
	}

	if err != nil {
		unix.Close(fd)
		return nil, fault.Wrap(err,
			fctx.With(ctx, "address", address, "channel", fmt.Sprint(channel)),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot connect RFCOMM socket"),
		)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	log.Debug("RFCOMM connected to %s on channel %d", address, channel)
	return os.NewFile(uintptr(fd), "rfcomm:"+address), nil
}
