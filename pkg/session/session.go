package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
)

var errShortWrite = errors.New("session: short write")

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Session is an open RFCOMM connection to one device. The socket is owned exclusively by the
// Session.
type Session struct {
	address  string
	socket   ble.Socket
	openedAt time.Time

	ioLock    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newSession(address string, socket ble.Socket) *Session {
	return &Session{
		address:  address,
		socket:   socket,
		openedAt: time.Now(),
	}
}

func (s *Session) Address() string {
	return s.address
}

func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// close is idempotent. It does not wait for an in-flight exchange; closing the socket makes a
// blocked read return an error instead.
func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.socket.Close()
	})
	return s.closeErr
}

// exchange writes payload and returns the bytes available in a single read of up to bufSize
// bytes. There is no framing: a response split across several RFCOMM packets may be truncated.
// Exchanges on the same Session are serialized.
func (s *Session) exchange(payload []byte, bufSize int, timeout time.Duration) ([]byte, error) {
	s.ioLock.Lock()
	defer s.ioLock.Unlock()

	if timeout > 0 {
		if d, ok := s.socket.(deadliner); ok {
			if err := d.SetDeadline(time.Now().Add(timeout)); err != nil {
				log.Warning("[%s] Cannot set socket deadline: %s", s.address, err)
			} else {
				defer d.SetDeadline(time.Time{})
			}
		} else {
			log.Debug("[%s] Socket does not support deadlines, sending without timeout", s.address)
		}
	}

	log.Debug("[%s] TX: %02x", s.address, payload)
	n, err := s.socket.Write(payload)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if n != len(payload) {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", errShortWrite, n, len(payload))
	}

	buffer := make([]byte, bufSize)
	n, err = s.socket.Read(buffer)
	if n == 0 && err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	buffer = buffer[:n]
	log.Debug("[%s] RX: %02x", s.address, buffer)
	return buffer, nil
}
