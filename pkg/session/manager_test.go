package session_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/ardelias/blueberry/internal/bttest"
	"github.com/ardelias/blueberry/mocks"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/protocol"
	"github.com/ardelias/blueberry/pkg/session"
)

const (
	bondedAddr  = "00:11:22:33:44:55"
	scannedAddr = "AA:BB:CC:DD:EE:FF"
	unknownAddr = "12:34:56:78:9A:BC"
)

var _ = Describe("Manager", func() {
	var (
		ctx      context.Context
		provider *bttest.Provider
		scanned  map[string]device.Handle
		m        *session.Manager
	)

	resolver := session.ResolverFunc(func(address string) (device.Handle, bool) {
		h, ok := scanned[address]
		return h, ok
	})

	BeforeEach(func() {
		ctx = context.Background()
		provider = bttest.NewProvider()
		provider.AddBonded(ble.Device{Address: bondedAddr, Name: "printer"})
		scanned = map[string]device.Handle{
			scannedAddr: {Address: scannedAddr, Name: "scale"},
		}
		m = session.NewManager(provider, resolver, session.Config{})
	})

	Context("connect", func() {
		It("connects to a bonded device", func() {
			ok, err := m.Connect(ctx, bondedAddr)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(m.IsConnected(bondedAddr)).To(BeTrue())
		})

		It("connects to a scanned device", func() {
			ok, err := m.Connect(ctx, scannedAddr)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(m.Addresses()).To(Equal([]string{scannedAddr}))
		})

		It("falls back to scan results when bonded devices cannot be listed", func() {
			provider.SetBondedError(errors.New("dbus down"))
			ok, err := m.Connect(ctx, scannedAddr)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("returns device not found for unknown addresses", func() {
			ok, err := m.Connect(ctx, unknownAddr)
			Expect(err).To(MatchError(protocol.ErrDeviceNotFound))
			Expect(ok).To(BeFalse())
			Expect(m.IsConnected(unknownAddr)).To(BeFalse())
		})

		It("returns device not found without a resolver", func() {
			m = session.NewManager(provider, nil, session.Config{})
			_, err := m.Connect(ctx, scannedAddr)
			Expect(err).To(MatchError(protocol.ErrDeviceNotFound))
		})

		It("returns false when the connection fails", func() {
			provider.SetDialError(errors.New("host is down"))
			ok, err := m.Connect(ctx, bondedAddr)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(m.IsConnected(bondedAddr)).To(BeFalse())
		})

		It("replaces and closes an existing session", func() {
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())

			sockets := provider.Sockets(bondedAddr)
			Expect(sockets).To(HaveLen(2))
			Expect(sockets[0].IsClosed()).To(BeTrue())
			Expect(sockets[1].IsClosed()).To(BeFalse())
			Expect(m.Addresses()).To(HaveLen(1))
		})

		It("gives up when the connect timeout expires", func() {
			release := provider.HoldDials()
			defer release()
			m = session.NewManager(provider, resolver, session.Config{ConnectTimeout: 20 * time.Millisecond})

			ok, err := m.Connect(ctx, bondedAddr)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("does not block other operations while dialing", func() {
			release := provider.HoldDials()
			done := make(chan bool)
			go func() {
				defer GinkgoRecover()
				ok, err := m.Connect(ctx, bondedAddr)
				Expect(err).NotTo(HaveOccurred())
				done <- ok
			}()

			Consistently(func() bool { return m.IsConnected(bondedAddr) }, 50*time.Millisecond).Should(BeFalse())
			Expect(m.Disconnect(scannedAddr)).To(BeFalse())
			release()
			Eventually(done).Should(Receive(BeTrue()))
		})
	})

	Context("disconnect", func() {
		It("closes the session", func() {
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
			Expect(m.Disconnect(bondedAddr)).To(BeTrue())
			Expect(m.IsConnected(bondedAddr)).To(BeFalse())
			Expect(provider.Sockets(bondedAddr)[0].IsClosed()).To(BeTrue())
		})

		It("returns false without a session", func() {
			Expect(m.Disconnect(bondedAddr)).To(BeFalse())
		})

		It("returns false the second time", func() {
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
			Expect(m.Disconnect(bondedAddr)).To(BeTrue())
			Expect(m.Disconnect(bondedAddr)).To(BeFalse())
		})

		It("closes every session", func() {
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
			Expect(m.Connect(ctx, scannedAddr)).To(BeTrue())
			m.DisconnectAll()
			Expect(m.Addresses()).To(BeEmpty())
			Expect(provider.Sockets(bondedAddr)[0].IsClosed()).To(BeTrue())
			Expect(provider.Sockets(scannedAddr)[0].IsClosed()).To(BeTrue())
		})
	})

	Context("send", func() {
		It("returns the response", func() {
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
			response, err := m.Send(ctx, bondedAddr, []byte{0x1b, 0x40})
			Expect(err).NotTo(HaveOccurred())
			Expect(response).To(Equal([]byte{0x1b, 0x40}))
			Expect(provider.Sockets(bondedAddr)[0].Written()).To(Equal([][]byte{{0x1b, 0x40}}))
		})

		It("returns socket not found without a session", func() {
			_, err := m.Send(ctx, bondedAddr, []byte{1})
			Expect(err).To(MatchError(protocol.ErrSocketNotFound))
		})

		It("truncates responses to the read buffer size", func() {
			m = session.NewManager(provider, resolver, session.Config{ReadBufferSize: 2})
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
			response, err := m.Send(ctx, bondedAddr, []byte{1, 2, 3, 4})
			Expect(err).NotTo(HaveOccurred())
			Expect(response).To(Equal([]byte{1, 2}))
		})

		It("fails with a send error when the session is closed mid-read", func() {
			provider.SetResponder(bttest.Silent)
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())

			errs := make(chan error)
			go func() {
				_, err := m.Send(ctx, bondedAddr, []byte{1})
				errs <- err
			}()
			Eventually(func() int { return len(provider.Sockets(bondedAddr)[0].Written()) }).Should(Equal(1))
			Expect(m.Disconnect(bondedAddr)).To(BeTrue())

			var err error
			Eventually(errs).Should(Receive(&err))
			Expect(err).To(MatchError(protocol.ErrSendError))
			Expect(protocol.MayHaveSucceeded(err)).To(BeTrue())
		})
	})

	Context("with a mock provider", func() {
		var (
			ctrl     *gomock.Controller
			mockProv *mocks.Provider
			socket   *mocks.Socket
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			mockProv = mocks.NewProvider(ctrl)
			socket = mocks.NewSocket(ctrl)
			m = session.NewManager(mockProv, resolver, session.Config{})
			DeferCleanup(func() {
				ctrl.Finish()
			})

			mockProv.EXPECT().BondedDevices().Return([]ble.Device{{Address: bondedAddr}}, nil)
			mockProv.EXPECT().Dial(gomock.Any(), bondedAddr).Return(socket, nil)
			Expect(m.Connect(ctx, bondedAddr)).To(BeTrue())
		})

		It("keeps the session after a write error", func() {
			socket.EXPECT().Write([]byte{9}).Return(0, errors.New("broken pipe"))
			_, err := m.Send(ctx, bondedAddr, []byte{9})
			Expect(err).To(MatchError(protocol.ErrSendError))
			Expect(m.IsConnected(bondedAddr)).To(BeTrue())
		})

		It("reports short writes", func() {
			socket.EXPECT().Write([]byte{1, 2}).Return(1, nil)
			_, err := m.Send(ctx, bondedAddr, []byte{1, 2})
			Expect(err).To(MatchError(protocol.ErrSendError))
		})

		It("returns partial data read alongside an error", func() {
			socket.EXPECT().Write([]byte{1}).Return(1, nil)
			socket.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
				return copy(p, []byte{0xaa}), errors.New("EOF")
			})
			response, err := m.Send(ctx, bondedAddr, []byte{1})
			Expect(err).NotTo(HaveOccurred())
			Expect(response).To(Equal([]byte{0xaa}))
		})

		It("swallows close errors on disconnect", func() {
			socket.EXPECT().Close().Return(errors.New("already closed"))
			Expect(m.Disconnect(bondedAddr)).To(BeTrue())
		})
	})
})
