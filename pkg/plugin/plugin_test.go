package plugin_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ardelias/blueberry/internal/bttest"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/plugin"
	"github.com/ardelias/blueberry/pkg/protocol"
)

var _ = Describe("Plugin", func() {
	var (
		ctx      context.Context
		provider *bttest.Provider
		p        *plugin.Plugin
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = bttest.NewProvider()
		p = plugin.New(provider, plugin.DefaultConfig())
		DeferCleanup(p.Close)
	})

	It("connects to a discovered device and exchanges bytes", func() {
		sub := p.Subscribe()
		defer sub.Close()

		Expect(p.StartScan()).To(Succeed())
		provider.Advertise(ble.Device{Address: "AA:BB:CC:DD:EE:01", Name: "Widget"})

		var e events.Event
		Eventually(sub.C).Should(Receive(&e))
		Expect(e.Data).To(Equal(device.Handle{Address: "AA:BB:CC:DD:EE:01", Name: "Widget"}))

		Expect(p.Connect(ctx, "aa:bb:cc:dd:ee:01")).To(BeTrue())
		Expect(p.IsConnected("AA:BB:CC:DD:EE:01")).To(BeTrue())
		Expect(p.Send(ctx, "AA:BB:CC:DD:EE:01", []byte{1, 2, 3})).To(Equal([]byte{1, 2, 3}))
		Expect(p.Disconnect("AA:BB:CC:DD:EE:01")).To(BeTrue())

		_, err := p.Send(ctx, "AA:BB:CC:DD:EE:01", []byte{1, 2, 3})
		Expect(err).To(MatchError(protocol.ErrSocketNotFound))
	})

	It("returns device not found for unknown devices", func() {
		_, err := p.Connect(ctx, "12:34:56:78:9A:BC")
		Expect(err).To(MatchError(protocol.ErrDeviceNotFound))
	})

	It("requires an address", func() {
		_, err := p.Connect(ctx, "")
		Expect(err).To(MatchError(protocol.ErrMissingParameter))
		_, err = p.IsConnected("")
		Expect(err).To(MatchError(protocol.ErrMissingParameter))
		_, err = p.Send(ctx, "", []byte{1})
		Expect(err).To(MatchError(protocol.ErrMissingParameter))
	})

	It("disconnects every session without an address", func() {
		provider.AddBonded(
			ble.Device{Address: "00:00:00:00:00:01"},
			ble.Device{Address: "00:00:00:00:00:02"},
		)
		Expect(p.Connect(ctx, "00:00:00:00:00:01")).To(BeTrue())
		Expect(p.Connect(ctx, "00:00:00:00:00:02")).To(BeTrue())

		Expect(p.Disconnect("")).To(BeTrue())
		Expect(p.Connections()).To(BeEmpty())
		Expect(p.IsConnected("00:00:00:00:00:01")).To(BeFalse())
		Expect(p.Disconnect("00:00:00:00:00:01")).To(BeFalse())
	})

	It("closes sessions when a scan starts", func() {
		provider.AddBonded(ble.Device{Address: "00:00:00:00:00:01"})
		Expect(p.Connect(ctx, "00:00:00:00:00:01")).To(BeTrue())

		Expect(p.StartScan()).To(Succeed())
		Expect(p.IsConnected("00:00:00:00:00:01")).To(BeFalse())
		Expect(p.StartScan()).To(MatchError(protocol.ErrAlreadyScanning))
		Expect(p.StopScan()).To(Succeed())
		Expect(p.StopScan()).To(MatchError(protocol.ErrNotScanning))
	})

	It("reports the platform", func() {
		version, err := p.PlatformVersion()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).NotTo(BeEmpty())
	})

	Context("without an adapter", func() {
		BeforeEach(func() {
			provider.SetAvailable(false)
		})

		It("fails every operation before validating arguments", func() {
			_, err := p.PlatformVersion()
			Expect(err).To(MatchError(protocol.ErrBluetoothUnavailable))
			Expect(p.StartScan()).To(MatchError(protocol.ErrBluetoothUnavailable))
			Expect(p.StopScan()).To(MatchError(protocol.ErrBluetoothUnavailable))
			_, err = p.Connect(ctx, "")
			Expect(err).To(MatchError(protocol.ErrBluetoothUnavailable))
			_, err = p.IsConnected("")
			Expect(err).To(MatchError(protocol.ErrBluetoothUnavailable))
			_, err = p.Disconnect("")
			Expect(err).To(MatchError(protocol.ErrBluetoothUnavailable))
			_, err = p.Send(ctx, "", nil)
			Expect(err).To(MatchError(protocol.ErrBluetoothUnavailable))
		})
	})

	It("releases the provider on close", func() {
		Expect(p.StartScan()).To(Succeed())
		Expect(p.Close()).To(Succeed())
		Expect(provider.Closed()).To(BeTrue())
		Expect(provider.Scanning()).To(BeFalse())
		Expect(p.Close()).To(Succeed())
	})
})
