package channel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardelias/blueberry/internal/bttest"
	"github.com/ardelias/blueberry/pkg/channel"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/plugin"
	"github.com/ardelias/blueberry/pkg/protocol"
)

const addr = "00:11:22:33:44:55"

var _ = Describe("Dispatcher", func() {
	var (
		ctx      context.Context
		provider *bttest.Provider
		d        *channel.Dispatcher
	)

	call := func(method string, args map[string]any) (*structpb.Value, error) {
		c, err := channel.NewMethodCall(method, args)
		Expect(err).NotTo(HaveOccurred())
		return d.Dispatch(ctx, c)
	}

	BeforeEach(func() {
		ctx = context.Background()
		provider = bttest.NewProvider()
		provider.AddBonded(ble.Device{Address: addr, Name: "printer"})
		p := plugin.New(provider, plugin.DefaultConfig())
		DeferCleanup(p.Close)
		d = channel.NewDispatcher(p)
	})

	It("reports the platform version", func() {
		v, err := call(channel.MethodPlatformVersion, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetStringValue()).NotTo(BeEmpty())
	})

	It("controls scanning", func() {
		v, err := call(channel.MethodStartScan, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetKind()).To(BeAssignableToTypeOf(&structpb.Value_NullValue{}))

		_, err = call(channel.MethodStartScan, nil)
		Expect(err).To(MatchError(protocol.ErrAlreadyScanning))
		Expect(protocol.Code(err)).To(Equal("bluetooth_already_scanning"))

		_, err = call(channel.MethodStopScan, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = call(channel.MethodStopScan, nil)
		Expect(protocol.Code(err)).To(Equal("bluetooth_not_scanning"))
	})

	It("connects, sends and disconnects", func() {
		v, err := call(channel.MethodConnect, map[string]any{"address": addr})
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetBoolValue()).To(BeTrue())

		v, err = call(channel.MethodIsConnected, map[string]any{"id": addr})
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetBoolValue()).To(BeTrue())

		v, err = call(channel.MethodSend, map[string]any{"address": addr, "bytes": []any{0, 127, 255}})
		Expect(err).NotTo(HaveOccurred())
		Expect(v.AsInterface()).To(Equal([]any{0.0, 127.0, 255.0}))

		v, err = call(channel.MethodDisconnect, map[string]any{"address": addr})
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetBoolValue()).To(BeTrue())

		v, err = call(channel.MethodDisconnect, map[string]any{"address": addr})
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetBoolValue()).To(BeFalse())
	})

	It("disconnects everything without an address", func() {
		_, err := call(channel.MethodConnect, map[string]any{"address": addr})
		Expect(err).NotTo(HaveOccurred())

		v, err := call(channel.MethodDisconnect, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetBoolValue()).To(BeTrue())

		v, err = call(channel.MethodIsConnected, map[string]any{"address": addr})
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetBoolValue()).To(BeFalse())
	})

	DescribeTable("argument validation",
		func(method string, args map[string]any, code string) {
			_, err := call(method, args)
			Expect(protocol.Code(err)).To(Equal(code))
		},
		Entry("connect without address", channel.MethodConnect, nil, "missing_parameter"),
		Entry("connect with null address", channel.MethodConnect, map[string]any{"address": nil}, "missing_parameter"),
		Entry("connect with numeric address", channel.MethodConnect, map[string]any{"address": 5}, "invalid_parameter"),
		Entry("connect to unknown device", channel.MethodConnect, map[string]any{"address": "12:34:56:78:9A:BC"}, "bluetooth_device_not_found"),
		Entry("isConnected without address", channel.MethodIsConnected, nil, "missing_parameter"),
		Entry("send without address", channel.MethodSend, map[string]any{"bytes": []any{1}}, "missing_parameter"),
		Entry("send without bytes", channel.MethodSend, map[string]any{"address": addr}, "missing_parameter"),
		Entry("send with a string", channel.MethodSend, map[string]any{"address": addr, "bytes": "hi"}, "invalid_parameter"),
		Entry("send with a large value", channel.MethodSend, map[string]any{"address": addr, "bytes": []any{256}}, "invalid_parameter"),
		Entry("send with a negative value", channel.MethodSend, map[string]any{"address": addr, "bytes": []any{-1}}, "invalid_parameter"),
		Entry("send with a fraction", channel.MethodSend, map[string]any{"address": addr, "bytes": []any{1.5}}, "invalid_parameter"),
		Entry("send without a session", channel.MethodSend, map[string]any{"address": addr, "bytes": []any{1}}, "bluetooth_socket_not_found"),
		Entry("unknown method", "pair", nil, "not_implemented"),
	)

	Context("without an adapter", func() {
		It("fails before validating anything", func() {
			provider.SetAvailable(false)
			for _, method := range append(channel.Methods, "pair") {
				_, err := call(method, nil)
				Expect(err).To(MatchError(protocol.ErrBluetoothUnavailable), method)
			}
		})
	})
})

var _ = Describe("EventCall", func() {
	It("encodes scan results", func() {
		c, err := channel.EventCall(events.Event{
			Name: events.ScanResult,
			Data: device.Handle{Address: addr, Name: "printer"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Method).To(Equal("scanResult"))
		Expect(c.Arguments.AsMap()).To(Equal(map[string]any{"address": addr, "name": "printer"}))
	})

	It("encodes unnamed devices with a null name", func() {
		c, err := channel.EventCall(events.Event{Name: events.ScanResult, Data: device.Handle{Address: addr}})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Arguments.AsMap()).To(Equal(map[string]any{"address": addr, "name": nil}))
	})

	It("rejects unknown payloads", func() {
		_, err := channel.EventCall(events.Event{Name: "other", Data: 42})
		Expect(err).To(HaveOccurred())
	})
})
