package bridge_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"nhooyr.io/websocket"

	"github.com/ardelias/blueberry/internal/bttest"
	"github.com/ardelias/blueberry/pkg/bridge"
	"github.com/ardelias/blueberry/pkg/channel"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/plugin"
)

const addr = "00:11:22:33:44:55"

var _ = Describe("Server", func() {
	var (
		provider *bttest.Provider
		p        *plugin.Plugin
		s        *bridge.Server
		secret   []byte
	)

	sendRequest := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		s.ServeHTTP(rr, req)
		return rr
	}

	JustBeforeEach(func() {
		s = bridge.New(channel.NewDispatcher(p), p, secret)
	})

	BeforeEach(func() {
		secret = nil
		provider = bttest.NewProvider()
		provider.AddBonded(ble.Device{Address: addr, Name: "printer"})
		p = plugin.New(provider, plugin.DefaultConfig())
		DeferCleanup(p.Close)
	})

	Context("method calls", func() {
		It("connects and sends", func() {
			rr := sendRequest(http.MethodPost, "/api/1/methods/connect", "", `{"address": "00:11:22:33:44:55"}`)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"result": true}`))

			rr = sendRequest(http.MethodPost, "/api/1/methods/send", "", `{"id": "00:11:22:33:44:55", "bytes": [27, 64]}`)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"result": [27, 64]}`))
			Expect(rr.Header().Get("Content-Type")).To(Equal("application/json"))
		})

		It("accepts an empty body", func() {
			rr := sendRequest(http.MethodPost, "/api/1/methods/startScan", "", "")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"result": null}`))
		})

		DescribeTable("errors",
			func(method, body string, status int, code string) {
				rr := sendRequest(http.MethodPost, "/api/1/methods/"+method, "", body)
				Expect(rr.Code).To(Equal(status))
				Expect(rr.Body.String()).To(ContainSubstring(`"error":"` + code + `"`))
			},
			Entry("missing address", "connect", `{}`, http.StatusBadRequest, "missing_parameter"),
			Entry("malformed body", "connect", `{"address":`, http.StatusBadRequest, "invalid_parameter"),
			Entry("unknown device", "connect", `{"address": "12:34:56:78:9A:BC"}`, http.StatusBadRequest, "bluetooth_device_not_found"),
			Entry("no session", "send", `{"address": "00:11:22:33:44:55", "bytes": [1]}`, http.StatusBadRequest, "bluetooth_socket_not_found"),
			Entry("unknown method", "pair", `{}`, http.StatusNotFound, "not_implemented"),
			Entry("stop while idle", "stopScan", ``, http.StatusConflict, "bluetooth_not_scanning"),
		)

		It("reports an unavailable adapter", func() {
			provider.SetAvailable(false)
			rr := sendRequest(http.MethodPost, "/api/1/methods/connect", "", `{}`)
			Expect(rr.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rr.Body.String()).To(ContainSubstring(`"error":"bluetooth_unavailable"`))
		})

		It("rejects other verbs and paths", func() {
			Expect(sendRequest(http.MethodGet, "/api/1/methods/connect", "", "").Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(sendRequest(http.MethodPost, "/api/1/methods/", "", "").Code).To(Equal(http.StatusNotFound))
			Expect(sendRequest(http.MethodPost, "/api/1/devices", "", "").Code).To(Equal(http.StatusNotFound))
			Expect(s.Requests()).To(BeEquivalentTo(3))
		})
	})

	Context("with a secret", func() {
		BeforeEach(func() {
			secret = []byte("correct horse battery staple")
		})

		It("accepts signed tokens", func() {
			token, err := bridge.NewToken(secret, "tester")
			Expect(err).NotTo(HaveOccurred())
			rr := sendRequest(http.MethodPost, "/api/1/methods/isConnected", token, `{"address": "00:11:22:33:44:55"}`)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"result": false}`))
		})

		It("rejects missing tokens", func() {
			rr := sendRequest(http.MethodPost, "/api/1/methods/isConnected", "", `{}`)
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects tokens signed with another secret", func() {
			token, err := bridge.NewToken([]byte("wrong"), "tester")
			Expect(err).NotTo(HaveOccurred())
			rr := sendRequest(http.MethodPost, "/api/1/methods/isConnected", token, `{}`)
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects tokens for another audience", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Audience: jwt.ClaimStrings{"example.com"},
			}).SignedString(secret)
			Expect(err).NotTo(HaveOccurred())
			rr := sendRequest(http.MethodPost, "/api/1/methods/isConnected", token, `{}`)
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("event stream", func() {
		var (
			server *httptest.Server
			ctx    context.Context
		)

		JustBeforeEach(func() {
			server = httptest.NewServer(s)
			DeferCleanup(server.Close)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			DeferCleanup(cancel)
		})

		It("streams scan results", func() {
			ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/api/1/events", nil)
			Expect(err).NotTo(HaveOccurred())
			defer ws.Close(websocket.StatusNormalClosure, "")
			Eventually(s.Subscribers).Should(Equal(1))

			Expect(p.StartScan()).To(Succeed())
			provider.Advertise(ble.Device{Address: "AA:BB:CC:DD:EE:FF", Name: "Widget"})

			typ, message, err := ws.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(typ).To(Equal(websocket.MessageText))
			Expect(message).To(MatchJSON(`{"method": "scanResult", "arguments": {"name": "Widget", "address": "AA:BB:CC:DD:EE:FF"}}`))
		})

		It("closes streams when the plugin closes", func() {
			ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/api/1/events", nil)
			Expect(err).NotTo(HaveOccurred())
			defer ws.Close(websocket.StatusNormalClosure, "")
			Eventually(s.Subscribers).Should(Equal(1))

			Expect(p.Close()).To(Succeed())
			_, _, err = ws.Read(ctx)
			Expect(websocket.CloseStatus(err)).To(Equal(websocket.StatusGoingAway))
			Eventually(s.Subscribers).Should(Equal(0))
		})
	})
})
