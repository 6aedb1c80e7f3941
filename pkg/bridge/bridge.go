package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"nhooyr.io/websocket"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/channel"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/protocol"
)

const (
	// DefaultTimeout bounds a method call. It does not apply to send, which only honors the
	// plugin's SendTimeout.
	DefaultTimeout      = 30 * time.Second
	maxRequestBodyBytes = 1 << 20
	eventWriteTimeout   = 5 * time.Second
	methodsPrefix       = "/api/1/methods/"
	eventsPath          = "/api/1/events"
)

// Subscriber provides the event stream forwarded to websocket clients.
type Subscriber interface {
	Subscribe(names ...string) *events.Subscription
}

type client struct {
	ws     *websocket.Conn
	remote string
}

// Server serves method calls and events over HTTP.
type Server struct {
	Timeout time.Duration

	dispatcher *channel.Dispatcher
	subscriber Subscriber
	secret     []byte

	clients  *xsync.MapOf[string, *client]
	requests *xsync.Counter
}

// New creates a Server. Authentication is disabled if secret is empty.
func New(dispatcher *channel.Dispatcher, subscriber Subscriber, secret []byte) *Server {
	return &Server{
		Timeout:    DefaultTimeout,
		dispatcher: dispatcher,
		subscriber: subscriber,
		secret:     secret,
		clients:    xsync.NewMapOf[string, *client](),
		requests:   xsync.NewCounter(),
	}
}

// Response is the body of a failed request.
type Response struct {
	Error      string `json:"error"`
	ErrDetails string `json:"error_description"`
}

// statusCode maps a method-channel error to an HTTP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, protocol.ErrMissingParameter), errors.Is(err, protocol.ErrInvalidParameter),
		errors.Is(err, protocol.ErrDeviceNotFound), errors.Is(err, protocol.ErrSocketNotFound):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrNotImplemented):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrAlreadyScanning), errors.Is(err, protocol.ErrNotScanning):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrBluetoothUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrSendError), errors.Is(err, protocol.ErrScanFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	reply := Response{Error: http.StatusText(code)}
	if err != nil {
		reply.ErrDetails = err.Error()
		var protocolErr protocol.Error
		if errors.As(err, &protocolErr) {
			reply.Error = protocolErr.Code()
		}
	}

	jsonBytes, err := json.Marshal(&reply)
	if err != nil {
		log.Error("Error serializing reply %+v: %s", &reply, err)
		code = http.StatusInternalServerError
		jsonBytes = []byte("{\"error\": \"internal server error\"}")
	}
	if code != http.StatusOK {
		log.Error("Returning error %s: %s", http.StatusText(code), reply.ErrDetails)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	jsonBytes = append(jsonBytes, '\n')
	w.Write(jsonBytes)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Info("Received %s request for %s", req.Method, req.URL.Path)
	s.requests.Inc()

	if err := s.authorize(req); err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}

	switch {
	case strings.HasPrefix(req.URL.Path, methodsPrefix):
		method := strings.TrimPrefix(req.URL.Path, methodsPrefix)
		if method == "" || strings.Contains(method, "/") {
			writeJSONError(w, http.StatusNotFound, nil)
			return
		}
		if req.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, nil)
			return
		}
		s.handleMethod(w, req, method)
	case req.URL.Path == eventsPath:
		if req.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, nil)
			return
		}
		s.handleEvents(w, req)
	default:
		writeJSONError(w, http.StatusNotFound, nil)
	}
}

func (s *Server) handleMethod(w http.ResponseWriter, req *http.Request, method string) {
	defer req.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodyBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("could not read request body: %s", err))
		return
	}
	if len(body) > maxRequestBodyBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, nil)
		return
	}

	args := &structpb.Struct{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := protojson.Unmarshal(body, args); err != nil {
			err = fmt.Errorf("%w: could not parse JSON body: %s", protocol.ErrInvalidParameter, err)
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
	}

	ctx := req.Context()
	if s.Timeout > 0 && method != channel.MethodSend {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	result, err := s.dispatcher.Dispatch(ctx, &channel.MethodCall{Method: method, Arguments: args})
	if err != nil {
		writeJSONError(w, statusCode(err), err)
		return
	}

	reply := &structpb.Struct{Fields: map[string]*structpb.Value{"result": result}}
	jsonBytes, err := protojson.Marshal(reply)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(jsonBytes, '\n'))
}

func encodeEvent(e events.Event) ([]byte, error) {
	call, err := channel.EventCall(e)
	if err != nil {
		return nil, err
	}
	frame := &structpb.Struct{Fields: map[string]*structpb.Value{
		"method":    structpb.NewStringValue(call.Method),
		"arguments": structpb.NewStructValue(call.Arguments),
	}}
	return protojson.Marshal(frame)
}

func (s *Server) handleEvents(w http.ResponseWriter, req *http.Request) {
	ws, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		log.Warning("Websocket upgrade failed: %s", err)
		return
	}

	sub := s.subscriber.Subscribe(events.ScanResult)
	defer sub.Close()

	id := uuid.NewString()
	s.clients.Store(id, &client{ws: ws, remote: req.RemoteAddr})
	defer s.clients.Delete(id)
	log.Info("Event client %s connected from %s", id, req.RemoteAddr)

	// Clients only listen; CloseRead handles control frames and reports disconnects.
	ctx := ws.CloseRead(req.Context())
	for {
		select {
		case <-ctx.Done():
			log.Info("Event client %s disconnected", id)
			return
		case e, ok := <-sub.C:
			if !ok {
				ws.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			message, err := encodeEvent(e)
			if err != nil {
				log.Warning("Dropping event %s: %s", e.Name, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err = ws.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Info("Event client %s write failed: %s", id, err)
				ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// Subscribers returns the number of connected event clients.
func (s *Server) Subscribers() int {
	return s.clients.Size()
}

// Requests returns the number of HTTP requests served.
func (s *Server) Requests() int64 {
	return s.requests.Value()
}

// Close disconnects every event client.
func (s *Server) Close() {
	s.clients.Range(func(id string, c *client) bool {
		log.Debug("Closing event client %s (%s)", id, c.remote)
		c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		return true
	})
}
