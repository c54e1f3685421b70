// Package gateway exposes the feed over WebSocket and HTTP. Producers push
// progress events in; viewers receive the resulting view updates.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"toolfeed/internal/domain"
)

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error)

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Addr string
	// FramesPerSecond limits inbound event frames per connection. Zero or
	// negative disables the limit.
	FramesPerSecond float64
	Burst           int
	// SendBuffer is the outbound queue length per connection. Frames beyond
	// it are dropped for that client.
	SendBuffer int
}

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	id        uint64
	info      *ClientInfo
	ws        *websocket.Conn
	limiter   *rate.Limiter
	sendCh    chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *clientConn) close() {
	cc.closeOnce.Do(func() { close(cc.done) })
}

// Server is the WebSocket gateway.
type Server struct {
	bus        domain.EventBus
	clients    sync.Map // connID (uint64) -> *clientConn
	auth       Authenticator
	validator  *eventValidator
	opts       Options
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	logger     *slog.Logger
	httpSrv    *http.Server
	boundAddr  atomic.Value // string
	nextID     atomic.Uint64
	unsubAll   func()
	httpRoutes []httpRoute
	ingested   atomic.Int64
	rejected   atomic.Int64
}

type httpRoute struct {
	pattern string
	handler http.Handler
}

// NewServer creates a gateway server.
func NewServer(bus domain.EventBus, auth Authenticator, opts Options, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	v, err := newEventValidator()
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	return &Server{
		bus:       bus,
		auth:      auth,
		validator: v,
		opts:      opts,
		handlers:  make(map[string]RPCHandler),
		logger:    logger.With("component", "gateway"),
	}, nil
}

// RegisterHandler adds an RPC handler for the given method name.
// Safe to call concurrently with active connections.
func (s *Server) RegisterHandler(method string, handler RPCHandler) {
	s.handlersMu.Lock()
	s.handlers[method] = handler
	s.handlersMu.Unlock()
}

// RegisterHTTPRoute adds an HTTP handler to the gateway's mux.
// Must be called before Start.
func (s *Server) RegisterHTTPRoute(pattern string, handler http.Handler) {
	s.httpRoutes = append(s.httpRoutes, httpRoute{pattern: pattern, handler: handler})
}

// Start accepts connections until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	for _, route := range s.httpRoutes {
		mux.Handle(route.pattern, route.handler)
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr.Store(listener.Addr().String())
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	s.unsubAll = s.bus.SubscribeAll(s.forward)
	s.logger.Info("gateway started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// forward relays view.* events to viewers.
func (s *Server) forward(_ context.Context, event domain.Event) {
	if !strings.HasPrefix(string(event.Type), "view.") {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	frame := Frame{Type: FrameTypeEvent, Payload: payload}
	s.clients.Range(func(_, value any) bool {
		cc := value.(*clientConn)
		if !cc.info.Has(RoleViewer) {
			return true
		}
		select {
		case cc.sendCh <- frame:
		default:
			s.logger.Warn("dropped view event for slow client", "conn_id", cc.id, "event", string(event.Type))
		}
		return true
	})
}

// Stop gracefully shuts down the gateway server.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubAll != nil {
		s.unsubAll()
	}

	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.close()
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the actual address the server bound to. Empty before Start.
func (s *Server) BoundAddr() string {
	addr, _ := s.boundAddr.Load().(string)
	return addr
}

// Counters returns the number of ingested and rejected event frames.
func (s *Server) Counters() (ingested, rejected int64) {
	return s.ingested.Load(), s.rejected.Load()
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	clientInfo, err := s.auth.Authenticate(tokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
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
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	limit := rate.Inf
	if s.opts.FramesPerSecond > 0 {
		limit = rate.Limit(s.opts.FramesPerSecond)
	}
	cc := &clientConn{
		id:      s.nextID.Add(1),
		info:    clientInfo,
		ws:      ws,
		limiter: rate.NewLimiter(limit, s.opts.Burst),
		sendCh:  make(chan Frame, s.opts.SendBuffer),
		done:    make(chan struct{}),
	}
	s.clients.Store(cc.id, cc)
	s.logger.Info("gateway client connected", "conn_id", cc.id, "client", clientInfo.Name)

	go s.writeLoop(cc)
	s.readLoop(r.Context(), cc)

	cc.close()
	s.clients.Delete(cc.id)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("gateway client disconnected", "conn_id", cc.id)
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		if err := wsjson.Read(ctx, cc.ws, &frame); err != nil {
			return
		}

		switch frame.Type {
		case FrameTypeEvent:
			// Handled inline so one connection's events keep their order.
			s.ingest(ctx, cc, frame)
		case FrameTypeRequest:
			go s.dispatchRPC(ctx, cc, frame)
		default:
			s.send(cc, errorFrame(frame.ID, FrameTypeError,
				domain.NewDomainError("gateway.read", domain.ErrInvalidFrame, fmt.Sprintf("unexpected frame type %q", frame.Type))))
		}
	}
}

func (s *Server) ingest(ctx context.Context, cc *clientConn, frame Frame) {
	var err error
	switch {
	case !cc.info.Has(RoleProducer):
		err = domain.NewDomainError("gateway.ingest", domain.ErrAuthInvalid, "client may not publish events")
	case !cc.limiter.Allow():
		err = domain.NewDomainError("gateway.ingest", domain.ErrRateLimit, "")
	}
	if err == nil {
		var ev domain.ProgressEvent
		if ev, err = s.validator.Decode(frame.Payload); err == nil {
			s.ingested.Add(1)
			s.bus.Publish(ctx, domain.NewEvent(domain.EventProgressReceived, ev))
			return
		}
	}

	s.rejected.Add(1)
	s.logger.Debug("event frame rejected", "conn_id", cc.id, "error", err)
	s.send(cc, errorFrame(frame.ID, FrameTypeError, err))
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatchRPC(ctx context.Context, cc *clientConn, req Frame) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[req.Method]
	s.handlersMu.RUnlock()
	if !ok {
		s.send(cc, errorFrame(req.ID, FrameTypeResponse, domain.ErrRPCMethodNotFound))
		return
	}

	result, err := handler(ctx, cc.info, req.Payload)
	if err != nil {
		s.send(cc, errorFrame(req.ID, FrameTypeResponse, err))
		return
	}
	s.send(cc, Frame{Type: FrameTypeResponse, ID: req.ID, Payload: result})
}

func (s *Server) send(cc *clientConn, f Frame) {
	select {
	case cc.sendCh <- f:
	default:
		s.logger.Warn("dropped frame for slow client", "conn_id", cc.id, "type", string(f.Type), "frame_id", f.ID)
	}
}

// tokenFromRequest reads the token from the query string or a bearer header.
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
