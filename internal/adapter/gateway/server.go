// Package gateway exposes a central over WebSocket: driver events are
// forwarded to every authenticated client, and RPC requests are turned
// into driver operations.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"blecentral/internal/domain"
	"blecentral/internal/infra/middleware"
	"blecentral/internal/infra/tracer"
)

// Central is what the gateway needs from a central: the driver operations,
// a catch-all subscription for forwarding and the cached adapter state.
type Central interface {
	domain.Driver
	SubscribeAll(l domain.Listener) func()
	State() domain.AdapterState
	Initialized() bool
}

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error)

// Config holds the listener and rate limit settings.
type Config struct {
	Addr           string
	RequestsPerMin int
	Burst          int
	TrustedProxies []string
}

const sendQueueSize = 64

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	id        uint64
	info      *ClientInfo
	ws        *websocket.Conn
	sendCh    chan Frame
	limiter   *rate.Limiter
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *clientConn) close() { cc.closeOnce.Do(func() { close(cc.done) }) }

// Server is the WebSocket gateway.
type Server struct {
	central    Central
	auth       Authenticator
	cfg        Config
	logger     *slog.Logger
	metrics    *Metrics
	clients    sync.Map // connID (uint64) -> *clientConn
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	schemas    *schemaSet
	httpRoutes []httpRoute
	nextID     atomic.Uint64
	started    time.Time

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
	unsubAll  func()
	stopOnce  sync.Once
}

type httpRoute struct {
	pattern string
	handler http.HandlerFunc
}

// NewServer creates a gateway server.
func NewServer(central Central, auth Authenticator, cfg Config, logger *slog.Logger) *Server {
	return &Server{
		central:  central,
		auth:     auth,
		cfg:      cfg,
		logger:   logger,
		metrics:  &Metrics{},
		handlers: make(map[string]RPCHandler),
		schemas:  mustCompileSchemas(),
		started:  time.Now(),
	}
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics { return s.metrics }

// RegisterHandler adds an RPC handler for the given method name.
func (s *Server) RegisterHandler(method string, handler RPCHandler) {
	s.handlersMu.Lock()
	s.handlers[method] = handler
	s.handlersMu.Unlock()
}

// Methods returns the registered RPC method names.
func (s *Server) Methods() []string {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	out := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		out = append(out, m)
	}
	return out
}

// RegisterHTTPRoute adds an HTTP handler to the gateway's mux. Must be
// called before Start.
func (s *Server) RegisterHTTPRoute(pattern string, handler http.HandlerFunc) {
	s.httpRoutes = append(s.httpRoutes, httpRoute{pattern: pattern, handler: handler})
}

// Start accepts connections until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	for _, route := range s.httpRoutes {
		mux.HandleFunc(route.pattern, route.handler)
	}
	handler := middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.RateLimit(ctx, middleware.RateLimitConfig{
			RequestsPerMin: s.cfg.RequestsPerMin,
			BurstSize:      s.cfg.Burst,
			TrustedProxies: s.cfg.TrustedProxies,
		}),
	)

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}

	s.mu.Lock()
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	s.unsubAll = s.central.SubscribeAll(s.forward)
	srv := s.httpSrv
	s.mu.Unlock()

	s.logger.Info("gateway started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// forward fans a driver event out to every client.
func (s *Server) forward(_ context.Context, ev domain.Event) {
	payload, err := json.Marshal(eventPayload(ev))
	if err != nil {
		s.logger.Warn("gateway: event not encodable", "event", string(ev.Type), "error", err)
		return
	}
	frame := Frame{Type: FrameTypeEvent, Payload: payload}
	s.clients.Range(func(_, value any) bool {
		cc := value.(*clientConn)
		select {
		case cc.sendCh <- frame:
			s.metrics.EventsForwarded.Add(1)
		default:
			s.metrics.EventsDropped.Add(1)
			s.logger.Warn("gateway: dropped event for slow client", "conn_id", cc.id, "event", string(ev.Type))
		}
		return true
	})
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		unsub, srv := s.unsubAll, s.httpSrv
		s.mu.Unlock()

		if unsub != nil {
			unsub()
		}
		s.clients.Range(func(key, value any) bool {
			cc := value.(*clientConn)
			cc.close()
			_ = cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
			s.clients.Delete(key)
			return true
		})
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err = srv.Shutdown(shutdownCtx)
		}
		s.logger.Info("gateway stopped")
	})
	return err
}

// BoundAddr returns the address the server bound to, or "" before Start.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	clientInfo, err := s.auth.Authenticate(requestToken(r))
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, err)
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

	cc := &clientConn{
		id:      s.nextID.Add(1),
		info:    clientInfo,
		ws:      ws,
		sendCh:  make(chan Frame, sendQueueSize),
		limiter: middleware.NewLimiter(s.cfg.RequestsPerMin, s.cfg.Burst),
		done:    make(chan struct{}),
	}
	s.clients.Store(cc.id, cc)
	s.metrics.Clients.Add(1)
	s.logger.Info("gateway client connected", "conn_id", cc.id, "client", clientInfo.Name)

	go s.writeLoop(cc)
	s.readLoop(r.Context(), cc)

	cc.close()
	s.clients.Delete(cc.id)
	s.metrics.Clients.Add(-1)
	_ = ws.Close(websocket.StatusNormalClosure, "")
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
		if frame.Type != FrameTypeRequest {
			continue
		}
		if !cc.limiter.Allow() {
			s.metrics.RPCErrors.Add(1)
			s.sendResponse(cc, frame.ID, nil, domain.ErrRateLimit)
			continue
		}

		go s.dispatchRPC(ctx, cc, frame)
	}
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
	ctx, span := tracer.StartSpan(ctx, "gateway.rpc",
		trace.WithAttributes(
			tracer.StringAttr("rpc.method", req.Method),
			tracer.StringAttr("client", cc.info.Name),
		))

	result, err := s.call(ctx, cc.info, req)
	tracer.Finish(span, err)

	s.metrics.RPCCalls.Add(1)
	if err != nil {
		s.metrics.RPCErrors.Add(1)
		s.logger.Debug("gateway rpc failed", "method", req.Method, "conn_id", cc.id, "error", err)
	}
	s.sendResponse(cc, req.ID, result, err)
}

func (s *Server) call(ctx context.Context, client *ClientInfo, req Frame) (json.RawMessage, error) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[req.Method]
	s.handlersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrRPCMethodNotFound, req.Method)
	}
	if err := s.schemas.validate(req.Method, req.Payload); err != nil {
		return nil, err
	}
	return handler(ctx, client, req.Payload)
}

func (s *Server) sendResponse(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		Payload: result,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = domain.ErrorCodeOf(err)
	}
	select {
	case cc.sendCh <- resp:
	default:
		s.logger.Warn("gateway: dropped RPC response for slow client", "frame_id", id)
	}
}
