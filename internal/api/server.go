package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/discovery"
	"github.com/nerrad567/streamdeckx/internal/dispatch"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/config"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/logging"
	"github.com/nerrad567/streamdeckx/internal/keys"
	"github.com/nerrad567/streamdeckx/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Rescanner runs a discovery pass on demand.
type Rescanner interface {
	Rescan(ctx context.Context) (discovery.Result, error)
}

// Executor runs a button's action sequence.
type Executor interface {
	Trigger(ctx context.Context, serial string, position int, source dispatch.Source) (dispatch.Execution, error)
}

// KeyCatalogue lists the injectable keys.
type KeyCatalogue interface {
	Groups() []keys.Group
}

// HealthChecker is implemented by infrastructure components reported on
// /api/v1/health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Decks    *deck.Registry
	Scanner  Rescanner
	Executor Executor
	Keys     KeyCatalogue

	// Gatherer backs /metrics. Registerer receives the HTTP request
	// collectors. Both are optional.
	Gatherer   prometheus.Gatherer
	Registerer prometheus.Registerer

	// Checks are reported by name on the health endpoint.
	Checks map[string]HealthChecker

	// Hub is shared with the telemetry publisher. One is created when nil.
	Hub     *Hub
	Version string
}

// Server is the HTTP configuration server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	decks    *deck.Registry
	scanner  Rescanner
	executor Executor
	keys     KeyCatalogue
	gatherer prometheus.Gatherer
	metrics  *httpMetrics
	checks   map[string]HealthChecker
	version  string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
	addr        chan string
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Decks == nil {
		return nil, fmt.Errorf("deck registry is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if deps.Keys == nil {
		return nil, fmt.Errorf("key catalogue is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		decks:    deps.Decks,
		scanner:  deps.Scanner,
		executor: deps.Executor,
		keys:     deps.Keys,
		gatherer: deps.Gatherer,
		checks:   deps.Checks,
		version:  deps.Version,
		addr:     make(chan string, 1),
	}

	if deps.Registerer != nil {
		m, err := newHTTPMetrics(deps.Registerer)
		if err != nil {
			return nil, err
		}
		s.metrics = m
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	s.hub.SetSnapshot(telemetry.ChannelAttached, s.openDecks)

	return s, nil
}

// openDecks lists the decks currently claimed for I/O.
func (s *Server) openDecks() any {
	views := []deck.View{}
	for _, d := range s.decks.List() {
		if d.State() == deck.StateOpen {
			views = append(views, d.Describe(false))
		}
	}
	return views
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler { return s.buildRouter() }

// Start begins listening for HTTP connections.
//
// The listener is bound before Start returns so port conflicts are
// reported to the caller. Requests are served on a background goroutine
// until Close is called.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.addr <- ln.Addr().String()

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address once Start has succeeded.
func (s *Server) Addr() string {
	a := <-s.addr
	s.addr <- a
	return a
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
