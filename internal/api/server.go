package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/weatherstation-core/internal/history"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/config"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/logging"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/metrics"
	"github.com/nerrad567/weatherstation-core/internal/station"
	"github.com/nerrad567/weatherstation-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// TelemetryService is the part of *telemetry.Service the API drives.
type TelemetryService interface {
	State() telemetry.State
	Stats() telemetry.Stats
	Latest() (telemetry.Snapshot, bool)
	LastFault() (telemetry.Event, bool)
	ErrorReport() string
	ResetError()
	Enable(ctx context.Context) error
	Disable() error
	ClearFault() error
}

// HistoryReader lists recorded cycles and faults.
type HistoryReader interface {
	ListCycles(ctx context.Context, limit int) ([]history.Cycle, error)
	ListFaults(ctx context.Context, limit int) ([]history.Fault, error)
}

// ConnectionChecker reports broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Service TelemetryService
	History HistoryReader    // optional
	Metrics *metrics.Metrics // optional; /metrics is not mounted without it
	Schema  *station.Schema
	Topics  *station.TopicMap
	Hub     *Hub              // if set, the server uses this hub instead of creating its own
	MQTT    ConnectionChecker // optional
	DB      DBStatser         // optional
	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	service  TelemetryService
	history  HistoryReader
	metrics  *metrics.Metrics
	schema   *station.Schema
	topics   *station.TopicMap
	mqtt     ConnectionChecker
	db       DBStatser
	version  string
	started  time.Time
	server   *http.Server
	listener net.Listener
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates a new API server. It is not listening until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("telemetry service is required")
	}
	if deps.Schema == nil {
		deps.Schema = station.DefaultSchema()
	}
	if deps.Topics == nil {
		deps.Topics = station.DefaultTopicMap()
	}

	return &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		service: deps.Service,
		history: deps.History,
		metrics: deps.Metrics,
		schema:  deps.Schema,
		topics:  deps.Topics,
		mqtt:    deps.MQTT,
		db:      deps.DB,
		version: deps.Version,
		started: time.Now(),
		hub:     deps.Hub,
	}, nil
}

// Hub returns the WebSocket hub, creating it if needed. The telemetry
// service broadcasts through it.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start binds the listener and serves in the background until Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.Hub().Run(srvCtx)

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
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

// HealthCheck verifies the API server is running.
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
