// Package api provides the HTTP ingestion gateway for AgroLink Core.
//
// It serves two audiences on one listener: field devices pushing
// telemetry and polling for pump commands, and the operator dashboard
// issuing commands and reading history. Device routes are open (device
// identity is checked against the registry, failing closed on unknown
// IDs); operator routes require a bearer token.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/agrolink-core/internal/command"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/config"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/database"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/logging"
	"github.com/nerrad567/agrolink-core/internal/registry"
	"github.com/nerrad567/agrolink-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Registry   *registry.Registry
	Ingestor   *telemetry.Ingestor
	Reconciler *telemetry.Reconciler
	Queue      *command.Queue
	LogRepo    command.LogRepository
	Readings   telemetry.ReadingsRepository
	DB         *database.DB

	// StorageTimeout bounds each storage-touching request. A deadline
	// hit is reported to the device as a transient error so its poll
	// loop retries.
	StorageTimeout time.Duration

	Version string
}

// Server is the HTTP gateway for AgroLink Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	secCfg         config.SecurityConfig
	logger         *logging.Logger
	registry       *registry.Registry
	ingestor       *telemetry.Ingestor
	reconciler     *telemetry.Reconciler
	queue          *command.Queue
	logRepo        command.LogRepository
	readings       telemetry.ReadingsRepository
	db             *database.DB
	storageTimeout time.Duration
	version        string
	metrics        *metrics
	server         *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("telemetry ingestor is required")
	}
	if deps.Reconciler == nil {
		return nil, fmt.Errorf("actuator reconciler is required")
	}
	if deps.Queue == nil {
		return nil, fmt.Errorf("command queue is required")
	}

	storageTimeout := deps.StorageTimeout
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}

	return &Server{
		cfg:            deps.Config,
		secCfg:         deps.Security,
		logger:         deps.Logger,
		registry:       deps.Registry,
		ingestor:       deps.Ingestor,
		reconciler:     deps.Reconciler,
		queue:          deps.Queue,
		logRepo:        deps.LogRepo,
		readings:       deps.Readings,
		db:             deps.DB,
		storageTimeout: storageTimeout,
		version:        deps.Version,
		metrics:        newMetrics(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       s.readTimeout(),
		ReadHeaderTimeout: s.readTimeout(),
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
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

// storageCtx derives a bounded context for storage-touching handlers.
func (s *Server) storageCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storageTimeout)
}

func (s *Server) readTimeout() time.Duration {
	return time.Duration(s.cfg.Timeouts.Read) * time.Second
}
