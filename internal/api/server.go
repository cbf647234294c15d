package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/catalog"
	"github.com/nerrad567/taller-core/internal/customer"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/infrastructure/config"
	"github.com/nerrad567/taller-core/internal/infrastructure/logging"
	"github.com/nerrad567/taller-core/internal/inventory"
	"github.com/nerrad567/taller-core/internal/job"
	"github.com/nerrad567/taller-core/internal/worker"
	"github.com/nerrad567/taller-core/internal/workshop"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by the database and the optional sinks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Auth      *auth.Service
	Resolver  *auth.Resolver
	Users     auth.UserRepository
	Workshops workshop.Repository
	Customers customer.Repository
	Catalog   catalog.Repository
	Workers   worker.Repository
	Inventory inventory.Repository
	Jobs      job.Repository
	Audit     audit.Repository // optional

	// Events receives every mutation. A bus is created when nil; the
	// server always registers its WebSocket hub on it.
	Events *events.Bus

	// Health is checked by GET /health, keyed by component name.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for Taller Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	version string

	auth      *auth.Service
	resolver  *auth.Resolver
	users     auth.UserRepository
	workshops workshop.Repository
	customers customer.Repository
	catalog   catalog.Repository
	workers   worker.Repository
	inventory inventory.Repository
	jobs      job.Repository
	auditRepo audit.Repository
	auditCh   chan *audit.AuditLog
	events    *events.Bus
	health    map[string]HealthChecker

	hub     *Hub
	tickets *ticketStore

	handlerOnce sync.Once
	handler     http.Handler

	server *http.Server
	cancel context.CancelFunc // cancels background goroutines on Close()
	bgDone sync.WaitGroup
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Auth == nil || deps.Resolver == nil || deps.Users == nil:
		return nil, errors.New("auth service, resolver and user repository are required")
	case deps.Workshops == nil || deps.Customers == nil || deps.Catalog == nil ||
		deps.Workers == nil || deps.Inventory == nil || deps.Jobs == nil:
		return nil, errors.New("all domain repositories are required")
	}

	bus := deps.Events
	if bus == nil {
		bus = events.NewBus(deps.Logger.Logger)
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		version:   deps.Version,
		auth:      deps.Auth,
		resolver:  deps.Resolver,
		users:     deps.Users,
		workshops: deps.Workshops,
		customers: deps.Customers,
		catalog:   deps.Catalog,
		workers:   deps.Workers,
		inventory: deps.Inventory,
		jobs:      deps.Jobs,
		auditRepo: deps.Audit,
		events:    bus,
		health:    deps.Health,
		hub:       NewHub(deps.WS, deps.Logger),
		tickets:   newTicketStore(),
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.AuditLog, auditChanSize)
	}

	bus.Register("websocket", s.hub)

	return s, nil
}

// Handler returns the HTTP handler with every route and middleware.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.buildRouter()
	})
	return s.handler
}

// Start launches the background workers and begins listening for HTTP
// connections in a goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.startBackground(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
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

// startBackground runs the hub, the ticket sweeper and the audit writer
// until Close is called or ctx ends.
func (s *Server) startBackground(ctx context.Context) {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.bgDone.Add(2)
	go func() {
		defer s.bgDone.Done()
		s.hub.Run(srvCtx)
	}()
	go func() {
		defer s.bgDone.Done()
		s.cleanTicketsLoop(srvCtx)
	}()

	if s.auditCh != nil {
		s.bgDone.Add(1)
		go func() {
			defer s.bgDone.Done()
			s.drainAuditLog(srvCtx)
		}()
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// stops the background workers, flushing queued audit entries.
func (s *Server) Close() error {
	var shutdownErr error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("shutting down API server: %w", err)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.bgDone.Wait()

	return shutdownErr
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}

	return nil
}
