package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
	"mercator-hq/warden/pkg/evidence/query"
	"mercator-hq/warden/pkg/extension"
	"mercator-hq/warden/pkg/intercept"
	"mercator-hq/warden/pkg/security/auth"
	"mercator-hq/warden/pkg/telemetry/health"
)

// BindingLister reports the installed bindings. *intercept.Engine
// implements it.
type BindingLister interface {
	Bindings() []intercept.BindingInfo
}

// Deps are the components the HTTP surface exposes. Nil members disable
// their routes.
type Deps struct {
	Engine     BindingLister
	Evidence   evidence.Storage
	Limits     query.Limits
	Extensions *extension.Registry
	Metrics    http.Handler
	Tracer     trace.Tracer

	// Tokens authenticates /v1 requests when server.auth is enabled.
	Tokens auth.TokenStore

	Logger     *slog.Logger

	Version   string
	Commit    string
	BuildTime string
}

// Server is the Warden HTTP surface: health probes, metrics and read-only
// views of bindings, decisions and the extension descriptor.
type Server struct {
	config  *config.ServerConfig
	deps    Deps
	checker *health.Checker
	logger  *slog.Logger
	handler http.Handler

	mu           sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	isRunning    bool
	shutdownOnce sync.Once
}

// New creates a server. Routes are built immediately, so Handler can be
// used without Start.
func New(cfg *config.ServerConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("warden")
	}
	if deps.Limits.Max == 0 {
		deps.Limits = query.LimitsFrom(config.QueryConfig{})
	}

	s := &Server{
		config:  cfg,
		deps:    deps,
		checker: health.New(0),
		logger:  deps.Logger.With("component", "server"),
	}
	s.registerChecks()
	s.handler = s.setupRoutes()
	return s
}

func (s *Server) registerChecks() {
	if store := s.deps.Evidence; store != nil {
		s.checker.Register("evidence", store.Ping)
	}
	if engine := s.deps.Engine; engine != nil {
		s.checker.Register("bindings", func(context.Context) error {
			if len(engine.Bindings()) == 0 {
				return errors.New("no operations wrapped")
			}
			return nil
		})
	}
}

// Checker returns the readiness checker so callers can add checks.
func (s *Server) Checker() *health.Checker {
	return s.checker
}

// Handler returns the complete handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully stops the server within ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv, running := s.httpServer, s.isRunning
		s.mu.RUnlock()
		if !running || srv == nil {
			return
		}

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("HTTP server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	health.Mount(mux, s.checker, s.deps.Version, s.deps.Commit, s.deps.BuildTime)

	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}

	api := http.NewServeMux()
	if s.deps.Engine != nil {
		api.HandleFunc("GET /v1/bindings", s.handleBindings)
	}
	if s.deps.Evidence != nil {
		api.HandleFunc("GET /v1/decisions", s.handleDecisions)
	}
	if s.deps.Extensions != nil {
		api.HandleFunc("GET /v1/extension", s.handleExtensions)
		api.HandleFunc("GET /v1/extension/{id}", s.handleExtension)
	}
	mux.Handle("/v1/", s.protect(api))

	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = tracingMiddleware(s.deps.Tracer, handler)
	return handler
}

// protect requires a token on h when auth is enabled.
func (s *Server) protect(h http.Handler) http.Handler {
	if !s.config.Auth.Enabled {
		return h
	}
	store := s.deps.Tokens
	if store == nil {
		store = auth.FromConfig(s.config.Auth)
	}
	return auth.NewMiddleware(store, nil, s.logger).Handle(h)
}

// requestTimeout is applied to evidence queries.
const requestTimeout = 10 * time.Second
