// Package server exposes a Query Service over the workbench REST contract.
//
// Any backend.QueryService can be served, which lets `sqlbench serve` put a
// direct database connection behind the same API the REST client speaks.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"sqlbench/cli/internal/backend"
	"sqlbench/cli/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for the server.
type Config struct {
	Service backend.QueryService
	// Addr is the listen address, e.g. "127.0.0.1:8000".
	Addr   string
	Logger *pterm.Logger
	// ShutdownTimeout bounds graceful shutdown; zero means five seconds.
	ShutdownTimeout time.Duration
}

// Server serves the REST contract.
type Server struct {
	service         backend.QueryService
	addr            string
	logger          *pterm.Logger
	shutdownTimeout time.Duration
}

// New creates a server instance.
func New(cfg Config) *Server {
	s := &Server{
		service:         cfg.Service,
		addr:            cfg.Addr,
		logger:          cfg.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 5 * time.Second
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	endpoints := backend.DefaultEndpoints()
	r.Get(endpoints.Health, s.health)
	r.Get(endpoints.ConnectionTest, s.connectionTest)
	r.Post(endpoints.Execute, s.execute)
	r.Get(endpoints.Schema+"{database}", s.schema)
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("query service listening", s.logger.Args("addr", "http://"+ln.Addr().String()))

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down query service")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", s.logger.Args(
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"session", r.Header.Get("X-Session-ID"),
		))
	})
}
