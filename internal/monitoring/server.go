package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server exposes /health and /metrics
type Server struct {
	router  *mux.Router
	handler http.Handler
	http    *http.Server
	logger  *zap.Logger
}

// ServerOption customizes a Server
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger  *zap.Logger
	origins []string
}

// WithServerLogger sets the server logger
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = logger }
}

// WithCORSOrigins allows browser dashboards on the given origins to read the endpoints
func WithCORSOrigins(origins ...string) ServerOption {
	return func(o *serverOptions) { o.origins = origins }
}

// NewServer creates the monitoring server bound to addr
func NewServer(addr string, health *HealthChecker, opts ...ServerOption) *Server {
	o := serverOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		router: mux.NewRouter(),
		logger: o.logger.With(zap.String("component", "monitoring")),
	}
	s.router.Handle("/health", health).Methods(http.MethodGet)
	s.router.Handle("/metrics", NewMetricsHandler()).Methods(http.MethodGet)

	s.handler = s.router
	if len(o.origins) > 0 {
		s.handler = cors.New(cors.Options{
			AllowedOrigins: o.origins,
			AllowedMethods: []string{http.MethodGet},
		}).Handler(s.router)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitoring server starting", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("monitoring server stopping")
		return s.http.Shutdown(shutdownCtx)
	}
}
