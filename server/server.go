package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-http-utils/etag"
	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/auth"
	"github.com/sardine-ai/provider-registry/registry"
)

// MinRefreshInterval is the lowest refresh interval NewServer accepts.
const MinRefreshInterval = 5 * time.Second

type Server struct {
	Registry        *registry.Registry
	RefreshInterval time.Duration
	AuthKey         string       // X-API-KEY for the raw source endpoints
	Issuer          *auth.Issuer // bearer tokens for /api/v2, disabled when nil
	Version         string
	cancel          context.CancelFunc
	metrics         *metrics
}

// NewServer refreshes every source once and starts the periodic refresh.
func NewServer(ctx context.Context, reg *registry.Registry, refreshInterval time.Duration) *Server {
	if refreshInterval < MinRefreshInterval {
		logrus.Warn("refresh interval too low, setting it to 5 seconds")
		refreshInterval = MinRefreshInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	server := &Server{
		Registry:        reg,
		RefreshInterval: refreshInterval,
		Version:         "dev",
		cancel:          cancel,
		metrics:         newMetrics(),
	}
	server.refreshOnce(ctx)
	go server.refresh(ctx)
	return server
}

func (s *Server) refresh(ctx context.Context) {
	ticker := time.NewTicker(s.RefreshInterval)
	for {
		select {
		case <-ticker.C:
			s.refreshOnce(ctx)
		case <-ctx.Done():
			ticker.Stop()
			return
		}
	}
}

func (s *Server) refreshOnce(ctx context.Context) {
	err := s.Registry.Refresh(ctx)
	if err != nil {
		logrus.WithError(err).Error("error refreshing registry")
	}
	s.metrics.observeRefresh(s.Registry)
}

// Stop ends the periodic refresh.
func (s *Server) Stop() {
	s.cancel()
}

// Handler returns the full handler chain: auth, correlation ids, metrics and ETags.
func (s *Server) Handler() http.Handler {
	handler := s.CreateHandlers()
	if s.AuthKey != "" {
		handler = Auth(handler, s.AuthKey)
	}
	handler = s.metrics.instrument(handler)
	handler = CorrelationID(handler)
	return etag.Handler(handler, false)
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	logrus.WithField("addr", addr).Info("Starting server")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logrus.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Stop()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// CreateHandlers registers every endpoint on a new mux.
func (s *Server) CreateHandlers() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", s.metrics.handler())

	mux.HandleFunc("POST /auth/token", s.handleToken)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v2/providers", s.handleListProviders)
	api.HandleFunc("GET /api/v2/providers/{package}", s.handleGetProvider)
	api.HandleFunc("GET /api/v2/connection-types", s.handleConnectionTypes)
	api.HandleFunc("GET /api/v2/connection-types/{type}", s.handleConnectionType)
	api.HandleFunc("GET /api/v2/executors", s.handleExecutors)
	api.HandleFunc("GET /api/v2/config", s.handleConfig)
	api.HandleFunc("GET /api/v2/config/{section}/{option}", s.handleConfigOption)
	api.HandleFunc("GET /api/v2/conflicts", s.handleConflicts)
	api.HandleFunc("GET /api/v2/version", s.handleVersion)
	mux.Handle("/api/v2/", s.bearer(api))

	// Without an API key the raw bundles fall under the same bearer rule as
	// the API; they carry sensitive defaults too.
	var raw http.Handler = http.HandlerFunc(s.handleRawSource)
	if s.AuthKey == "" {
		raw = s.bearer(raw)
	}
	mux.Handle("GET /{source}", raw)
	return mux
}
