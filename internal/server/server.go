// Package server wires the ingest control surface, liveness check, and
// metrics exposition onto their respective HTTP listeners, and owns
// their start/shutdown lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"motherstream/internal/config"
	"motherstream/internal/svc/health"
)

// Server owns the control-port HTTP server (ingest control RPC +
// liveness) and the separate metrics-port HTTP server.
type Server struct {
	controlServer *http.Server
	metricsServer *http.Server
	healthSvc     *health.Service
}

// New builds a Server. control handles the ingest control RPC; /metrics
// serves the default Prometheus registry via promhttp.Handler.
func New(cfg *config.Config, control http.Handler) *Server {
	healthSvc := health.New()

	controlMux := http.NewServeMux()
	healthSvc.RegisterRoutes(controlMux)
	controlMux.Handle("/control", control)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	return &Server{
		controlServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.ControlPort),
			Handler: controlMux,
		},
		metricsServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler: metricsMux,
		},
		healthSvc: healthSvc,
	}
}

// SetReady flips the liveness flag once the rest of startup is done.
func (s *Server) SetReady(ready bool) {
	s.healthSvc.SetReady(ready)
}

// Start runs both HTTP servers until they error or are shut down. Each
// runs in its own goroutine; the first non-shutdown error is returned.
func (s *Server) Start() error {
	errs := make(chan error, 2)
	go func() { errs <- s.controlServer.ListenAndServe() }()
	go func() { errs <- s.metricsServer.ListenAndServe() }()

	if err := <-errs; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.healthSvc.SetReady(false)

	var firstErr error
	if err := s.controlServer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ShutdownWithTimeout stops the server with a fixed 5-second timeout.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
