/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
)

// DefaultAddr is the default listen address for the metrics endpoint.
const DefaultAddr = ":8080"

// Server exposes the manager's health, readiness, and Prometheus
// metrics endpoints. It serves no mutating API; the rate limiter only
// guards against scrape storms.
type Server struct {
	httpServer  *http.Server
	rateLimiter *rate.Limiter

	mu    sync.RWMutex
	ready bool
}

// New creates a metrics server listening on addr. An empty addr means
// DefaultAddr.
func New(addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		rateLimiter: rate.NewLimiter(100, 200),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", s.withMiddleware(promhttp.Handler().ServeHTTP))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  defaults.ServerReadTimeout,
		WriteTimeout: defaults.ServerWriteTimeout,
		IdleTimeout:  defaults.ServerIdleTimeout,
	}
	return s
}

// SetReady marks the server as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.SetReady(true)
	slog.InfoContext(ctx, "starting metrics server", "addr", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, defaults.ServerShutdownTimeout)
	defer cancel()

	slog.Info("shutting down metrics server")
	return s.httpServer.Shutdown(shutdownCtx)
}
