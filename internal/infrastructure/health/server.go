package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"trendgrid/internal/core"
	"trendgrid/pkg/telemetry"
)

const shutdownGrace = 5 * time.Second

// Server exposes liveness, readiness and component status over HTTP
type Server struct {
	port   int
	hm     *HealthManager
	logger core.ILogger
}

// NewServer creates a health server on port
func NewServer(port int, hm *HealthManager, logger core.ILogger) *Server {
	return &Server{
		port:   port,
		hm:     hm,
		logger: logger.WithField("component", "health_server"),
	}
}

// Handler returns the health mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.hm.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics := telemetry.GetGlobalMetrics()
	grids := make(map[string]telemetry.GridLevels)
	for _, sym := range core.AllSymbols {
		if lv, ok := metrics.GridLevelsFor(sym.Pair()); ok {
			grids[sym.Pair()] = lv
		}
	}

	healthy := s.hm.IsHealthy()
	resp := map[string]interface{}{
		"status":     "ok",
		"ready":      s.hm.Ready(),
		"uptime_sec": int64(s.hm.Uptime().Seconds()),
		"components": s.hm.GetStatus(),
		"grids":      grids,
		"time":       time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		resp["status"] = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("health server listen: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting health server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Stopping health server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
