// Package server exposes the published engine state over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/selfwatch/internal/host"
	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves snapshot JSON and Prometheus metrics from a Publisher.
type Server struct {
	pub        *host.Publisher
	registry   *prometheus.Registry
	logger     *slog.Logger
	httpServer *http.Server
	mu         sync.Mutex
	addr       string
}

// NewServer creates a server reading from pub. A nil logger discards.
func NewServer(pub *host.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		pub:      pub,
		registry: newRegistry(pub),
		logger:   logger,
	}
}

// Addr returns the address the server is listening on.
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/cascade", s.handleCascade)
	mux.HandleFunc("GET /api/invariants", s.handleInvariants)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe listens on addr ("host:0" picks a free port) and blocks
// until ctx is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.pub.Latest()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ready":  ok,
		"tick":   snap.Tick,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.pub.Latest()
	if !ok {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCascade(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.pub.Latest()
	if !ok {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap.Cascade)
}

func (s *Server) handleInvariants(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.pub.Latest()
	if !ok {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap.Invariants)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.pub.History(limit))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.pub.Events(limit))
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
