// Package api provides a read-only HTTP API for observing a running
// simulation and the runs stored in the database.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talgya/guard/internal/engine"
	"github.com/talgya/guard/internal/persistence"
)

// Server serves simulation state over HTTP.
type Server struct {
	Observer *Observer       // Live run; nil when only stored runs are served
	DB       *persistence.DB // Stored runs; nil disables the run endpoints
	Limiter  *RateLimiter    // Optional per-IP limit
	Addr     string
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/polities", s.handlePolities)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}/stats", s.handleRunStats)
	mux.HandleFunc("GET /api/v1/runs/{id}/polity-sizes", s.handleRunPolitySizes)

	var handler http.Handler = mux
	if s.Limiter != nil {
		handler = s.Limiter.Middleware(handler)
	}
	return corsMiddleware(handler)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{Addr: s.Addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", s.Addr, "live", s.Observer != nil, "runs", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// GUARD_CORS_ORIGINS is a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("GUARD_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.Observer == nil {
		http.Error(w, "no live run", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{
		"stats":        s.Observer.Stats(),
		"size_records": s.Observer.SizeRecords(),
	})
}

func (s *Server) handlePolities(w http.ResponseWriter, r *http.Request) {
	if s.Observer == nil {
		http.Error(w, "no live run", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.Observer.Polities())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.DB.StepStats(r.PathValue("id"))
	if err != nil {
		slog.Error("stats query failed", "run", r.PathValue("id"), "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []engine.Stats{}
	}
	writeJSON(w, stats)
}

func (s *Server) handleRunPolitySizes(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	sizes, err := s.DB.PolitySizes(r.PathValue("id"))
	if err != nil {
		slog.Error("polity sizes query failed", "run", r.PathValue("id"), "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if sizes == nil {
		sizes = []int{}
	}
	writeJSON(w, sizes)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
