// Package health exposes a small HTTP surface for liveness checks and
// cycle inspection.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/harbibet/harbi/internal/pkg/report"
)

// Store holds the most recent cycle report for the /report endpoint.
type Store struct {
	mu     sync.RWMutex
	latest *report.CycleReport
}

// SetReport publishes the latest cycle report.
func (s *Store) SetReport(r *report.CycleReport) {
	s.mu.Lock()
	s.latest = r
	s.mu.Unlock()
}

// Run starts the server and shuts it down when ctx is cancelled.
func Run(ctx context.Context, addr string, service string, store *Store) {
	mux := http.NewServeMux()

	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok", "service": service})
	})

	// Latest cycle: correlated events, opportunities and per-source
	// statuses, for external renderers and manual inspection.
	mux.HandleFunc("/report", func(w http.ResponseWriter, _ *http.Request) {
		store.mu.RLock()
		latest := store.latest
		store.mu.RUnlock()
		if latest == nil {
			http.Error(w, `{"error":"no cycle completed yet"}`, http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, latest)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Health server: failed to encode response", "error", err)
	}
}
