// Package health serves the liveness probes, metrics and the read API.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vodeneev/propline/internal/pkg/health/handlers"
)

// NewRouter mounts every endpoint. metrics serves /metrics and may be nil.
func NewRouter(h *handlers.Handlers, metrics http.Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Query-Duration", "X-Lines-Count"},
		MaxAge:         300,
	}))

	// Health endpoints
	r.Get("/ping", handlers.HandlePing)
	r.Get("/health", handlers.HandleHealth)

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Get("/stats", h.HandleStats)

	r.Get("/lines", h.HandleLines)
	r.Get("/lines/evaluated", h.HandleEvaluated)
	r.Get("/counts", h.HandleCounts)
	r.Get("/games/relevant", h.HandleRelevantGames)
	r.Get("/games/active", h.HandleActiveGames)
	r.Get("/unidentified", h.HandleUnidentified)

	r.Post("/entities", h.HandleEntities)
	r.Post("/parse", h.HandleParse)
	return r
}

// Run serves handler on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, service string, handler http.Handler, readHeaderTimeout time.Duration) error {
	if readHeaderTimeout <= 0 {
		return fmt.Errorf("read_header_timeout must be specified in config")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
	return nil
}

func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", fmt.Errorf("port must be greater than 0")
	}
	return fmt.Sprintf(":%d", port), nil
}
