// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/lowcode-console/internal/console"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Console *console.Handler
}

// NewRouter registers every route and wraps the router in middleware.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(Recovery, Logging)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Console != nil {
		cfg.Console.RegisterRoutes(r)
	}
	return r
}

// Run starts the HTTP server and shuts it down when ctx ends.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(ctx, "server: shutdown", "err", err)
		}
	}()

	slog.InfoContext(ctx, "server: listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
