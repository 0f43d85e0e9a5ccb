// Package app wires all Captor subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the widget and API endpoints until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject test doubles via functional options (WithUploader,
// WithJournal). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mediasmith/captor/internal/config"
	"github.com/mediasmith/captor/internal/health"
	"github.com/mediasmith/captor/internal/journal"
	"github.com/mediasmith/captor/internal/observe"
	"github.com/mediasmith/captor/internal/session"
	"github.com/mediasmith/captor/internal/upload"
)

// shutdownGrace bounds the HTTP server drain during Shutdown.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes and serves the recording widget API.
type App struct {
	cfg      *config.Config
	uploader session.Uploader
	journal  *journal.Journal
	hub      *hub
	srv      *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithUploader injects an uploader instead of creating an [upload.Pipeline]
// from the config.
func WithUploader(u session.Uploader) Option {
	return func(a *App) { a.uploader = u }
}

// WithJournal injects an attempt journal instead of opening one at the
// configured path.
func WithJournal(j *journal.Journal) Option {
	return func(a *App) { a.journal = j }
}

// New creates an App by wiring all subsystems together: the upload
// pipeline, the attempt journal, the widget hub, and the HTTP server with
// its health, metrics, and API routes.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.uploader == nil {
		a.uploader = upload.New(upload.Config{
			Endpoint: cfg.Upload.Endpoint,
			SessKey:  cfg.Upload.SessKey,
			Timeout:  time.Duration(cfg.Upload.TimeoutSeconds) * time.Second,
		})
	}

	if a.journal == nil && cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open journal: %w", err)
		}
		a.journal = j
		a.closers = append(a.closers, j.Close)
	}

	a.hub = newHub(cfg, a.uploader, a.journal)
	a.closers = append(a.closers, func() error {
		a.hub.closeAll()
		return nil
	})

	a.srv = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: a.routes(),
	}

	return a, nil
}

// routes assembles the HTTP mux: widget WebSocket endpoint, session control
// API, attempt history, health probes, and the Prometheus scrape endpoint.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /widget", a.hub.handleWidget)
	mux.HandleFunc("GET /api/widgets/{widget}", a.hub.handleWidgetState)
	mux.HandleFunc("POST /api/widgets/{widget}/sessions/{session}/{action}", a.hub.handleSessionAction)
	mux.HandleFunc("GET /api/attempts", a.handleAttempts)

	checkers := []health.Checker{}
	if a.journal != nil {
		checkers = append(checkers, health.Checker{Name: "journal", Check: a.journal.Ping})
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(observe.DefaultMetrics())(mux)
}

// handleAttempts serves the most recent journal rows as JSON.
func (a *App) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if a.journal == nil {
		http.Error(w, `{"error":"journal disabled"}`, http.StatusNotFound)
		return
	}
	attempts, err := a.journal.Recent(r.Context(), 50)
	if err != nil {
		slog.Error("attempt history query failed", "err", err)
		http.Error(w, `{"error":"journal unavailable"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.srv.Shutdown(drainCtx)
	})

	return g.Wait()
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
