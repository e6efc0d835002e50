package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/docnav/internal/api"
	"github.com/dgallion1/docnav/internal/catalog"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/stats"
	"github.com/dgallion1/docnav/internal/validate"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register projects.
	cat := catalog.New()
	if cfg.Root != "" {
		targets, err := catalog.Discover(cfg.Root)
		if err != nil {
			log.Error("discovering projects", "root", cfg.Root, "error", err)
			os.Exit(1)
		}
		for _, t := range targets {
			cat.AddTarget(t)
		}
		log.Info("discovered projects", "root", cfg.Root, "count", len(targets))
	}
	var remote *loader.HTTPSource
	if cfg.RemoteURL != "" {
		remote = loader.NewHTTPSource(cfg.RemoteURL,
			loader.WithAPIKey(cfg.RemoteAPIKey),
			loader.WithRetry(uint(cfg.HTTPRetries), cfg.HTTPRetryWait),
		)
		cat.AddTarget(catalog.Target{Name: cfg.RemoteName, Source: remote})
	}

	// Initialize pipeline.
	rec := metrics.New()
	st := stats.NewLoads(cfg.StatsWindow)
	orch := catalog.NewOrchestrator(cat, catalog.Options{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.MaxQueueSize,
		JobTTL:    cfg.JobTTL,
		Validate:  validate.Options{Deep: cfg.ValidateDeep, Pages: cfg.ValidatePages},
	}, st, rec, log)
	orch.Start(ctx)
	orch.LoadAll("startup")

	var watcher *catalog.Watcher
	if cfg.Watch && cfg.Root != "" {
		w, err := catalog.NewWatcher(cat, orch, cfg.WatchDebounce, log)
		if err != nil {
			log.Warn("file watching disabled", "error", err)
		} else if err := w.Start(ctx); err != nil {
			log.Warn("file watching disabled", "error", err)
			w.Stop()
		} else {
			watcher = w
		}
	}

	// Initialize HTTP server.
	srv := api.NewServer(orch, st, rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		if watcher != nil {
			watcher.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if remote != nil {
			remote.Close()
		}
	}()

	log.Info("starting docnav", "port", cfg.Port, "projects", len(cat.Targets()))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
