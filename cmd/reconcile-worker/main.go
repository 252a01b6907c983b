package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ettoiadev/williamdiskpizza/internal/config"
	"github.com/ettoiadev/williamdiskpizza/internal/services/blob"
	"github.com/ettoiadev/williamdiskpizza/internal/services/media"
	"github.com/ettoiadev/williamdiskpizza/internal/storage/postgres"
)

// ReconcileWorker sweeps stored objects that have no media row. Orphans
// appear when an insert fails after the object was already written and
// the compensating delete also fails.
type ReconcileWorker struct {
	uploads  *media.Service
	interval time.Duration
	logger   *slog.Logger
}

func NewReconcileWorker(uploads *media.Service, interval time.Duration) *ReconcileWorker {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &ReconcileWorker{
		uploads:  uploads,
		interval: interval,
		logger:   logger,
	}
}

func (rw *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("Reconcile worker started",
		"interval", rw.interval.String())

	// Run once immediately on startup
	rw.sweepOrphans(ctx)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("Reconcile worker shutting down")
			return
		case <-ticker.C:
			rw.sweepOrphans(ctx)
		}
	}
}

func (rw *ReconcileWorker) sweepOrphans(ctx context.Context) {
	startTime := time.Now()

	rw.logger.Info("Starting orphaned object sweep")

	count, err := rw.uploads.ReconcileOrphans(ctx)
	if err != nil {
		rw.logger.Error("Failed to sweep orphaned objects",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	duration := time.Since(startTime)

	rw.logger.Info("Completed orphaned object sweep",
		"objects_removed", count,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String())
}

func main() {
	// Load config
	cfg := config.MustLoad()

	// Initialize database connection
	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// Object storage
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	slog.Info("Connected to object storage")

	uploads := media.NewService(blobs, storage, cfg.Upload)

	// Create worker with 1-hour interval
	worker := NewReconcileWorker(uploads, time.Hour)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	// Start the worker
	worker.Start(ctx)

	slog.Info("Reconcile worker stopped")
}
