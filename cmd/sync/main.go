package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/contentsync/internal/app"
	"github.com/timmy/contentsync/internal/config"
	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/service"
	"github.com/timmy/contentsync/internal/source"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "contentsync-sync",
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	sourceID := flag.String("source-id", "", "ID of the content source to sync")
	cursor := flag.String("cursor", "", "Start from this pagination cursor")
	resume := flag.Bool("resume", false, "Resume from the source's last persisted cursor")
	limit := flag.Int("limit", 0, "Page size requested from the adapter (0 uses sync.page_size)")
	since := flag.String("since", "", "Only fetch items updated at or after this RFC3339 time")
	process := flag.Bool("process", false, "Enrich pending items of the source after syncing")
	concurrency := flag.Int("concurrency", 0, "Enrichment concurrency (0 uses sync.batch_concurrency)")
	flag.Parse()

	if *sourceID == "" {
		appLogger.Fatal("-source-id is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	cfg.Log.ServiceName = "contentsync-sync"
	appLogger = app.NewLogger(&cfg.Log)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	opts := source.FetchOptions{Cursor: *cursor, Limit: *limit}
	if opts.Limit <= 0 {
		opts.Limit = cfg.Sync.PageSize
	}
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			appLogger.WithError(err).WithField("since", *since).Fatal("Invalid -since value")
		}
		opts.Since = &t
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize services")
	}
	defer services.Close()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if *resume && opts.Cursor == "" {
		src, err := services.Content.GetSource(ctx, *sourceID)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to load source")
		}
		opts.Cursor = src.LastSyncCursor
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldSourceID: *sourceID,
		"cursor":             opts.Cursor,
		"limit":              opts.Limit,
		"process":            *process,
	}).Info("Starting sync")

	progress, err := services.Syncer.SyncSource(ctx, *sourceID, opts)
	if err != nil {
		entry := appLogger.WithError(err)
		if progress != nil {
			entry = entry.WithFields(logger.Fields{
				logger.FieldStatus: progress.Status,
				"processed":        progress.ItemsProcessed,
			})
		}
		entry.Fatal("Sync failed")
	}
	appLogger.WithFields(logger.Fields{
		logger.FieldStatus: progress.Status,
		"processed":        progress.ItemsProcessed,
		logger.FieldErrors: len(progress.Errors),
	}).Info("Sync completed")

	if !*process || ctx.Err() != nil {
		return
	}

	ids, err := services.Content.ListItemIDsByStatus(ctx, *sourceID, domain.ProcessingStatusPending, 0)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to list pending items")
	}
	result := services.Processor.ProcessItemsBatch(ctx, ids, service.BatchOptions{Concurrency: *concurrency})
	appLogger.WithFields(logger.Fields{
		"total":     len(ids),
		"processed": result.Processed,
		"failed":    result.Failed,
	}).Info("Enrichment completed")
}
