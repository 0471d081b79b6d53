// Package app assembles the long-lived components shared by the HTTP server
// and the sync CLI.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/contentsync/internal/config"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/repository"
	"github.com/timmy/contentsync/internal/service"
	"github.com/timmy/contentsync/internal/source"
	"github.com/timmy/contentsync/internal/source/github"
	"github.com/timmy/contentsync/internal/source/notion"
	"github.com/timmy/contentsync/internal/source/slack"
	"github.com/timmy/contentsync/internal/source/video"
	"github.com/timmy/contentsync/internal/storage"
)

// App holds the wired services.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *gorm.DB
	Content   *repository.ContentRepository
	Registry  *source.Registry
	Syncer    *service.ContentProcessor
	Processor *service.ItemProcessor
	Guard     *service.SyncGuard

	qdrant *repository.QdrantRepository
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.LogConfig) *logger.Logger {
	return logger.NewFromEnv(&logger.EnvConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		ServiceName: cfg.ServiceName,
		LogFile:     cfg.File,
		LogFileOnly: cfg.FileOnly,
		MaxSize:     cfg.MaxSize,
		MaxBackups:  cfg.MaxBackups,
		MaxAge:      cfg.MaxAge,
		Compress:    cfg.Compress,
	})
}

// New opens the database and builds every service described by cfg.
// Parameters:
//   - ctx: used for startup calls such as collection creation.
//   - cfg: loaded configuration.
//   - log: process logger.
// Returns:
//   - *App: wired components; call Close when done.
//   - error: non-nil if a required backend cannot be initialized.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Content: repository.NewContentRepository(db),
		Guard:   service.NewSyncGuard(),
	}

	a.Registry = NewRegistry(cfg, db)

	var archive *service.RawArchive
	if cfg.Sync.ArchiveRaw {
		objectStorage, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		archive = service.NewRawArchive(objectStorage, cfg.Storage.Prefix)
		log.WithField("bucket", cfg.Storage.Bucket).Info("Raw archive enabled")
	}

	a.Syncer = service.NewContentProcessor(a.Content, a.Registry, log, &service.ContentProcessorConfig{
		Progress: service.NewProgressTracker(),
		Archive:  archive,
		Runs:     a.Content,
	})

	procCfg := &service.ItemProcessorConfig{
		SummaryThreshold:   cfg.Sync.SummaryThreshold,
		SearchTextMaxRunes: cfg.Sync.SearchTextMaxRunes,
		Concurrency:        cfg.Sync.BatchConcurrency,
	}
	if cfg.Summarizer.Enabled {
		procCfg.Summarizer = service.NewChatSummarizer(&service.ChatSummarizerConfig{
			Model:   cfg.Summarizer.Model,
			APIKey:  cfg.Summarizer.APIKey,
			BaseURL: cfg.Summarizer.BaseURL,
			Timeout: cfg.Summarizer.Timeout,
		})
		log.WithField("model", cfg.Summarizer.Model).Info("Summarizer enabled")
	}
	if cfg.Embedding.Enabled {
		procCfg.Embedder = service.NewEmbeddingService(&service.EmbeddingConfig{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout,
		})
		log.WithField("model", cfg.Embedding.Model).Info("Embedding enabled")
	}
	if cfg.Qdrant.Enabled {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Qdrant repository: %w", err)
		}
		a.qdrant = qdrantRepo
		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		procCfg.Index = qdrantRepo
	}
	a.Processor = service.NewItemProcessor(a.Content, log, procCfg)

	return a, nil
}

// NewRegistry registers every built-in adapter.
func NewRegistry(cfg *config.Config, db *gorm.DB) *source.Registry {
	registry := source.NewRegistry()
	registry.Register(video.NewAdapter(repository.NewVideoRepository(db)))
	registry.Register(notion.NewAdapter(notion.Options{
		BaseURL:           cfg.Notion.BaseURL,
		Version:           cfg.Notion.Version,
		Timeout:           cfg.Notion.Timeout,
		RequestsPerSecond: cfg.Notion.RequestsPerSecond,
		MaxBlockDepth:     cfg.Notion.MaxBlockDepth,
		RetryCount:        cfg.Notion.RetryCount,
		RetryWaitTime:     cfg.Notion.RetryWaitTime,
	}, repository.NewNotionCacheRepository(db)))
	registry.Register(slack.NewAdapter(slack.Options{
		BaseURL: cfg.Slack.BaseURL,
		Timeout: cfg.Slack.Timeout,
	}))
	registry.Register(github.NewAdapter(github.Options{
		BaseURL: cfg.GitHub.BaseURL,
	}))
	return registry
}

// Close releases external connections.
func (a *App) Close() {
	if a.qdrant != nil {
		if err := a.qdrant.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close Qdrant connection")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
