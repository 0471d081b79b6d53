package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/source"
)

const authFailedMessage = "Invalid or expired credentials"

// ContentProcessor drives paginated syncs of content sources into the
// content item store.
type ContentProcessor struct {
	repo     ContentRepository
	registry *source.Registry
	progress *ProgressTracker
	archive  *RawArchive
	runs     SyncRunRecorder
	logger   *logger.Logger
}

// ContentProcessorConfig holds the optional collaborators of the processor.
type ContentProcessorConfig struct {
	Progress *ProgressTracker // Shared progress table; a private one is created when nil
	Archive  *RawArchive      // Raw snapshots are written when set
	Runs     SyncRunRecorder  // Finished syncs are recorded when set
}

// NewContentProcessor creates a new sync orchestrator.
// Parameters:
//   - repo: persistence collaborator.
//   - registry: adapter registry keyed by source type.
//   - log: fallback logger when the context carries none.
//   - cfg: optional collaborators, may be nil.
// Returns:
//   - *ContentProcessor: orchestrator instance.
func NewContentProcessor(repo ContentRepository, registry *source.Registry, log *logger.Logger, cfg *ContentProcessorConfig) *ContentProcessor {
	if cfg == nil {
		cfg = &ContentProcessorConfig{}
	}
	progress := cfg.Progress
	if progress == nil {
		progress = NewProgressTracker()
	}
	return &ContentProcessor{
		repo:     repo,
		registry: registry,
		progress: progress,
		archive:  cfg.Archive,
		runs:     cfg.Runs,
		logger:   log,
	}
}

// log returns the context logger, falling back to the injected one
func (p *ContentProcessor) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(logger.Ensure(ctx, p.logger))
}

// GetSyncProgress returns a copy of the latest snapshot for sourceID.
func (p *ContentProcessor) GetSyncProgress(sourceID string) (*domain.SyncProgress, bool) {
	return p.progress.Get(sourceID)
}

// syncRun carries the mutable state of one SyncSource call.
type syncRun struct {
	id          string
	src         *domain.ContentSource
	startCursor string
	progress    domain.SyncProgress
}

func (r *syncRun) addError(message, itemID string) {
	r.progress.Errors = append(r.progress.Errors, domain.SyncErrorEntry{Message: message, ItemID: itemID})
}

// SyncSource pulls every page of a source through its adapter and upserts
// the items. Item-level failures are collected in the returned progress and
// do not produce an error; credential and page-fetch failures abort the sync.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sourceID: content source to sync.
//   - opts: starting cursor, page size and time window.
// Returns:
//   - *domain.SyncProgress: final snapshot, nil when the source or adapter cannot be resolved.
//   - error: ErrSourceNotFound, ErrAdapterNotFound, ErrAuth or a *domain.SyncError.
func (p *ContentProcessor) SyncSource(ctx context.Context, sourceID string, opts source.FetchOptions) (*domain.SyncProgress, error) {
	src, err := p.repo.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	adapter, err := p.registry.Get(src.Type)
	if err != nil {
		return nil, err
	}

	run := &syncRun{
		id:          uuid.NewString(),
		src:         src,
		startCursor: opts.Cursor,
		progress: domain.SyncProgress{
			SourceID:  src.ID,
			Status:    domain.SyncRunRunning,
			Errors:    []domain.SyncErrorEntry{},
			StartedAt: time.Now(),
		},
	}
	ctx = logger.SetSyncID(logger.SetSourceID(logger.Ensure(ctx, p.logger), src.ID), run.id)
	p.progress.Set(run.progress)

	if err := p.repo.UpdateSource(ctx, src.ID, domain.SourcePatch{
		SyncStatus:        domain.Ptr(domain.SyncStatusSyncing),
		ClearErrorMessage: true,
	}); err != nil {
		return p.abort(ctx, run, "update", err)
	}

	p.log(ctx).WithFields(logger.Fields{
		logger.FieldSourceType: src.Type,
		"cursor":               opts.Cursor,
		"limit":                opts.Limit,
	}).Info("Starting sync")

	if err := p.validate(ctx, adapter, run); err != nil {
		return p.failAuth(ctx, run, err)
	}

	fetch := func(ctx context.Context, cursor string) (*source.FetchResult, error) {
		pageOpts := opts
		pageOpts.Cursor = cursor
		return adapter.FetchContent(ctx, run.src, pageOpts)
	}
	_, err = source.WalkPages(ctx, opts.Cursor, fetch, func(page *source.FetchResult) error {
		return p.processPage(ctx, run, page)
	})
	if err != nil {
		if ctx.Err() != nil {
			return p.cancel(ctx, run, err)
		}
		return p.abort(ctx, run, "fetch", err)
	}

	return p.finalize(ctx, run), nil
}

// validate probes the credentials, refreshing them once when the adapter
// supports it.
func (p *ContentProcessor) validate(ctx context.Context, adapter source.Adapter, run *syncRun) error {
	ok, err := adapter.ValidateCredentials(ctx, run.src)
	if ok && err == nil {
		return nil
	}

	refresher, canRefresh := adapter.(source.AuthRefresher)
	if !canRefresh {
		return authError(err)
	}
	if rerr := refresher.RefreshAuth(ctx, run.src); rerr != nil {
		p.log(ctx).WithError(rerr).Warn("Credential refresh failed")
		return authError(err)
	}
	// The refresher may have persisted new credentials.
	if fresh, gerr := p.repo.GetSource(ctx, run.src.ID); gerr == nil {
		run.src = fresh
	}
	ok, err = adapter.ValidateCredentials(ctx, run.src)
	if ok && err == nil {
		return nil
	}
	return authError(err)
}

func authError(probeErr error) error {
	if probeErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuth, probeErr)
	}
	return domain.ErrAuth
}

// processPage upserts every item of a page and publishes the cumulative
// snapshot. Item failures are recorded and never stop the page.
func (p *ContentProcessor) processPage(ctx context.Context, run *syncRun, page *source.FetchResult) error {
	start := time.Now()
	failed := 0
	for i := range page.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := &page.Items[i]

		if p.archive != nil {
			if err := p.archive.Put(ctx, run.src, raw); err != nil {
				p.log(ctx).WithError(err).Warn("Failed to archive raw item")
			}
		}

		if _, err := UpsertRawItem(ctx, p.repo, run.src, raw); err != nil {
			failed++
			run.addError(err.Error(), raw.ExternalID)
			p.log(ctx).WithError(err).WithField(logger.FieldItemID, raw.ExternalID).Warn("Failed to upsert item")
			continue
		}
		run.progress.ItemsProcessed++
	}
	for _, f := range page.Failures {
		failed++
		run.addError(f.Message, f.ExternalID)
	}
	p.progress.Set(run.progress)

	if page.HasMore && page.NextCursor != "" {
		if err := p.repo.UpdateSource(ctx, run.src.ID, domain.SourcePatch{
			LastSyncCursor: domain.Ptr(page.NextCursor),
		}); err != nil {
			p.log(ctx).WithError(err).Warn("Failed to persist sync cursor")
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount:      len(page.Items),
		logger.FieldErrors:     failed,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Page processed")
	return nil
}

func (p *ContentProcessor) finalize(ctx context.Context, run *syncRun) *domain.SyncProgress {
	now := time.Now()
	run.progress.CompletedAt = &now
	// Paging reached the last page, so there is nothing left to resume.
	patch := domain.SourcePatch{
		SyncStatus:     domain.Ptr(domain.SyncStatusIdle),
		LastSyncAt:     &now,
		LastSyncCursor: domain.Ptr(""),
	}
	if n := len(run.progress.Errors); n > 0 {
		run.progress.Status = domain.SyncRunFailed
		patch.ErrorMessage = domain.Ptr(fmt.Sprintf("Sync completed with %d errors", n))
	} else {
		run.progress.Status = domain.SyncRunCompleted
		patch.ClearErrorMessage = true
	}
	p.progress.Set(run.progress)

	if err := p.repo.UpdateSource(ctx, run.src.ID, patch); err != nil {
		p.log(ctx).WithError(err).Warn("Failed to persist final sync status")
	}
	p.recordRun(ctx, run)

	logger.With(logger.Fields{
		logger.FieldStatus:     string(run.progress.Status),
		logger.FieldCount:      run.progress.ItemsProcessed,
		logger.FieldErrors:     len(run.progress.Errors),
		logger.FieldDurationMs: now.Sub(run.progress.StartedAt).Milliseconds(),
	}).Info(ctx, "Sync finished")

	out := run.progress.Clone()
	return &out
}

// failAuth leaves progress failed and the source in error; no page is fetched.
func (p *ContentProcessor) failAuth(ctx context.Context, run *syncRun, err error) (*domain.SyncProgress, error) {
	message := authFailedMessage
	if err != domain.ErrAuth {
		message = err.Error()
	}
	return p.fail(ctx, run, "auth", err, message, domain.SyncStatusError)
}

// abort handles a failure outside the per-item boundary.
func (p *ContentProcessor) abort(ctx context.Context, run *syncRun, op string, err error) (*domain.SyncProgress, error) {
	return p.fail(ctx, run, op, err, err.Error(), domain.SyncStatusError)
}

// cancel stops a sync whose context ended. The source goes back to idle so a
// later call can resume from the persisted cursor.
func (p *ContentProcessor) cancel(ctx context.Context, run *syncRun, err error) (*domain.SyncProgress, error) {
	return p.fail(context.WithoutCancel(ctx), run, "cancel", err, "Sync cancelled: "+err.Error(), domain.SyncStatusIdle)
}

func (p *ContentProcessor) fail(ctx context.Context, run *syncRun, op string, err error, message string, status domain.SyncStatus) (*domain.SyncProgress, error) {
	now := time.Now()
	run.addError(message, "")
	run.progress.Status = domain.SyncRunFailed
	run.progress.CompletedAt = &now
	p.progress.Set(run.progress)

	if uerr := p.repo.UpdateSource(ctx, run.src.ID, domain.SourcePatch{
		SyncStatus:   domain.Ptr(status),
		ErrorMessage: domain.Ptr(message),
	}); uerr != nil {
		p.log(ctx).WithError(uerr).Warn("Failed to persist sync failure")
	}
	p.recordRun(ctx, run)

	p.log(ctx).WithError(err).WithField("op", op).Error("Sync aborted")

	out := run.progress.Clone()
	return &out, &domain.SyncError{SourceID: run.src.ID, Op: op, Err: err}
}

func (p *ContentProcessor) recordRun(ctx context.Context, run *syncRun) {
	if p.runs == nil {
		return
	}
	failed := 0
	messages := make([]string, 0, len(run.progress.Errors))
	for _, e := range run.progress.Errors {
		if e.ItemID != "" {
			failed++
			messages = append(messages, e.ItemID+": "+e.Message)
		} else {
			messages = append(messages, e.Message)
		}
	}
	started := run.progress.StartedAt
	rec := &domain.SyncRun{
		ID:             run.id,
		SourceID:       run.src.ID,
		OrganizationID: run.src.OrganizationID,
		Status:         run.progress.Status,
		ProcessedItems: run.progress.ItemsProcessed,
		FailedItems:    failed,
		StartCursor:    run.startCursor,
		StartedAt:      &started,
		CompletedAt:    run.progress.CompletedAt,
		ErrorLog:       strings.Join(messages, "\n"),
	}
	if err := p.runs.RecordSyncRun(ctx, rec); err != nil {
		p.log(ctx).WithError(err).Warn("Failed to record sync run")
	}
}
