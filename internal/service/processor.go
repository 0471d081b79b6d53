package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
)

const (
	defaultBatchConcurrency   = 5
	defaultSummaryThreshold   = 500
	defaultSearchTextMaxRunes = 10000
)

// ItemProcessor enriches stored content items with a summary, search text
// and an embedding.
type ItemProcessor struct {
	repo       ContentRepository
	summarizer Summarizer
	embedder   Embedder
	index      VectorIndex
	logger     *logger.Logger

	summaryThreshold   int
	searchTextMaxRunes int
	concurrency        int
}

// ItemProcessorConfig holds the enrichment collaborators and limits. Nil
// collaborators disable their step.
type ItemProcessorConfig struct {
	Summarizer         Summarizer
	Embedder           Embedder
	Index              VectorIndex
	SummaryThreshold   int // Content longer than this many runes is summarized
	SearchTextMaxRunes int
	Concurrency        int // Default batch concurrency
}

// NewItemProcessor creates a new item processor.
func NewItemProcessor(repo ContentRepository, log *logger.Logger, cfg *ItemProcessorConfig) *ItemProcessor {
	if cfg == nil {
		cfg = &ItemProcessorConfig{}
	}
	p := &ItemProcessor{
		repo:               repo,
		summarizer:         cfg.Summarizer,
		embedder:           cfg.Embedder,
		index:              cfg.Index,
		logger:             log,
		summaryThreshold:   cfg.SummaryThreshold,
		searchTextMaxRunes: cfg.SearchTextMaxRunes,
		concurrency:        cfg.Concurrency,
	}
	if p.summaryThreshold <= 0 {
		p.summaryThreshold = defaultSummaryThreshold
	}
	if p.searchTextMaxRunes <= 0 {
		p.searchTextMaxRunes = defaultSearchTextMaxRunes
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultBatchConcurrency
	}
	return p
}

// log returns the context logger, falling back to the injected one
func (p *ItemProcessor) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(logger.Ensure(ctx, p.logger))
}

// ProcessItem runs the enrichment pipeline for one stored item. Summary,
// embedding and indexing failures only drop that feature.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: content item ID.
// Returns:
//   - *domain.ContentItem: the completed item.
//   - error: *domain.ProcessingError when the pipeline fails.
func (p *ItemProcessor) ProcessItem(ctx context.Context, id string) (_ *domain.ContentItem, err error) {
	ctx = logger.SetItemID(logger.Ensure(ctx, p.logger), id)
	defer func() {
		if r := recover(); r != nil {
			err = p.failItem(ctx, id, fmt.Errorf("panic: %v", r))
		}
	}()

	item, err := p.repo.GetItem(ctx, id)
	if err != nil {
		return nil, &domain.ProcessingError{ItemID: id, Err: err}
	}

	if err := p.repo.UpdateItem(ctx, id, domain.ItemPatch{
		ProcessingStatus: domain.Ptr(domain.ProcessingStatusProcessing),
	}); err != nil {
		return nil, p.failItem(ctx, id, err)
	}

	patch := domain.ItemPatch{
		ProcessingStatus:     domain.Ptr(domain.ProcessingStatusCompleted),
		ClearProcessingError: true,
	}
	if summary, ok := p.summarize(ctx, item); ok {
		patch.Summary = &summary
	}
	searchText := BuildSearchText(item, p.searchTextMaxRunes)
	patch.SearchText = &searchText
	p.embed(ctx, item, searchText)

	now := time.Now()
	patch.ProcessedAt = &now
	if err := p.repo.UpdateItem(ctx, id, patch); err != nil {
		return nil, p.failItem(ctx, id, err)
	}
	patch.Apply(item)
	return item, nil
}

func (p *ItemProcessor) summarize(ctx context.Context, item *domain.ContentItem) (string, bool) {
	if p.summarizer == nil || utf8.RuneCountInString(item.Content) <= p.summaryThreshold {
		return "", false
	}
	summary, err := p.summarizer.Summarize(ctx, item.Content)
	if err != nil {
		p.log(ctx).WithError(err).Warn("Summary generation failed")
		return "", false
	}
	summary = strings.TrimSpace(summary)
	return summary, summary != ""
}

func (p *ItemProcessor) embed(ctx context.Context, item *domain.ContentItem, text string) {
	if p.embedder == nil || text == "" {
		return
	}
	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		p.log(ctx).WithError(err).Warn("Embedding generation failed")
		p.dropVector(ctx, item.ID)
		return
	}
	if p.index == nil {
		return
	}
	if err := p.index.Upsert(ctx, item, vector); err != nil {
		p.log(ctx).WithError(err).Warn("Failed to index embedding")
	}
}

// dropVector removes the item's point left by an earlier embedding.
func (p *ItemProcessor) dropVector(ctx context.Context, id string) {
	if p.index == nil {
		return
	}
	if err := p.index.Delete(ctx, id); err != nil {
		p.log(ctx).WithError(err).Warn("Failed to delete stale embedding")
	}
}

// failItem marks the item failed (best-effort) and wraps err.
func (p *ItemProcessor) failItem(ctx context.Context, id string, err error) error {
	if uerr := p.repo.UpdateItem(ctx, id, domain.ItemPatch{
		ProcessingStatus: domain.Ptr(domain.ProcessingStatusFailed),
		ProcessingError:  domain.Ptr(err.Error()),
	}); uerr != nil {
		p.log(ctx).WithError(uerr).Warn("Failed to mark item failed")
	}
	return &domain.ProcessingError{ItemID: id, Err: err}
}

// BuildSearchText joins title, content, author and tags, collapses
// whitespace and truncates to maxRunes.
func BuildSearchText(item *domain.ContentItem, maxRunes int) string {
	parts := []string{item.Title, item.Content, item.AuthorName, strings.Join(item.Tags, " ")}
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		text = strings.TrimSpace(string([]rune(text)[:maxRunes]))
	}
	return text
}

// BatchOptions tunes ProcessItemsBatch.
type BatchOptions struct {
	Concurrency int
}

// BatchItemError is one failed item of a batch.
type BatchItemError struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Errors    []BatchItemError `json:"errors"`
}

// ProcessItemsBatch processes ids with at most Concurrency pipelines in
// flight. It never fails as a whole; errors are listed in input order.
func (p *ItemProcessor) ProcessItemsBatch(ctx context.Context, ids []string, opts BatchOptions) *BatchResult {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = p.concurrency
	}
	start := time.Now()
	errs := make([]error, len(ids))

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		p.log(ctx).WithError(err).Warn("Failed to create worker pool, processing sequentially")
		for i, id := range ids {
			_, errs[i] = p.ProcessItem(ctx, id)
		}
	} else {
		var wg sync.WaitGroup
		for i, id := range ids {
			i, id := i, id
			wg.Add(1)
			task := func() {
				defer wg.Done()
				_, errs[i] = p.ProcessItem(ctx, id)
			}
			if serr := pool.Submit(task); serr != nil {
				wg.Done()
				errs[i] = &domain.ProcessingError{ItemID: id, Err: serr}
			}
		}
		wg.Wait()
		pool.Release()
	}

	result := &BatchResult{Errors: []BatchItemError{}}
	for i, err := range errs {
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchItemError{ItemID: ids[i], Error: err.Error()})
			continue
		}
		result.Processed++
	}

	logger.With(logger.Fields{
		logger.FieldCount:      len(ids),
		logger.FieldErrors:     result.Failed,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Batch processed")
	return result
}
