package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

// memRepo is an in-memory ContentRepository and SyncRunRecorder.
type memRepo struct {
	mu               sync.Mutex
	sources          map[string]*domain.ContentSource
	items            map[string]*domain.ContentItem
	keys             map[string]string
	participants     map[string]domain.ContentParticipant
	sourcePatches    []domain.SourcePatch
	runs             []*domain.SyncRun
	failExternal     map[string]bool
	failParticipants bool
}

func newMemRepo(sources ...*domain.ContentSource) *memRepo {
	r := &memRepo{
		sources:      map[string]*domain.ContentSource{},
		items:        map[string]*domain.ContentItem{},
		keys:         map[string]string{},
		participants: map[string]domain.ContentParticipant{},
		failExternal: map[string]bool{},
	}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return r
}

func (r *memRepo) GetSource(_ context.Context, id string) (*domain.ContentSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	cp := *src
	return &cp, nil
}

func (r *memRepo) UpdateSource(_ context.Context, id string, patch domain.SourcePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	r.sourcePatches = append(r.sourcePatches, patch)
	patch.Apply(src)
	return nil
}

func (r *memRepo) UpsertItem(_ context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failExternal[item.ExternalID] {
		return nil, errors.New("constraint violation")
	}
	key := item.SourceID + "|" + item.ExternalID
	if id, ok := r.keys[key]; ok {
		existing := r.items[id]
		rec := *item
		rec.ID = id
		if existing.ContentHash == item.ContentHash {
			rec.ProcessingStatus = existing.ProcessingStatus
			rec.Summary, rec.SearchText, rec.ProcessedAt = existing.Summary, existing.SearchText, existing.ProcessedAt
		}
		r.items[id] = &rec
		cp := rec
		return &cp, nil
	}
	rec := *item
	rec.ID = uuid.NewString()
	rec.ProcessingStatus = domain.ProcessingStatusPending
	r.items[rec.ID] = &rec
	r.keys[key] = rec.ID
	cp := rec
	return &cp, nil
}

func (r *memRepo) GetItem(_ context.Context, id string) (*domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	cp := *item
	return &cp, nil
}

func (r *memRepo) UpdateItem(_ context.Context, id string, patch domain.ItemPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	patch.Apply(item)
	return nil
}

func (r *memRepo) CreateParticipantsBatch(_ context.Context, participants []domain.ContentParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failParticipants {
		return errors.New("participants table unavailable")
	}
	for _, p := range participants {
		r.participants[p.ItemID+"|"+p.ExternalID+"|"+p.Role] = p
	}
	return nil
}

func (r *memRepo) RecordSyncRun(_ context.Context, run *domain.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRepo) itemCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *memRepo) source(id string) domain.ContentSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sources[id]
}

// pagedAdapter serves fixed pages with cursors "p1", "p2", ...
type pagedAdapter struct {
	mu         sync.Mutex
	sourceType domain.SourceType
	pages      [][]source.RawContentItem
	failures   map[int][]source.ItemFailure // by page index
	valid      bool
	validErr   error
	fetchErrAt int // 1-based call number that fails; 0 never
	onFetch    func(call int)
	calls      int
	validCalls int
}

func (a *pagedAdapter) SourceType() domain.SourceType { return a.sourceType }

func (a *pagedAdapter) ValidateCredentials(context.Context, *domain.ContentSource) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validCalls++
	return a.valid, a.validErr
}

func (a *pagedAdapter) FetchContent(_ context.Context, _ *domain.ContentSource, opts source.FetchOptions) (*source.FetchResult, error) {
	a.mu.Lock()
	a.calls++
	call := a.calls
	a.mu.Unlock()
	if a.onFetch != nil {
		a.onFetch(call)
	}
	if call == a.fetchErrAt {
		return nil, errors.New("upstream unavailable")
	}

	idx := 0
	if opts.Cursor != "" {
		if _, err := fmt.Sscanf(opts.Cursor, "p%d", &idx); err != nil {
			return nil, err
		}
	}
	if idx >= len(a.pages) {
		return &source.FetchResult{}, nil
	}
	res := &source.FetchResult{Items: a.pages[idx], HasMore: idx < len(a.pages)-1, Failures: a.failures[idx]}
	if res.HasMore {
		res.NextCursor = fmt.Sprintf("p%d", idx+1)
	}
	return res, nil
}

func (a *pagedAdapter) FetchItem(context.Context, *domain.ContentSource, string) (*source.RawContentItem, error) {
	return nil, nil
}

func (a *pagedAdapter) fetchCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// refreshingAdapter accepts credentials only after RefreshAuth ran.
type refreshingAdapter struct {
	pagedAdapter
	refreshed bool
}

func (a *refreshingAdapter) ValidateCredentials(context.Context, *domain.ContentSource) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validCalls++
	return a.refreshed, nil
}

func (a *refreshingAdapter) RefreshAuth(context.Context, *domain.ContentSource) error {
	a.mu.Lock()
	a.refreshed = true
	a.mu.Unlock()
	return nil
}

func rawItems(prefix string, n int) []source.RawContentItem {
	items := make([]source.RawContentItem, n)
	for i := range items {
		items[i] = source.RawContentItem{
			ExternalID: fmt.Sprintf("%s-%d", prefix, i+1),
			Type:       domain.ContentTypeDocument,
			Title:      fmt.Sprintf("Doc %s %d", prefix, i+1),
			Content:    "content",
			Participants: []source.Participant{
				{ExternalID: "u1", Name: "Ann", Role: "author"},
			},
		}
	}
	return items
}

func testSource() *domain.ContentSource {
	return &domain.ContentSource{
		ID:             "src-1",
		OrganizationID: "org-1",
		Type:           domain.SourceTypeNotion,
		Name:           "Notion",
		SyncStatus:     domain.SyncStatusIdle,
	}
}

func newTestProcessor(repo *memRepo, adapter source.Adapter, cfg *ContentProcessorConfig) *ContentProcessor {
	registry := source.NewRegistry()
	registry.Register(adapter)
	if cfg == nil {
		cfg = &ContentProcessorConfig{}
	}
	cfg.Runs = repo
	return NewContentProcessor(repo, registry, nil, cfg)
}
