package service

import (
	"context"

	"github.com/timmy/contentsync/internal/domain"
)

// ContentRepository is the persistence collaborator consumed by the sync
// orchestrator and the item processor.
type ContentRepository interface {
	GetSource(ctx context.Context, id string) (*domain.ContentSource, error)
	UpdateSource(ctx context.Context, id string, patch domain.SourcePatch) error
	UpsertItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error)
	GetItem(ctx context.Context, id string) (*domain.ContentItem, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) error
	CreateParticipantsBatch(ctx context.Context, participants []domain.ContentParticipant) error
}

// SyncRunRecorder persists the outcome of finished syncs.
type SyncRunRecorder interface {
	RecordSyncRun(ctx context.Context, run *domain.SyncRun) error
}

// Summarizer produces a short summary of a text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Embedder turns a text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores item embeddings for semantic search.
type VectorIndex interface {
	Upsert(ctx context.Context, item *domain.ContentItem, vector []float32) error
	Delete(ctx context.Context, itemID string) error
}
