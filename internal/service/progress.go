package service

import (
	"sync"

	"github.com/timmy/contentsync/internal/domain"
)

// ProgressTracker holds the latest sync snapshot per source. Every Set is an
// unconditional overwrite.
type ProgressTracker struct {
	mu      sync.RWMutex
	entries map[string]domain.SyncProgress
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{entries: make(map[string]domain.SyncProgress)}
}

// Set stores a copy of p under its SourceID.
func (t *ProgressTracker) Set(p domain.SyncProgress) {
	snapshot := p.Clone()
	t.mu.Lock()
	t.entries[p.SourceID] = snapshot
	t.mu.Unlock()
}

// Get returns a copy of the snapshot for sourceID.
func (t *ProgressTracker) Get(sourceID string) (*domain.SyncProgress, bool) {
	t.mu.RLock()
	p, ok := t.entries[sourceID]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	out := p.Clone()
	return &out, true
}
