package service

import "sync"

// SyncGuard rejects a second concurrent sync of the same source. The
// orchestrator itself does not lock; callers acquire the guard around
// SyncSource.
type SyncGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewSyncGuard creates an empty guard.
func NewSyncGuard() *SyncGuard {
	return &SyncGuard{running: make(map[string]struct{})}
}

// TryAcquire marks sourceID as syncing. It returns false when a sync of the
// source is already in flight.
func (g *SyncGuard) TryAcquire(sourceID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[sourceID]; busy {
		return false
	}
	g.running[sourceID] = struct{}{}
	return true
}

// Release clears the mark set by TryAcquire.
func (g *SyncGuard) Release(sourceID string) {
	g.mu.Lock()
	delete(g.running, sourceID)
	g.mu.Unlock()
}
