package notion

import (
	"context"
	"strings"
	"sync"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
)

const maxAncestorDepth = 32

// Cache persists the Notion object hierarchy and database schemas for a source.
// Getters return nil, nil on a miss.
type Cache interface {
	GetHierarchy(ctx context.Context, sourceID, objectID string) (*domain.NotionPageHierarchy, error)
	UpsertHierarchy(ctx context.Context, rec *domain.NotionPageHierarchy) error
	GetDatabaseSchema(ctx context.Context, sourceID, databaseID string) (*domain.NotionDatabaseSchema, error)
	UpsertDatabaseSchema(ctx context.Context, schema *domain.NotionDatabaseSchema) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu        sync.RWMutex
	hierarchy map[string]domain.NotionPageHierarchy
	schemas   map[string]domain.NotionDatabaseSchema
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		hierarchy: make(map[string]domain.NotionPageHierarchy),
		schemas:   make(map[string]domain.NotionDatabaseSchema),
	}
}

func (m *MemoryCache) GetHierarchy(_ context.Context, sourceID, objectID string) (*domain.NotionPageHierarchy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.hierarchy[sourceID+"/"+normalizeID(objectID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryCache) UpsertHierarchy(_ context.Context, rec *domain.NotionPageHierarchy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hierarchy[rec.SourceID+"/"+normalizeID(rec.ObjectID)] = *rec
	return nil
}

func (m *MemoryCache) GetDatabaseSchema(_ context.Context, sourceID, databaseID string) (*domain.NotionDatabaseSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[sourceID+"/"+normalizeID(databaseID)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryCache) UpsertDatabaseSchema(_ context.Context, schema *domain.NotionDatabaseSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[schema.SourceID+"/"+normalizeID(schema.DatabaseID)] = *schema
	return nil
}

// normalizeID strips dashes so dashed and undashed ids compare equal.
func normalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

func hierarchyRecord(sourceID string, obj *Object, title string) *domain.NotionPageHierarchy {
	return &domain.NotionPageHierarchy{
		SourceID:   sourceID,
		ObjectID:   obj.ID,
		ObjectType: obj.Object,
		ParentID:   obj.Parent.ID(),
		ParentType: obj.Parent.Type,
		Title:      title,
	}
}

// selection decides whether discovered objects fall under the configured roots.
type selection struct {
	adapter  *Adapter
	client   *Client
	sourceID string
	roots    map[string]struct{}
}

func newSelection(a *Adapter, c *Client, src *domain.ContentSource) *selection {
	roots := make(map[string]struct{})
	for _, id := range src.Config.Strings("selected_root_ids") {
		roots[normalizeID(id)] = struct{}{}
	}
	return &selection{adapter: a, client: c, sourceID: src.ID, roots: roots}
}

// all reports whether no roots are configured, meaning everything is selected.
func (s *selection) all() bool {
	return len(s.roots) == 0
}

// includes walks from objectID up through its ancestors looking for a root.
// Missing links are fetched once and written back to the cache.
func (s *selection) includes(ctx context.Context, objectID, objectType string) bool {
	if s.all() {
		return true
	}
	id, kind := objectID, objectType
	for depth := 0; depth < maxAncestorDepth && id != ""; depth++ {
		if _, ok := s.roots[normalizeID(id)]; ok {
			return true
		}
		rec, err := s.lookup(ctx, id, kind)
		if err != nil || rec == nil {
			return false
		}
		id, kind = rec.ParentID, parentKind(rec.ParentType)
	}
	return false
}

func (s *selection) lookup(ctx context.Context, id, kind string) (*domain.NotionPageHierarchy, error) {
	rec, err := s.adapter.cache.GetHierarchy(ctx, s.sourceID, id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	switch kind {
	case "database":
		db, err := s.client.GetDatabase(ctx, id)
		if err != nil {
			return nil, err
		}
		rec = hierarchyRecord(s.sourceID, db, PlainText(db.Title))
	case "block":
		b, err := s.client.GetBlock(ctx, id)
		if err != nil {
			return nil, err
		}
		rec = &domain.NotionPageHierarchy{
			SourceID:   s.sourceID,
			ObjectID:   b.ID,
			ObjectType: "block",
			ParentID:   b.Parent.ID(),
			ParentType: b.Parent.Type,
		}
	default:
		p, err := s.client.GetPage(ctx, id)
		if err != nil {
			return nil, err
		}
		rec = hierarchyRecord(s.sourceID, p, ExtractTitle(DecodeProperties(p.Properties)))
	}
	if err := s.adapter.cache.UpsertHierarchy(ctx, rec); err != nil {
		logger.CtxWarn(ctx, "Failed to cache notion hierarchy: object_id=%s, error=%v", rec.ObjectID, err)
	}
	return rec, nil
}

// parentKind maps a parent type ("page_id", "database_id", "block_id") to the
// kind of object it refers to.
func parentKind(parentType string) string {
	switch parentType {
	case "database_id":
		return "database"
	case "block_id":
		return "block"
	case "page_id":
		return "page"
	default:
		return ""
	}
}
