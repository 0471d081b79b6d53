package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/contentsync/internal/domain"
)

// NotionCacheRepository persists the Notion hierarchy and schema caches.
type NotionCacheRepository struct {
	db *gorm.DB
}

// NewNotionCacheRepository creates a new NotionCacheRepository.
func NewNotionCacheRepository(db *gorm.DB) *NotionCacheRepository {
	return &NotionCacheRepository{db: db}
}

func (r *NotionCacheRepository) GetHierarchy(ctx context.Context, sourceID, objectID string) (*domain.NotionPageHierarchy, error) {
	var rec domain.NotionPageHierarchy
	err := r.db.WithContext(ctx).First(&rec, "source_id = ? AND object_id = ?", sourceID, objectID).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *NotionCacheRepository) UpsertHierarchy(ctx context.Context, rec *domain.NotionPageHierarchy) error {
	rec.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "object_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"object_type", "parent_id", "parent_type", "title", "updated_at"}),
	}).Create(rec).Error
}

func (r *NotionCacheRepository) GetDatabaseSchema(ctx context.Context, sourceID, databaseID string) (*domain.NotionDatabaseSchema, error) {
	var rec domain.NotionDatabaseSchema
	err := r.db.WithContext(ctx).First(&rec, "source_id = ? AND database_id = ?", sourceID, databaseID).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *NotionCacheRepository) UpsertDatabaseSchema(ctx context.Context, schema *domain.NotionDatabaseSchema) error {
	schema.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "database_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "property_types", "updated_at"}),
	}).Create(schema).Error
}
