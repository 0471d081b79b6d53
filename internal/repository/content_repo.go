package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/contentsync/internal/domain"
)

// ContentRepository persists content sources, items, participants and sync runs.
type ContentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ContentRepository: repository instance bound to db.
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// EnsureSource returns the oldest source of the given type for the
// organization, creating one when none exists. Uniqueness is not enforced by
// the schema, so concurrent callers may both create a row.
func (r *ContentRepository) EnsureSource(ctx context.Context, organizationID string, sourceType domain.SourceType, name string) (*domain.ContentSource, error) {
	var src domain.ContentSource
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND type = ?", organizationID, sourceType).
		Order("created_at ASC").
		First(&src).Error
	if err == nil {
		return &src, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to look up source: %w", err)
	}

	src = domain.ContentSource{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Type:           sourceType,
		Name:           name,
		Config:         domain.JSONMap{},
		Credentials:    domain.JSONMap{},
		SyncStatus:     domain.SyncStatusIdle,
	}
	if err := r.db.WithContext(ctx).Create(&src).Error; err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	return &src, nil
}

// GetSource retrieves a source by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: source ID.
// Returns:
//   - *domain.ContentSource: source record if found.
//   - error: wraps domain.ErrSourceNotFound when missing.
func (r *ContentRepository) GetSource(ctx context.Context, id string) (*domain.ContentSource, error) {
	var src domain.ContentSource
	if err := r.db.WithContext(ctx).First(&src, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
		}
		return nil, err
	}
	return &src, nil
}

// UpdateSource applies a partial update to a source.
func (r *ContentRepository) UpdateSource(ctx context.Context, id string, patch domain.SourcePatch) error {
	if patch.Empty() {
		return nil
	}
	updates := map[string]interface{}{}
	if patch.SyncStatus != nil {
		updates["sync_status"] = *patch.SyncStatus
	}
	if patch.ClearErrorMessage {
		updates["error_message"] = nil
	}
	if patch.ErrorMessage != nil {
		updates["error_message"] = *patch.ErrorMessage
	}
	if patch.LastSyncAt != nil {
		updates["last_sync_at"] = *patch.LastSyncAt
	}
	if patch.LastSyncCursor != nil {
		updates["last_sync_cursor"] = *patch.LastSyncCursor
	}

	res := r.db.WithContext(ctx).Model(&domain.ContentSource{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update source: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return nil
}

// UpsertItem inserts or refreshes an item keyed by (source_id, external_id).
// New items start pending. When the content hash is unchanged the enrichment
// fields are kept; otherwise the item goes back to pending.
func (r *ContentRepository) UpsertItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	var out domain.ContentItem
	err := withTx(ctx, r.db, func(tx *gorm.DB) error {
		var existing domain.ContentItem
		err := tx.Where("source_id = ? AND external_id = ?", item.SourceID, item.ExternalID).First(&existing).Error
		if isNotFound(err) {
			rec := *item
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			rec.ProcessingStatus = domain.ProcessingStatusPending
			rec.ProcessingError, rec.Summary, rec.SearchText, rec.ProcessedAt = nil, nil, nil, nil

			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "source_id"}, {Name: "external_id"}},
				DoNothing: true,
			}).Create(&rec)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				out = rec
				return nil
			}
			// Another writer inserted the row first; refresh it instead.
			err = tx.Where("source_id = ? AND external_id = ?", item.SourceID, item.ExternalID).First(&existing).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"organization_id":    item.OrganizationID,
			"type":               item.Type,
			"title":              item.Title,
			"content":            item.Content,
			"content_html":       item.ContentHTML,
			"url":                item.URL,
			"author_external_id": item.AuthorExternalID,
			"author_name":        item.AuthorName,
			"author_email":       item.AuthorEmail,
			"source_created_at":  item.SourceCreatedAt,
			"source_updated_at":  item.SourceUpdatedAt,
			"metadata":           item.Metadata,
			"tags":               item.Tags,
			"content_hash":       item.ContentHash,
		}
		if existing.ContentHash != item.ContentHash {
			updates["processing_status"] = domain.ProcessingStatusPending
			updates["processing_error"] = nil
			updates["summary"] = nil
			updates["search_text"] = nil
			updates["processed_at"] = nil
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&out, "id = ?", existing.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert item %s: %w", item.ExternalID, err)
	}
	return &out, nil
}

// GetItem retrieves an item by ID.
func (r *ContentRepository) GetItem(ctx context.Context, id string) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
		}
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies a partial update to an item's processing fields.
func (r *ContentRepository) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) error {
	updates := map[string]interface{}{}
	if patch.ProcessingStatus != nil {
		updates["processing_status"] = *patch.ProcessingStatus
	}
	if patch.ClearProcessingError {
		updates["processing_error"] = nil
	}
	if patch.ProcessingError != nil {
		updates["processing_error"] = *patch.ProcessingError
	}
	if patch.Summary != nil {
		updates["summary"] = *patch.Summary
	}
	if patch.SearchText != nil {
		updates["search_text"] = *patch.SearchText
	}
	if patch.ProcessedAt != nil {
		updates["processed_at"] = *patch.ProcessedAt
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&domain.ContentItem{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return nil
}

// CreateParticipantsBatch inserts participants, ignoring rows that already
// exist for (item_id, external_id, role).
func (r *ContentRepository) CreateParticipantsBatch(ctx context.Context, participants []domain.ContentParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	for i := range participants {
		if participants[i].ID == "" {
			participants[i].ID = uuid.NewString()
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "external_id"}, {Name: "role"}},
		DoNothing: true,
	}).CreateInBatches(participants, 100).Error
}

// ListItemIDsByStatus returns up to limit item IDs of a source in the given
// processing status, oldest first.
func (r *ContentRepository) ListItemIDsByStatus(ctx context.Context, sourceID string, status domain.ProcessingStatus, limit int) ([]string, error) {
	var ids []string
	q := r.db.WithContext(ctx).Model(&domain.ContentItem{}).
		Where("source_id = ? AND processing_status = ?", sourceID, status).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return ids, nil
}

// RecordSyncRun persists the outcome of one sync.
func (r *ContentRepository) RecordSyncRun(ctx context.Context, run *domain.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// ListSyncRuns returns the most recent runs of a source, newest first.
func (r *ContentRepository) ListSyncRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	var runs []domain.SyncRun
	q := r.db.WithContext(ctx).Where("source_id = ?", sourceID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
