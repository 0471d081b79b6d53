package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source/video"
)

// VideoRepository reads and writes the internal video library.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a video.
func (r *VideoRepository) Create(ctx context.Context, v *domain.Video) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// ListVideos returns a window of an organization's videos ordered by
// created_at, id.
func (r *VideoRepository) ListVideos(ctx context.Context, q video.Query) ([]domain.Video, error) {
	tx := r.db.WithContext(ctx).Where("organization_id = ?", q.OrganizationID)
	if q.Since != nil {
		tx = tx.Where("updated_at >= ?", *q.Since)
	}
	if q.Until != nil {
		tx = tx.Where("updated_at <= ?", *q.Until)
	}
	var videos []domain.Video
	err := tx.Order("created_at ASC, id ASC").Offset(q.Offset).Limit(q.Limit).Find(&videos).Error
	return videos, err
}

// GetVideo returns nil, nil when the video does not exist.
func (r *VideoRepository) GetVideo(ctx context.Context, organizationID, id string) (*domain.Video, error) {
	var v domain.Video
	err := r.db.WithContext(ctx).First(&v, "organization_id = ? AND id = ?", organizationID, id).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
