package video

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

const defaultPageSize = 50

// Query selects a window of videos for one organization.
type Query struct {
	OrganizationID string
	Offset         int
	Limit          int
	Since          *time.Time
	Until          *time.Time
}

// Store reads the internal video library.
type Store interface {
	// ListVideos returns videos ordered by created_at, id.
	ListVideos(ctx context.Context, q Query) ([]domain.Video, error)
	// GetVideo returns nil, nil when the video does not exist.
	GetVideo(ctx context.Context, organizationID, id string) (*domain.Video, error)
}

// Adapter implements source.Adapter over the internal videos table.
type Adapter struct {
	store Store
}

// NewAdapter creates a new video adapter
func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store}
}

// SourceType returns domain.SourceTypeVideo.
func (a *Adapter) SourceType() domain.SourceType {
	return domain.SourceTypeVideo
}

// ValidateCredentials always succeeds; the video library is internal.
func (a *Adapter) ValidateCredentials(ctx context.Context, src *domain.ContentSource) (bool, error) {
	return true, nil
}

// FetchContent returns one page of videos. The cursor is the row offset.
func (a *Adapter) FetchContent(ctx context.Context, src *domain.ContentSource, opts source.FetchOptions) (*source.FetchResult, error) {
	offset := 0
	if opts.Cursor != "" {
		var err error
		offset, err = strconv.Atoi(opts.Cursor)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid cursor %q", opts.Cursor)
		}
	}
	limit := opts.LimitOr(defaultPageSize)

	// One extra row tells us whether another page exists.
	videos, err := a.store.ListVideos(ctx, Query{
		OrganizationID: src.OrganizationID,
		Offset:         offset,
		Limit:          limit + 1,
		Since:          opts.Since,
		Until:          opts.Until,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	result := &source.FetchResult{}
	if len(videos) > limit {
		videos = videos[:limit]
		result.HasMore = true
		result.NextCursor = strconv.Itoa(offset + limit)
	}
	result.Items = make([]source.RawContentItem, 0, len(videos))
	for i := range videos {
		result.Items = append(result.Items, toRawItem(&videos[i]))
	}
	return result, nil
}

// FetchItem fetches one video by id.
func (a *Adapter) FetchItem(ctx context.Context, src *domain.ContentSource, externalID string) (*source.RawContentItem, error) {
	v, err := a.store.GetVideo(ctx, src.OrganizationID, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	item := toRawItem(v)
	return &item, nil
}

func toRawItem(v *domain.Video) source.RawContentItem {
	var parts []string
	if d := strings.TrimSpace(v.Description); d != "" {
		parts = append(parts, d)
	}
	if t := strings.TrimSpace(v.Transcript); t != "" {
		parts = append(parts, t)
	}

	created := v.CreatedAt
	updated := v.UpdatedAt
	item := source.RawContentItem{
		ExternalID:       v.ID,
		Type:             domain.ContentTypeVideo,
		Title:            v.Title,
		Content:          strings.Join(parts, "\n\n"),
		AuthorExternalID: v.UploaderID,
		AuthorName:       v.UploaderName,
		AuthorEmail:      v.UploaderEmail,
		URL:              v.VideoURL,
		SourceCreatedAt:  &created,
		SourceUpdatedAt:  &updated,
		Metadata: map[string]any{
			"duration_seconds": v.DurationSeconds,
			"thumbnail_url":    v.ThumbnailURL,
			"status":           v.Status,
		},
		Tags: append([]string(nil), v.Tags...),
	}
	if v.UploaderID != "" {
		item.Participants = []source.Participant{{
			ExternalID: v.UploaderID,
			Name:       v.UploaderName,
			Email:      v.UploaderEmail,
			Role:       "author",
		}}
	}
	return item
}
