package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/source"
)

// NormalizeRawItem maps a raw item of src onto the persisted item shape.
// OrganizationID, SourceID, Type and ExternalID form the idempotency key.
func NormalizeRawItem(src *domain.ContentSource, raw *source.RawContentItem) *domain.ContentItem {
	item := &domain.ContentItem{
		OrganizationID:   src.OrganizationID,
		SourceID:         src.ID,
		ExternalID:       raw.ExternalID,
		Type:             raw.Type,
		Title:            raw.Title,
		Content:          raw.Content,
		ContentHTML:      raw.ContentHTML,
		URL:              raw.URL,
		AuthorExternalID: raw.AuthorExternalID,
		AuthorName:       raw.AuthorName,
		AuthorEmail:      raw.AuthorEmail,
		SourceCreatedAt:  raw.SourceCreatedAt,
		SourceUpdatedAt:  raw.SourceUpdatedAt,
		Metadata:         domain.JSONMap(raw.Metadata),
		Tags:             domain.StringArray(raw.Tags),
		ProcessingStatus: domain.ProcessingStatusPending,
	}
	if item.Metadata == nil {
		item.Metadata = domain.JSONMap{}
	}
	if item.Tags == nil {
		item.Tags = domain.StringArray{}
	}
	item.ContentHash = contentHash(raw)
	return item
}

// contentHash fingerprints the fields enrichment depends on.
func contentHash(raw *source.RawContentItem) string {
	h := sha256.New()
	for _, part := range []string{raw.Title, raw.Content, raw.ContentHTML} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UpsertRawItem normalizes raw and upserts it through repo. Participant
// failures are logged and swallowed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - repo: persistence collaborator.
//   - src: the source that produced raw.
//   - raw: adapter output.
// Returns:
//   - *domain.ContentItem: the stored item.
//   - error: non-nil if the item upsert fails.
func UpsertRawItem(ctx context.Context, repo ContentRepository, src *domain.ContentSource, raw *source.RawContentItem) (*domain.ContentItem, error) {
	if raw.ExternalID == "" {
		return nil, fmt.Errorf("raw item has no external id")
	}
	item, err := repo.UpsertItem(ctx, NormalizeRawItem(src, raw))
	if err != nil {
		return nil, err
	}

	if len(raw.Participants) > 0 {
		participants := make([]domain.ContentParticipant, 0, len(raw.Participants))
		for _, p := range raw.Participants {
			if p.ExternalID == "" {
				continue
			}
			participants = append(participants, domain.ContentParticipant{
				ItemID:     item.ID,
				ExternalID: p.ExternalID,
				Name:       p.Name,
				Email:      p.Email,
				Role:       p.Role,
			})
		}
		if err := repo.CreateParticipantsBatch(ctx, participants); err != nil {
			logger.With(logger.Fields{
				logger.FieldItemID: item.ID,
				logger.FieldCount:  len(participants),
			}).Warn(ctx, "Failed to persist participants: %v", err)
		}
	}
	return item, nil
}
