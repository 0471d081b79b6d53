package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

func TestNormalizeRawItem(t *testing.T) {
	updated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	raw := &source.RawContentItem{
		ExternalID:      "ext-1",
		Type:            domain.ContentTypeIssue,
		Title:           "Bug",
		Content:         "Steps",
		URL:             "https://example.com/1",
		SourceUpdatedAt: &updated,
	}
	item := NormalizeRawItem(testSource(), raw)

	assert.Equal(t, "org-1", item.OrganizationID)
	assert.Equal(t, "src-1", item.SourceID)
	assert.Equal(t, "ext-1", item.ExternalID)
	assert.Equal(t, domain.ContentTypeIssue, item.Type)
	assert.NotNil(t, item.Metadata)
	assert.NotNil(t, item.Tags)
	assert.Len(t, item.ContentHash, 64)

	same := NormalizeRawItem(testSource(), raw)
	assert.Equal(t, item.ContentHash, same.ContentHash)

	raw.Content = "Other steps"
	assert.NotEqual(t, item.ContentHash, NormalizeRawItem(testSource(), raw).ContentHash)
}

func TestContentHashSeparatesFields(t *testing.T) {
	a := contentHash(&source.RawContentItem{Title: "ab", Content: "c"})
	b := contentHash(&source.RawContentItem{Title: "a", Content: "bc"})
	assert.NotEqual(t, a, b)
}

func TestUpsertRawItemRequiresExternalID(t *testing.T) {
	_, err := UpsertRawItem(context.Background(), newMemRepo(), testSource(), &source.RawContentItem{})
	require.Error(t, err)
}

func TestUpsertRawItemSkipsParticipantsWithoutID(t *testing.T) {
	repo := newMemRepo()
	item, err := UpsertRawItem(context.Background(), repo, testSource(), &source.RawContentItem{
		ExternalID: "e1",
		Type:       domain.ContentTypeMessage,
		Participants: []source.Participant{
			{ExternalID: "u1", Role: "author"},
			{Name: "anonymous", Role: "mentioned"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, repo.participants, 1)
	_, ok := repo.participants[item.ID+"|u1|author"]
	assert.True(t, ok)
}
