package video

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

type memStore struct {
	videos []domain.Video
}

func (m *memStore) ListVideos(_ context.Context, q Query) ([]domain.Video, error) {
	var out []domain.Video
	for _, v := range m.videos {
		if v.OrganizationID != q.OrganizationID {
			continue
		}
		out = append(out, v)
	}
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) GetVideo(_ context.Context, orgID, id string) (*domain.Video, error) {
	for i := range m.videos {
		if m.videos[i].ID == id && m.videos[i].OrganizationID == orgID {
			return &m.videos[i], nil
		}
	}
	return nil, nil
}

func newStore(n int) *memStore {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &memStore{}
	for i := 0; i < n; i++ {
		s.videos = append(s.videos, domain.Video{
			ID:             fmt.Sprintf("v%d", i),
			OrganizationID: "org",
			Title:          fmt.Sprintf("Video %d", i),
			Description:    "desc",
			Transcript:     "hello world",
			UploaderID:     "u1",
			UploaderName:   "Ada",
			Tags:           domain.StringArray{"demo"},
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	return s
}

func TestFetchContentPaginates(t *testing.T) {
	a := NewAdapter(newStore(5))
	src := &domain.ContentSource{ID: "s1", OrganizationID: "org", Type: domain.SourceTypeVideo}

	var all []source.RawContentItem
	cursor := ""
	pages := 0
	for {
		res, err := a.FetchContent(context.Background(), src, source.FetchOptions{Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		pages++
		all = append(all, res.Items...)
		if !res.HasMore {
			break
		}
		cursor = res.NextCursor
	}
	assert.Equal(t, 3, pages)
	require.Len(t, all, 5)
	assert.Equal(t, "v0", all[0].ExternalID)
	assert.Equal(t, domain.ContentTypeVideo, all[0].Type)
	assert.Equal(t, "desc\n\nhello world", all[0].Content)
	require.Len(t, all[0].Participants, 1)
	assert.Equal(t, "author", all[0].Participants[0].Role)
}

func TestFetchContentInvalidCursor(t *testing.T) {
	a := NewAdapter(newStore(1))
	_, err := a.FetchContent(context.Background(), &domain.ContentSource{OrganizationID: "org"}, source.FetchOptions{Cursor: "abc"})
	assert.Error(t, err)
}

func TestFetchItem(t *testing.T) {
	a := NewAdapter(newStore(2))
	src := &domain.ContentSource{OrganizationID: "org"}

	item, err := a.FetchItem(context.Background(), src, "v1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Video 1", item.Title)

	missing, err := a.FetchItem(context.Background(), src, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
