package service

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
	"github.com/timmy/contentsync/internal/storage"
)

func TestRawArchiveKeyEscapesExternalID(t *testing.T) {
	archive := NewRawArchive(storage.NewMemoryStorage(), "/snapshots/")
	key := archive.Key(testSource(), "C123:1700000000.000100")
	assert.Equal(t, "snapshots/org-1/src-1/C123:1700000000.000100.json", key)

	key = archive.Key(testSource(), "owner/repo#12")
	assert.Equal(t, "snapshots/org-1/src-1/owner%2Frepo%2312.json", key)
}

func TestRawArchivePut(t *testing.T) {
	objects := storage.NewMemoryStorage()
	archive := NewRawArchive(objects, "")
	raw := &source.RawContentItem{ExternalID: "e1", Type: domain.ContentTypeMessage, Title: "hi"}

	require.NoError(t, archive.Put(context.Background(), testSource(), raw))

	rc, err := objects.Get(context.Background(), "raw/org-1/src-1/e1.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	var decoded source.RawContentItem
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "hi", decoded.Title)
	assert.Equal(t, domain.ContentTypeMessage, decoded.Type)
}
