package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
	"github.com/timmy/contentsync/internal/storage"
)

// RawArchive writes JSON snapshots of raw items to object storage.
type RawArchive struct {
	storage storage.ObjectStorage
	prefix  string
}

// NewRawArchive creates an archive rooted at prefix ("raw" when empty).
func NewRawArchive(objectStorage storage.ObjectStorage, prefix string) *RawArchive {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "raw"
	}
	return &RawArchive{storage: objectStorage, prefix: prefix}
}

// Key returns {prefix}/{orgId}/{sourceId}/{externalId}.json. The external id
// is path-escaped because Slack and GitHub ids contain separators.
func (a *RawArchive) Key(src *domain.ContentSource, externalID string) string {
	return path.Join(a.prefix, src.OrganizationID, src.ID, url.PathEscape(externalID)+".json")
}

// Put stores raw under its key, replacing any earlier snapshot.
func (a *RawArchive) Put(ctx context.Context, src *domain.ContentSource, raw *source.RawContentItem) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode raw item: %w", err)
	}
	key := a.Key(src, raw.ExternalID)
	if err := a.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return nil
}
