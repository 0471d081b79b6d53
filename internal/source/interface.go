package source

import (
	"context"
	"time"

	"github.com/timmy/contentsync/internal/domain"
)

// Participant is a person attached to a raw item (author, assignee, mention...).
type Participant struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
}

// RawContentItem is what an adapter produces for one piece of external content.
type RawContentItem struct {
	ExternalID       string             `json:"external_id"` // Unique within the source
	Type             domain.ContentType `json:"type"`
	Title            string             `json:"title,omitempty"`
	Content          string             `json:"content,omitempty"`
	ContentHTML      string             `json:"content_html,omitempty"`
	AuthorExternalID string             `json:"author_external_id,omitempty"`
	AuthorName       string             `json:"author_name,omitempty"`
	AuthorEmail      string             `json:"author_email,omitempty"`
	URL              string             `json:"url,omitempty"`
	SourceCreatedAt  *time.Time         `json:"source_created_at,omitempty"`
	SourceUpdatedAt  *time.Time         `json:"source_updated_at,omitempty"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
	Tags             []string           `json:"tags,omitempty"`
	Participants     []Participant      `json:"participants,omitempty"`
}

// FetchOptions bounds one page request.
type FetchOptions struct {
	Cursor string
	Limit  int
	Since  *time.Time
	Until  *time.Time
}

// LimitOr returns Limit, or def when Limit is not positive.
func (o FetchOptions) LimitOr(def int) int {
	if o.Limit <= 0 {
		return def
	}
	return o.Limit
}

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
	// Failures lists entries of this page the adapter could not build.
	Failures []ItemFailure
}

// ItemFailure is an item the adapter saw but could not turn into a raw item.
type ItemFailure struct {
	ExternalID string
	Message    string
}

// FetchResult is the page type returned by adapters.
type FetchResult = Page[RawContentItem]

// Adapter defines the contract every content source implements.
type Adapter interface {
	// SourceType returns the source type tag this adapter serves.
	// Parameters: none.
	// Returns:
	//   - domain.SourceType: the registry key.
	SourceType() domain.SourceType

	// ValidateCredentials probes the external system with the source's credentials.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - src: the configured content source.
	// Returns:
	//   - bool: false when the credentials were rejected.
	//   - error: non-nil when the probe itself could not complete.
	ValidateCredentials(ctx context.Context, src *domain.ContentSource) (bool, error)

	// FetchContent fetches one page of raw items.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - src: the configured content source.
	//   - opts: cursor, page size and time window.
	// Returns:
	//   - *FetchResult: the page with the cursor for the next request.
	//   - error: non-nil if fetching fails.
	FetchContent(ctx context.Context, src *domain.ContentSource, opts FetchOptions) (*FetchResult, error)

	// FetchItem fetches a single item by external id.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - src: the configured content source.
	//   - externalID: id of the item within the source.
	// Returns:
	//   - *RawContentItem: the item, or nil when it does not exist.
	//   - error: non-nil if the lookup fails.
	FetchItem(ctx context.Context, src *domain.ContentSource, externalID string) (*RawContentItem, error)
}

// AuthRefresher is implemented by adapters that can renew expired credentials.
type AuthRefresher interface {
	RefreshAuth(ctx context.Context, src *domain.ContentSource) error
}
