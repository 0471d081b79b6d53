package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ContentType is the kind of a unified content item.
type ContentType string

const (
	ContentTypeVideo       ContentType = "video"
	ContentTypeMessage     ContentType = "message"
	ContentTypeThread      ContentType = "thread"
	ContentTypeDocument    ContentType = "document"
	ContentTypeIssue       ContentType = "issue"
	ContentTypePullRequest ContentType = "pull_request"
	ContentTypeComment     ContentType = "comment"
	ContentTypeFile        ContentType = "file"
)

// ProcessingStatus represents the enrichment status of a content item.
// Values include ProcessingStatusPending, ProcessingStatusProcessing,
// ProcessingStatusCompleted, ProcessingStatusFailed and ProcessingStatusSkipped.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
	ProcessingStatusSkipped    ProcessingStatus = "skipped"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// ContentItem is the persisted, unified representation of one piece of
// content from any source. (SourceID, ExternalID) is the upsert key.
type ContentItem struct {
	ID               string           `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID   string           `gorm:"type:text;not null;index:idx_content_items_org" json:"organization_id"`
	SourceID         string           `gorm:"type:text;not null;uniqueIndex:idx_content_items_source_external" json:"source_id"`
	ExternalID       string           `gorm:"type:text;not null;uniqueIndex:idx_content_items_source_external" json:"external_id"`
	Type             ContentType      `gorm:"type:text;not null" json:"type"`
	Title            string           `gorm:"type:text" json:"title,omitempty"`
	Content          string           `gorm:"type:text" json:"content,omitempty"`
	ContentHTML      string           `gorm:"column:content_html;type:text" json:"content_html,omitempty"`
	URL              string           `gorm:"type:text" json:"url,omitempty"`
	AuthorExternalID string           `gorm:"type:text" json:"author_external_id,omitempty"`
	AuthorName       string           `gorm:"type:text" json:"author_name,omitempty"`
	AuthorEmail      string           `gorm:"type:text" json:"author_email,omitempty"`
	SourceCreatedAt  *time.Time       `json:"source_created_at,omitempty"`
	SourceUpdatedAt  *time.Time       `json:"source_updated_at,omitempty"`
	Metadata         JSONMap          `gorm:"type:text" json:"metadata,omitempty"`
	Tags             StringArray      `gorm:"type:text" json:"tags"`
	ContentHash      string           `gorm:"type:text" json:"content_hash,omitempty"`
	ProcessingStatus ProcessingStatus `gorm:"type:text;index:idx_content_items_status;default:pending" json:"processing_status"`
	ProcessingError  *string          `gorm:"type:text" json:"processing_error,omitempty"`
	Summary          *string          `gorm:"type:text" json:"summary,omitempty"`
	SearchText       *string          `gorm:"type:text" json:"search_text,omitempty"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TableName returns the database table name for ContentItem.
func (ContentItem) TableName() string {
	return "content_items"
}

// ItemPatch describes a partial update of a content item's processing fields.
type ItemPatch struct {
	ProcessingStatus     *ProcessingStatus
	ProcessingError      *string
	ClearProcessingError bool
	Summary              *string
	SearchText           *string
	ProcessedAt          *time.Time
}

// Apply copies the patch onto item in memory.
func (p ItemPatch) Apply(item *ContentItem) {
	if p.ProcessingStatus != nil {
		item.ProcessingStatus = *p.ProcessingStatus
	}
	if p.ClearProcessingError {
		item.ProcessingError = nil
	}
	if p.ProcessingError != nil {
		msg := *p.ProcessingError
		item.ProcessingError = &msg
	}
	if p.Summary != nil {
		s := *p.Summary
		item.Summary = &s
	}
	if p.SearchText != nil {
		s := *p.SearchText
		item.SearchText = &s
	}
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		item.ProcessedAt = &t
	}
}

// ContentParticipant links a person from the source system to a content item.
type ContentParticipant struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	ItemID     string    `gorm:"type:text;not null;uniqueIndex:idx_participants_item_external_role" json:"item_id"`
	ExternalID string    `gorm:"type:text;not null;uniqueIndex:idx_participants_item_external_role" json:"external_id"`
	Role       string    `gorm:"type:text;not null;uniqueIndex:idx_participants_item_external_role" json:"role"`
	Name       string    `gorm:"type:text" json:"name"`
	Email      string    `gorm:"type:text" json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for ContentParticipant.
func (ContentParticipant) TableName() string {
	return "content_participants"
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
