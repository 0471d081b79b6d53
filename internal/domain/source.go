package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SourceType identifies which external system a content source is connected to.
type SourceType string

const (
	SourceTypeVideo       SourceType = "video"
	SourceTypeSlack       SourceType = "slack"
	SourceTypeNotion      SourceType = "notion"
	SourceTypeGitHub      SourceType = "github"
	SourceTypeGoogleDrive SourceType = "google_drive"
	SourceTypeConfluence  SourceType = "confluence"
	SourceTypeLinear      SourceType = "linear"
)

// SourceTypes lists every supported source type.
var SourceTypes = []SourceType{
	SourceTypeVideo,
	SourceTypeSlack,
	SourceTypeNotion,
	SourceTypeGitHub,
	SourceTypeGoogleDrive,
	SourceTypeConfluence,
	SourceTypeLinear,
}

// Valid reports whether t is one of the supported source types.
func (t SourceType) Valid() bool {
	for _, st := range SourceTypes {
		if st == t {
			return true
		}
	}
	return false
}

// ParseSourceType converts a raw tag into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown source type %q", s)
	}
	return t, nil
}

// SyncStatus is the coarse sync state persisted on a content source.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
)

// JSONMap is a custom type for storing free-form JSON objects in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// String returns the string value stored under key, or "".
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Bool returns the boolean stored under key, or def when missing or not a bool.
func (m JSONMap) Bool(key string, def bool) bool {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

// Strings returns the string list stored under key. A single string value is
// treated as a one-element list.
func (m JSONMap) Strings(key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// ContentSource is a configured connection to one external system (or the
// internal video table) for one organization.
type ContentSource struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID string     `gorm:"type:text;not null;index:idx_content_sources_org_type" json:"organization_id"`
	Type           SourceType `gorm:"type:text;not null;index:idx_content_sources_org_type" json:"type"`
	Name           string     `gorm:"type:text;not null" json:"name"`
	Config         JSONMap    `gorm:"type:text" json:"config"`
	// Credentials are opaque to the core and never serialized to API clients.
	Credentials    JSONMap    `gorm:"type:text" json:"-"`
	SyncStatus     SyncStatus `gorm:"type:text;default:idle" json:"sync_status"`
	ErrorMessage   *string    `gorm:"type:text" json:"error_message,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncCursor string     `gorm:"type:text" json:"last_sync_cursor,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ContentSource.
func (ContentSource) TableName() string {
	return "content_sources"
}

// SourcePatch describes a partial update of a content source. Nil fields are
// left untouched; ClearErrorMessage sets error_message to NULL.
type SourcePatch struct {
	SyncStatus        *SyncStatus
	ErrorMessage      *string
	ClearErrorMessage bool
	LastSyncAt        *time.Time
	LastSyncCursor    *string
}

// Empty reports whether the patch changes nothing.
func (p SourcePatch) Empty() bool {
	return p.SyncStatus == nil && p.ErrorMessage == nil && !p.ClearErrorMessage &&
		p.LastSyncAt == nil && p.LastSyncCursor == nil
}

// Apply copies the patch onto src in memory.
func (p SourcePatch) Apply(src *ContentSource) {
	if p.SyncStatus != nil {
		src.SyncStatus = *p.SyncStatus
	}
	if p.ClearErrorMessage {
		src.ErrorMessage = nil
	}
	if p.ErrorMessage != nil {
		msg := *p.ErrorMessage
		src.ErrorMessage = &msg
	}
	if p.LastSyncAt != nil {
		t := *p.LastSyncAt
		src.LastSyncAt = &t
	}
	if p.LastSyncCursor != nil {
		src.LastSyncCursor = *p.LastSyncCursor
	}
}
