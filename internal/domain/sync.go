package domain

import (
	"time"
)

// SyncRunStatus represents the status of a sync run.
// Values include SyncRunPending, SyncRunRunning, SyncRunCompleted, and SyncRunFailed.
type SyncRunStatus string

const (
	SyncRunPending   SyncRunStatus = "pending"
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunCompleted SyncRunStatus = "completed"
	SyncRunFailed    SyncRunStatus = "failed"
)

// SyncErrorEntry is one item-level or page-level failure recorded during a sync.
// ItemID holds the external id of the failing raw item, empty for page failures.
type SyncErrorEntry struct {
	Message string `json:"message"`
	ItemID  string `json:"item_id,omitempty"`
}

// SyncProgress is the in-memory snapshot of a running or finished sync.
type SyncProgress struct {
	SourceID       string           `json:"source_id"`
	Status         SyncRunStatus    `json:"status"`
	ItemsProcessed int              `json:"items_processed"`
	TotalItems     *int             `json:"total_items,omitempty"`
	Errors         []SyncErrorEntry `json:"errors"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the tracker.
func (p SyncProgress) Clone() SyncProgress {
	out := p
	out.Errors = make([]SyncErrorEntry, len(p.Errors))
	copy(out.Errors, p.Errors)
	if p.TotalItems != nil {
		n := *p.TotalItems
		out.TotalItems = &n
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// SyncRun is the persisted record of one finished sync of a content source.
type SyncRun struct {
	ID             string        `gorm:"type:text;primaryKey" json:"id"`
	SourceID       string        `gorm:"type:text;not null;index" json:"source_id"`
	OrganizationID string        `gorm:"type:text;not null" json:"organization_id"`
	Status         SyncRunStatus `gorm:"type:text;default:pending" json:"status"`
	ProcessedItems int           `gorm:"default:0" json:"processed_items"`
	FailedItems    int           `gorm:"default:0" json:"failed_items"`
	StartCursor    string        `gorm:"type:text" json:"start_cursor,omitempty"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	ErrorLog       string        `gorm:"type:text" json:"error_log,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName returns the database table name for SyncRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (SyncRun) TableName() string {
	return "sync_runs"
}
