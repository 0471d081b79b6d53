package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when a content source id does not resolve.
	ErrSourceNotFound = errors.New("content source not found")
	// ErrAdapterNotFound is returned when no adapter is registered for a source type.
	ErrAdapterNotFound = errors.New("no adapter registered for source type")
	// ErrAuth is returned when a source's credentials are rejected.
	ErrAuth = errors.New("invalid or expired credentials")
	// ErrItemNotFound is returned when a content item id does not resolve.
	ErrItemNotFound = errors.New("content item not found")
)

// SyncError wraps a failure that aborted a sync of one source.
type SyncError struct {
	SourceID string
	Op       string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s failed for source %s: %v", e.Op, e.SourceID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ProcessingError wraps a failure of the enrichment pipeline for one item.
type ProcessingError struct {
	ItemID string
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process item %s: %v", e.ItemID, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
