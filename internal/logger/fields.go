package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSyncID identifies one run of the sync orchestrator
	FieldSyncID = "sync_id"

	// FieldSourceID is the content source being synced
	FieldSourceID = "source_id"

	// FieldSourceType is the adapter type tag (notion, slack, ...)
	FieldSourceType = "source_type"

	// FieldItemID is the content item being processed
	FieldItemID = "item_id"

	// FieldOrganizationID is the owning organization
	FieldOrganizationID = "organization_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldErrors is the number of item-level failures
	FieldErrors = "errors"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
