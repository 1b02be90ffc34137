package logger

// Standard field names for consistent structured logging across ontograph.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldBatchID   = "batch_id"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldQuestion  = "question"
	FieldSubject   = "subject"
	FieldObject    = "object"
	FieldEdgeType  = "edge_type"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError  = "error"
	FieldReason = "reason"

	// Counts and sizes
	FieldCount     = "count"
	FieldBatchSize = "batch_size"
	FieldRejected  = "rejected"
	FieldDepth     = "depth"
	FieldVisited   = "visited"

	// Status
	FieldState   = "state"
	FieldOutcome = "outcome"
	FieldHealthy = "healthy"

	// Cache
	FieldCacheHit = "cache_hit"
	FieldEvicted  = "evicted"
)
