package logging

// Common structured log field keys to keep logs searchable/consistent.
const (
	FieldService    = "service"
	FieldVersion    = "version"
	FieldRequestID  = "request_id"
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldStatusCode = "status_code"
	FieldDurationMS = "duration_ms"
	FieldTask       = "task"
	FieldAttempt    = "attempt"
	FieldPending    = "pending"
	FieldEvent      = "event"
	FieldClass      = "class"
	FieldError      = "error"
)
