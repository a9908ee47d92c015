package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldAccountID  = "account_id"
	FieldDimension  = "dimension"
	FieldPageSize   = "page_size"
	FieldOffset     = "offset"
	FieldBuckets    = "buckets"
	FieldGrandTotal = "grand_total"
	FieldBalance    = "balance"
	FieldScope      = "scope"
	FieldGeneration = "generation"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentRestAPI   = "restapi"
	ComponentReport    = "report"
	ComponentDirectory = "directory"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpBreakdown = "breakdown"
	OpBalance   = "balance"
	OpRefresh   = "refresh"
	OpList      = "list"
	OpExport    = "export"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
