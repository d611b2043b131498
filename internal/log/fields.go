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
	FieldKey        = "key"
	FieldUserID     = "user_id"
	FieldEmail      = "email"
	FieldAmount     = "amount_cents"
	FieldMonth      = "month"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentSession  = "session"
	ComponentLedger   = "ledger"
	ComponentBudget   = "budget"
	ComponentReport   = "report"
	ComponentActivity = "activity"
	ComponentExport   = "export"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
)
