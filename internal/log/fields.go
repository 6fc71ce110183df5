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
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwnerID    = "owner_id"
	FieldUserID     = "user_id"
	FieldCoinID     = "coin_id"
	FieldCoinName   = "coin_name"
	FieldMaterial   = "material"
	FieldPriceCents = "price_cents"
	FieldSortOrder  = "sort"
	FieldFilter     = "material_filter"
	FieldBackend    = "backend"
	FieldMonth      = "month"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentAuth    = "auth"
	ComponentShell   = "shell"
	ComponentRecords = "records"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSignIn   = "sign_in"
	OpSignUp   = "sign_up"
	OpSignOut  = "sign_out"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
