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
	FieldService    = "service"
	FieldProvider   = "provider"
	FieldTxType     = "tx_type"
	FieldAmount     = "amount"
	FieldBalance    = "balance"
	FieldPool       = "pool"
	FieldDate       = "date"
	FieldEventID    = "event_id"
	FieldEventKind  = "event_kind"
	FieldStoreKey   = "store_key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentDashboard = "dashboard"
	ComponentStore     = "store"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
)
