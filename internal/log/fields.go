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
	FieldTxnCount   = "transaction_count"
	FieldWindowDays = "window_days"
	FieldEnv        = "plaid_env"
)

// Components defines standard component names
const (
	ComponentApp   = "app"
	ComponentHTTP  = "http"
	ComponentPlaid = "plaid"
	ComponentCache = "cache"
	ComponentCore  = "spending"
)

// Operations defines standard operation names
const (
	OpLinkToken     = "create_link_token"
	OpTokenExchange = "exchange_public_token"
	OpSpending      = "spending"
	OpStartup       = "startup"
	OpShutdown      = "shutdown"
)
