package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldLookupKind    = "lookup_kind"
	FieldLookupID      = "lookup_id"
	FieldLookupName    = "lookup_name"
	FieldTransactionID = "transaction_id"
	FieldTimestamp     = "timestamp"
	FieldClientID      = "client_id"
	FieldServiceID     = "service_id"
	FieldTotalValue    = "total_value"
	FieldRowCount      = "row_count"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
)

// Operations defines standard operation names
const (
	OpList      = "list"
	OpEnsure    = "ensure"
	OpAppend    = "append"
	OpQuery     = "query"
	OpAggregate = "aggregate"
	OpPublish   = "publish"
	OpParse     = "parse"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithLookup adds reference-data fields
func (f LogFields) WithLookup(kind string, id int64, name string) LogFields {
	f[FieldLookupKind] = kind
	f[FieldLookupID] = id
	f[FieldLookupName] = name
	return f
}

// WithTransaction adds transaction fields
func (f LogFields) WithTransaction(id int64, timestamp string, clientID, serviceID int64, total float64) LogFields {
	f[FieldTransactionID] = id
	f[FieldTimestamp] = timestamp
	f[FieldClientID] = clientID
	f[FieldServiceID] = serviceID
	f[FieldTotalValue] = total
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
