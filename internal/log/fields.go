package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldUserID     = "user_id"
	FieldState      = "state"
	FieldKey        = "key"
	FieldEvent      = "event"
	FieldCacheKey   = "cache_key"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentAPI        = "api"
	ComponentSession    = "session"
	ComponentStore      = "store"
	ComponentRepository = "repository"
	ComponentCache      = "cache"
	ComponentEvents     = "events"
	ComponentSheets     = "sheets"
	ComponentTrace      = "trace"
)

// Operations defines standard operation names
const (
	OpRestore = "restore"
	OpSignIn  = "sign_in"
	OpSignOut = "sign_out"
	OpUpdate  = "update_user"
	OpGet     = "get"
	OpSet     = "set"
	OpRemove  = "remove"
	OpList    = "list"
	OpCreate  = "create"
	OpDelete  = "delete"
	OpPublish = "publish"
	OpExport  = "export"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeStorage    = "storage_error"
	ErrorTypeNetwork    = "network_error"
	ErrorTypeRemote     = "remote_error"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeCorrupt    = "corrupt_state"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the user id. Never add tokens or e-mail addresses here.
func (f LogFields) WithUser(id int64) LogFields {
	f[FieldUserID] = id
	return f
}

// WithPeriod adds year and month fields
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithHTTPResponse adds HTTP exchange fields
func (f LogFields) WithHTTPResponse(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode >= 200 && statusCode < 300
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
