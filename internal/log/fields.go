package log

import "sort"

// Attribute keys.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldDate       = "date"
	FieldTotal      = "total"
	FieldFood       = "food"
	FieldShopping   = "shopping"
	FieldLeisure    = "leisure"
	FieldOther      = "other"
)

// Components.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentSpending = "spending"
	ComponentStorage  = "storage"
	ComponentWorker   = "worker"
	ComponentExport   = "export"
	ComponentTemplate = "template"
)

// Operations.
const (
	OpSave     = "save"
	OpRead     = "read"
	OpPreview  = "preview"
	OpQuote    = "quote"
	OpExport   = "export"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields are extra attributes passed to StructuredLogger.
type LogFields map[string]any

// SpendingFields describes one day's amounts.
func SpendingFields(date string, food, shopping, leisure, other, total float64) LogFields {
	return LogFields{
		FieldDate:     date,
		FieldFood:     food,
		FieldShopping: shopping,
		FieldLeisure:  leisure,
		FieldOther:    other,
		FieldTotal:    total,
	}
}

// args flattens f into key/value pairs sorted by key so output is stable.
func (f LogFields) args() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
