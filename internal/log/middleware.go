package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger writes the request and spending events with a fixed set
// of attributes.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) emit(ctx context.Context, level slog.Level, msg, component string, args []any) {
	sl.logger.Logger.Log(ctx, level, msg, append([]any{FieldComponent, component}, args...)...)
}

func requestArgs(r *http.Request, requestID, clientIP string) []any {
	args := []any{FieldMethod, r.Method, FieldPath, r.URL.Path}
	if r.URL.RawQuery != "" {
		args = append(args, FieldQuery, r.URL.RawQuery)
	}
	if requestID != "" {
		args = append(args, FieldRequestID, requestID)
	}
	return append(args, FieldClientIP, clientIP)
}

// LogHTTPStart logs an incoming request at debug level.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	args := requestArgs(r, requestID, clientIP)
	if ua := r.UserAgent(); ua != "" {
		args = append(args, FieldUserAgent, ua)
	}
	sl.emit(ctx, slog.LevelDebug, "HTTP request started", ComponentHTTP, args)
}

// LogHTTPEnd logs a finished request: 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	args := append(requestArgs(r, requestID, clientIP),
		FieldStatusCode, statusCode,
		FieldDuration, durationMs,
		FieldSuccess, statusCode < 400,
	)
	sl.emit(ctx, level, "HTTP request completed", ComponentHTTP, args)
}

func (sl *StructuredLogger) LogSpendingSaved(ctx context.Context, date string, food, shopping, leisure, other, total float64) {
	args := append(SpendingFields(date, food, shopping, leisure, other, total).args(), FieldOperation, OpSave)
	sl.emit(ctx, slog.LevelInfo, "Spending saved", ComponentSpending, args)
}

// LogError logs err with the failing component and operation. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	args := append(fields.args(), FieldOperation, operation)
	if err != nil {
		args = append(args, FieldError, err.Error())
	}
	sl.emit(ctx, slog.LevelError, msg, component, args)
}
