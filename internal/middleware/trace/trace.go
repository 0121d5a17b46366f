// Package trace assigns request IDs and logs request start and completion.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"moneytracker/internal/log"
)

// HeaderRequestID is read from the request and echoed on the response.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// Tracer tags every request with an ID and a request scoped logger.
type Tracer struct {
	logger   *log.Logger
	events   *log.StructuredLogger
	clientIP func(*http.Request) string
	served   atomic.Int64
}

// New returns a Tracer. clientIP may be nil.
func New(logger *log.Logger, clientIP func(*http.Request) string) *Tracer {
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return &Tracer{logger: logger, events: log.NewStructuredLogger(logger), clientIP: clientIP}
}

// Wrap reuses an incoming X-Request-ID or mints one, stores it and a tagged
// logger in the request context and logs the outcome.
func (t *Tracer) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ip := t.clientIP(r)
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = NewRequestID()
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx = log.NewContext(ctx, t.logger.With(log.FieldRequestID, id))
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, id)

		t.served.Add(1)
		t.events.LogHTTPStart(ctx, r, id, ip)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		t.events.LogHTTPEnd(ctx, r, id, sw.status, time.Since(began).Milliseconds(), ip)
	})
}

// TotalRequests is the number of requests seen since start.
func (t *Tracer) TotalRequests() int64 { return t.served.Load() }

// statusWriter records the first status sent.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status, w.written = code, true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// NewRequestID returns "req_" and 16 hex digits.
func NewRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req_" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return "req_" + hex.EncodeToString(b[:])
}

// RequestID returns the ID stored by Wrap, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
