package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"moneytracker/internal/core"
)

// Client-side event names raised through HX-Trigger.
const (
	eventSpendingSaved   = "spending:saved"
	eventCalendarRefresh = "calendar:refresh"
	eventToast           = "show-notification"
)

// ToastKind selects the style of the toast shown by app.js.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

// Response accumulates the status, headers, HX-Trigger events and body of an
// HTMX reply and writes them in one go.
type Response struct {
	code   int
	header http.Header
	events map[string]any
	body   []byte
}

// NewResponse starts a 200 response.
func NewResponse() *Response {
	return &Response{code: http.StatusOK, header: http.Header{}, events: map[string]any{}}
}

func (r *Response) Code(code int) *Response {
	r.code = code
	return r
}

// Event raises a client-side event; payload may be nil.
func (r *Response) Event(name string, payload any) *Response {
	r.events[name] = payload
	return r
}

// SpendingSaved lets the trend chart reload after a save.
func (r *Response) SpendingSaved(date core.Date, total float64) *Response {
	return r.Event(eventSpendingSaved, map[string]any{"date": date.String(), "total": total})
}

// RefreshCalendar makes the calendar partial fetch itself again.
func (r *Response) RefreshCalendar(year, month int) *Response {
	return r.Event(eventCalendarRefresh, map[string]int{"year": year, "month": month})
}

// Notify shows a toast for durationMs milliseconds.
func (r *Response) Notify(kind ToastKind, message string, durationMs int) *Response {
	return r.Event(eventToast, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (r *Response) Succeeded(message string) *Response {
	return r.Notify(ToastSuccess, message, 3000)
}

func (r *Response) Failed(message string) *Response {
	return r.Notify(ToastError, message, 5000)
}

func (r *Response) Set(name, value string) *Response {
	r.header.Set(name, value)
	return r
}

func (r *Response) Body(b []byte) *Response {
	r.body = b
	return r
}

// HTML sets a rendered fragment as the body.
func (r *Response) HTML(fragment []byte) *Response {
	r.header.Set("Content-Type", "text/html; charset=utf-8")
	r.body = fragment
	return r
}

func (r *Response) Write(w http.ResponseWriter) {
	dst := w.Header()
	for k, vs := range r.header {
		dst[k] = vs
	}
	if len(r.events) > 0 {
		if raw, err := json.Marshal(r.events); err == nil {
			dst.Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(r.code)
	if len(r.body) > 0 {
		_, _ = w.Write(r.body)
	}
}

// ErrorPartial renders message as an error block and raises an error toast.
func ErrorPartial(code int, message string) *Response {
	return NewResponse().
		Code(code).
		Failed(message).
		HTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequest(message string) *Response { return ErrorPartial(http.StatusBadRequest, message) }
func Unprocessable(message string) *Response {
	return ErrorPartial(http.StatusUnprocessableEntity, message)
}
func ServerError(message string) *Response {
	return ErrorPartial(http.StatusInternalServerError, message)
}
func NotFound(message string) *Response { return ErrorPartial(http.StatusNotFound, message) }

// MethodNotAllowed answers 405 with the Allow header set.
func MethodNotAllowed(allowed string) *Response {
	return NewResponse().Code(http.StatusMethodNotAllowed).Set("Allow", allowed)
}
