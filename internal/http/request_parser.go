package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moneytracker/internal/core"
)

// maxBodyBytes bounds form and JSON bodies.
const maxBodyBytes = 64 << 10

var errInvalidRange = errors.New("from date is after to date")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters. Missing or
// out of range values fall back to today's year and month.
func ParseMonthParams(query url.Values, today core.Date) MonthParams {
	params := MonthParams{Year: today.Year(), Month: today.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= 1 && y <= 9999 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}
	return params
}

// ParseDateParam parses a YYYY-MM-DD value. Blank values yield the zero Date.
func ParseDateParam(v string) (core.Date, error) {
	v = sanitizeInput(v)
	if v == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

// ParseDateRange reads from/to query parameters. Missing bounds default to
// the first and last day of today's month.
func ParseDateRange(query url.Values, today core.Date) (from, to core.Date, err error) {
	from, err = ParseDateParam(query.Get("from"))
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	to, err = ParseDateParam(query.Get("to"))
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	if from.IsZero() {
		from = today.FirstOfMonth()
	}
	if to.IsZero() {
		to = today.LastOfMonth()
	}
	if from.After(to.Time) {
		return core.Date{}, core.Date{}, fmt.Errorf("%w: %s > %s", errInvalidRange, from, to)
	}
	return from, to, nil
}

// ParseAmounts reads one field per category key using get.
func ParseAmounts(get func(string) string) (core.Amounts, error) {
	raw := make(map[core.Category]string, len(core.Categories()))
	for _, c := range core.Categories() {
		raw[c] = sanitizeInput(get(c.Key()))
	}
	return core.ParseAmounts(raw)
}

// BodyValues holds the fields of a JSON object or form encoded body.
type BodyValues map[string]string

// Get returns the sanitized value of key, or "".
func (b BodyValues) Get(key string) string { return b[key] }

// ReadBody decodes r's body as JSON when it is declared or looks like an
// object, otherwise as a form. Non-string JSON scalars are stringified.
func ReadBody(r *http.Request) (BodyValues, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	out := BodyValues{}
	if len(raw) == 0 {
		return out, nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") || raw[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		for k, v := range obj {
			switch x := v.(type) {
			case string:
				out[k] = sanitizeInput(x)
			case float64:
				out[k] = strconv.FormatFloat(x, 'f', -1, 64)
			case bool:
				out[k] = strconv.FormatBool(x)
			}
		}
		return out, nil
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode form body: %w", err)
	}
	for k := range form {
		out[k] = sanitizeInput(form.Get(k))
	}
	return out, nil
}

// RequireMethod returns a 405 response unless r uses one of methods.
func RequireMethod(r *http.Request, methods ...string) *Response {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowed(strings.Join(methods, ", "))
}

func RequirePOST(r *http.Request) *Response {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET also accepts HEAD.
func RequireGET(r *http.Request) *Response {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// ParseFormOrFail parses a size bounded form, or returns a 400 response.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *Response {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequest("Invalid request format")
	}
	return nil
}
