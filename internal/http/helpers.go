package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"moneytracker/internal/core"
	"moneytracker/internal/services"
)

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"usd":   core.FormatUSD,
	"whole": core.FormatWhole,
	"pct": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
	"dict": dict,
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// render executes a named template into memory so a failure never leaves a
// half written response.
func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validationMessage maps input errors to user facing text. The second result
// is false for errors that are not caused by the input.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrFutureDate):
		return "Future dates cannot be saved", true
	case errors.Is(err, core.ErrNegativeAmount):
		return "Amounts cannot be negative: " + err.Error(), true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amounts must be numbers: " + err.Error(), true
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date, expected YYYY-MM-DD", true
	case errors.Is(err, errInvalidRange):
		return "The start date must not be after the end date", true
	}
	return "", false
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
