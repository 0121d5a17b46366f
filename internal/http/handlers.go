package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"moneytracker/internal/calendar"
	"moneytracker/internal/core"
	"moneytracker/internal/export"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
)

// CategoryField is one category input with its current value.
type CategoryField struct {
	Key   string
	Label string
	Color string
	Value float64
}

type calendarData struct {
	Calendar calendar.Month
	Years    []int
	Months   []calendar.MonthOption
	Weekdays []string
	Legend   []CategoryField
}

type indexData struct {
	Dashboard      services.Dashboard
	Fields         []CategoryField
	Calendar       calendarData
	QuoteModel     string
	ServerQuoteKey bool
}

func categoryFields(a core.Amounts) []CategoryField {
	out := make([]CategoryField, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		out = append(out, CategoryField{Key: c.Key(), Label: c.Label(), Color: c.Color(), Value: a.Get(c)})
	}
	return out
}

func (s *Server) calendarData(ctx context.Context, year, month int) (calendarData, error) {
	recs, err := s.svc.Month(ctx, year, month)
	if err != nil {
		return calendarData{}, err
	}
	today := s.svc.Today()
	m, err := calendar.Build(year, month, recs, today)
	if err != nil {
		return calendarData{}, err
	}
	return calendarData{
		Calendar: m,
		Years:    calendar.YearOptions(today),
		Months:   calendar.MonthOptions(),
		Weekdays: calendar.Weekdays,
		Legend:   categoryFields(core.Amounts{}),
	}, nil
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests":  s.tracer.TotalRequests(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.svc.Ready(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["cache"] = map[string]any{"month_entries": s.svc.MonthCache().Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "rejected": s.limiter.Hits()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFound("Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	// an unparseable date shows today
	date, _ := ParseDateParam(r.URL.Query().Get("date"))
	d, err := s.svc.Dashboard(ctx, date, nil)
	if err != nil {
		s.structured.LogError(ctx, "Failed to load dashboard", err, log.ComponentStorage, log.OpRead, nil)
		http.Error(w, "Failed to load spending history", http.StatusInternalServerError)
		return
	}
	cal, err := s.calendarData(ctx, d.Date.Year(), d.Date.Month())
	if err != nil {
		s.structured.LogError(ctx, "Failed to load calendar", err, log.ComponentStorage, log.OpRead, nil)
		http.Error(w, "Failed to load spending history", http.StatusInternalServerError)
		return
	}

	body, err := s.render("index.html", indexData{
		Dashboard:      d,
		Fields:         categoryFields(d.Amounts),
		Calendar:       cal,
		QuoteModel:     s.opts.QuoteModel,
		ServerQuoteKey: s.opts.ServerQuoteKey,
	})
	if err != nil {
		s.structured.LogError(ctx, "Index template execution failed", err, log.ComponentTemplate, log.OpRender, nil)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	NewResponse().HTML(body).Write(w)
}

// handleSaveSpending upserts the day and answers with the refreshed dashboard.
func (s *Server) handleSaveSpending(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	date, amounts, ok := s.parseDayForm(w, r.PostForm.Get)
	if !ok {
		return
	}
	if date.IsZero() {
		Unprocessable("A date is required").Write(w)
		return
	}

	rec, err := s.svc.Save(ctx, date, amounts)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			Unprocessable(msg).Write(w)
			return
		}
		s.structured.LogError(ctx, "Failed to save spending", err, log.ComponentStorage, log.OpSave,
			log.SpendingFields(date.String(), amounts.Food, amounts.Shopping, amounts.Leisure, amounts.Other, amounts.Total()))
		ServerError("Error saving spending").Write(w)
		return
	}
	s.structured.LogSpendingSaved(ctx, rec.Date.String(), rec.Food, rec.Shopping, rec.Leisure, rec.Other, rec.Total)

	d, err := s.svc.Dashboard(ctx, rec.Date, nil)
	if err != nil {
		s.structured.LogError(ctx, "Failed to reload dashboard after save", err, log.ComponentStorage, log.OpRead, nil)
		ServerError("Saved, but the dashboard could not be refreshed").Write(w)
		return
	}
	body, err := s.render("dashboard", d)
	if err != nil {
		s.structured.LogError(ctx, "Dashboard template execution failed", err, log.ComponentTemplate, log.OpRender, nil)
		ServerError("Saved, but the dashboard could not be rendered").Write(w)
		return
	}

	NewResponse().
		SpendingSaved(rec.Date, rec.Total).
		RefreshCalendar(rec.Date.Year(), rec.Date.Month()).
		Succeeded(fmt.Sprintf("Saved %s: %s", rec.Date, core.FormatUSD(rec.Total))).
		HTML(body).
		Write(w)
}

// handlePreview recomputes total, feedback and perspectives for unsaved input.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	date, amounts, ok := s.parseDayForm(w, r.PostForm.Get)
	if !ok {
		return
	}
	d, err := s.svc.Dashboard(ctx, date, &amounts)
	if err != nil {
		s.structured.LogError(ctx, "Failed to build preview", err, log.ComponentStorage, log.OpPreview, nil)
		ServerError("Failed to load spending history").Write(w)
		return
	}
	s.writePartial(w, r, "dashboard", d)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	p := ParseMonthParams(r.URL.Query(), s.svc.Today())

	data, err := s.calendarData(ctx, p.Year, p.Month)
	if err != nil {
		s.structured.LogError(ctx, "Failed to load calendar", err, log.ComponentStorage, log.OpRead,
			log.LogFields{log.FieldYear: p.Year, log.FieldMonth: p.Month})
		ServerError("Failed to load calendar").Write(w)
		return
	}
	s.writePartial(w, r, "calendar", data)
}

// handleQuote accepts form or JSON bodies.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	p, err := ReadBody(r)
	if err != nil {
		BadRequest("Invalid request format").Write(w)
		return
	}

	date, amounts, ok := s.parseDayForm(w, p.Get)
	if !ok {
		return
	}
	res, err := s.svc.Quote(ctx, services.QuoteInput{
		Date:    date,
		Amounts: amounts,
		APIKey:  p.Get("api_key"),
		Model:   p.Get("model"),
	})
	if err != nil {
		s.structured.LogError(ctx, "Failed to prepare quote", err, log.ComponentStorage, log.OpQuote, nil)
		ServerError("Failed to load spending history").Write(w)
		return
	}
	if res.Failed() {
		s.logger.WarnContext(ctx, "Quote not generated", log.FieldOperation, log.OpQuote, "reason", res.Err)
	}
	s.writePartial(w, r, "quote", res)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	from, errFrom := ParseDateParam(q.Get("from"))
	to, errTo := ParseDateParam(q.Get("to"))
	if errFrom != nil || errTo != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dates must be YYYY-MM-DD"})
		return
	}
	trend, err := s.svc.Trend(ctx, from, to)
	if err != nil {
		s.structured.LogError(ctx, "Failed to load trend", err, log.ComponentStorage, log.OpRead, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load spending history"})
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

type exportFormat struct {
	ext         string
	contentType string
	write       func(w *bytes.Buffer, recs []core.SpendingRecord, from, to core.Date) error
}

var (
	exportXLSX = exportFormat{
		ext:         "xlsx",
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write: func(w *bytes.Buffer, recs []core.SpendingRecord, from, to core.Date) error {
			return export.WriteXLSX(w, recs, from, to)
		},
	}
	exportCSV = exportFormat{
		ext:         "csv",
		contentType: "text/csv; charset=utf-8",
		write: func(w *bytes.Buffer, recs []core.SpendingRecord, _, _ core.Date) error {
			return export.WriteCSV(w, recs)
		},
	}
)

// handleExport downloads the records in [from, to], defaulting to the
// current month.
func (s *Server) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireGET(r); resp != nil {
			resp.Write(w)
			return
		}
		ctx := r.Context()

		from, to, err := ParseDateRange(r.URL.Query(), s.svc.Today())
		if err != nil {
			msg, _ := validationMessage(err)
			Unprocessable(msg).Write(w)
			return
		}
		recs, err := s.svc.Range(ctx, from, to)
		if err != nil {
			s.structured.LogError(ctx, "Failed to load export range", err, log.ComponentStorage, log.OpExport, nil)
			ServerError("Failed to load spending history").Write(w)
			return
		}

		var buf bytes.Buffer
		if err := format.write(&buf, recs, from, to); err != nil {
			s.structured.LogError(ctx, "Failed to build export", err, log.ComponentExport, log.OpExport, nil)
			ServerError("Failed to build export").Write(w)
			return
		}
		s.logger.InfoContext(ctx, "Export generated",
			log.FieldOperation, log.OpExport, "format", format.ext, "rows", len(recs), "from", from.String(), "to", to.String())

		NewResponse().
			Set("Content-Type", format.contentType).
			Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(from, to, format.ext))).
			Body(buf.Bytes()).
			Write(w)
	}
}

// parseDayForm reads the date and category amounts shared by the save,
// preview and quote forms. It writes a 422 and returns false on bad input.
func (s *Server) parseDayForm(w http.ResponseWriter, get func(string) string) (core.Date, core.Amounts, bool) {
	date, err := ParseDateParam(get("date"))
	if err != nil {
		msg, _ := validationMessage(err)
		Unprocessable(msg).Write(w)
		return core.Date{}, core.Amounts{}, false
	}
	amounts, err := ParseAmounts(get)
	if err != nil {
		msg, _ := validationMessage(err)
		Unprocessable(msg).Write(w)
		return core.Date{}, core.Amounts{}, false
	}
	return date, amounts, true
}

func (s *Server) writePartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.render(name, data)
	if err != nil {
		s.structured.LogError(r.Context(), "Partial template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.LogFields{"template": name})
		ServerError("Failed to render").Write(w)
		return
	}
	NewResponse().HTML(body).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
