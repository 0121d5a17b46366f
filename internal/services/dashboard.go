package services

import (
	"context"

	"moneytracker/internal/catalog"
	"moneytracker/internal/core"
	"moneytracker/internal/insights"
	"moneytracker/internal/quote"
)

// Pick is a catalog item matched against a budget.
type Pick struct {
	Kind       catalog.Kind
	Item       catalog.Item
	ImageURL   string
	Affordable bool
}

// Perspective shows what repeating today's spending for Days would buy.
type Perspective struct {
	Days   int
	Amount float64
	Picks  []Pick
}

// Dashboard is everything the main page shows for one date.
type Dashboard struct {
	Date       core.Date
	Today      core.Date
	Amounts    core.Amounts // stored amounts, or the unsaved draft when previewing
	Total      float64
	Saved      bool
	Draft      bool
	Comparison insights.ComparisonStats
	Projection insights.Projection
	Feedback   insights.Feedback
	Annual     Perspective
	Monthly    Perspective
	HasHistory bool
}

// Dashboard loads history once and computes comparisons, projections,
// feedback and perspectives for date. When draft is non-nil the feedback and
// perspectives use the unsaved amounts instead of the stored record.
func (s *SpendingService) Dashboard(ctx context.Context, date core.Date, draft *core.Amounts) (Dashboard, error) {
	date = s.ClampDate(date)

	history, err := s.History(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Date:       date,
		Today:      s.Today(),
		Comparison: insights.CompareToHistory(history, date),
		Projection: insights.Project(history, date),
		HasHistory: len(history) > 0,
	}
	for _, r := range history {
		if r.Date.Equal(date.Time) {
			d.Amounts = r.Amounts
			d.Saved = true
			break
		}
	}
	if draft != nil {
		d.Amounts = *draft
		d.Draft = true
	}
	d.Total = d.Amounts.Total()
	d.Feedback = s.thresholds.Classify(d.Amounts, d.Projection.Year)
	d.Annual = s.perspective(insights.AnnualizeOneDay(d.Total), insights.DaysPerYear, catalog.Car)
	d.Monthly = s.perspective(insights.MonthlyFromOneDay(d.Total), insights.DaysPerMonth, catalog.Laptop, catalog.Phone)
	return d, nil
}

func (s *SpendingService) perspective(amount float64, days int, kinds ...catalog.Kind) Perspective {
	p := Perspective{Days: days, Amount: amount}
	for _, k := range kinds {
		c, err := s.catalogs.Get(k)
		if err != nil {
			continue
		}
		item := c.Pick(amount)
		p.Picks = append(p.Picks, Pick{
			Kind:       k,
			Item:       item,
			ImageURL:   catalog.ImageURL(k, item),
			Affordable: catalog.Affordable(item, amount),
		})
	}
	return p
}

// QuoteInput is what the quote form submits.
type QuoteInput struct {
	Date    core.Date
	Amounts core.Amounts
	APIKey  string
	Model   string
}

// Quote asks the generator for a quote about the given day. Storage errors
// are returned; generator failures come back inside the Result.
func (s *SpendingService) Quote(ctx context.Context, in QuoteInput) (quote.Result, error) {
	d, err := s.Dashboard(ctx, in.Date, &in.Amounts)
	if err != nil {
		return quote.Result{}, err
	}
	return s.quotes.Generate(ctx, quote.Request{
		APIKey:        in.APIKey,
		Model:         in.Model,
		TodayTotal:    d.Total,
		ProjectedYear: d.Projection.Year,
		Feedback:      d.Feedback.Message,
	}), nil
}

// TrendCategory describes one plotted series.
type TrendCategory struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// TrendPoint is one day of the trend chart.
type TrendPoint struct {
	Date     string  `json:"date"`
	Food     float64 `json:"food"`
	Shopping float64 `json:"shopping"`
	Leisure  float64 `json:"leisure"`
	Other    float64 `json:"other"`
	Total    float64 `json:"total"`
}

// Trend is the per-category and total time series.
type Trend struct {
	Categories []TrendCategory `json:"categories"`
	Points     []TrendPoint    `json:"points"`
}

// Trend returns the series for [from, to], or for all history when either
// bound is zero.
func (s *SpendingService) Trend(ctx context.Context, from, to core.Date) (Trend, error) {
	var (
		recs []core.SpendingRecord
		err  error
	)
	if from.IsZero() || to.IsZero() {
		recs, err = s.History(ctx)
	} else {
		recs, err = s.Range(ctx, from, to)
	}
	if err != nil {
		return Trend{}, err
	}
	return BuildTrend(recs), nil
}

// BuildTrend converts records into chart series ordered by date.
func BuildTrend(recs []core.SpendingRecord) Trend {
	sorted := make([]core.SpendingRecord, len(recs))
	copy(sorted, recs)
	core.SortByDate(sorted)

	t := Trend{Points: make([]TrendPoint, 0, len(sorted))}
	for _, c := range core.Categories() {
		t.Categories = append(t.Categories, TrendCategory{Key: c.Key(), Label: c.Label(), Color: c.Color()})
	}
	for _, r := range sorted {
		t.Points = append(t.Points, TrendPoint{
			Date:     r.Date.String(),
			Food:     r.Food,
			Shopping: r.Shopping,
			Leisure:  r.Leisure,
			Other:    r.Other,
			Total:    r.Total,
		})
	}
	return t
}
