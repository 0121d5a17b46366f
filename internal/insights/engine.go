// Package insights turns per-day spending records into comparisons,
// projections and a feedback advisory.
//
// Every function here is pure: callers hand in the history they loaded from
// storage and get values back. Non-finite or negative totals are treated as 0.
package insights

import (
	"math"

	"moneytracker/internal/core"
)

const (
	// DaysPerMonth and DaysPerYear are linear extrapolation factors, not calendar accurate.
	DaysPerMonth = 30
	DaysPerYear  = 365

	weekWindow  = 7
	monthWindow = 30
)

// ComparisonStats compares the selected day to the days preceding it.
type ComparisonStats struct {
	CurrentTotal float64
	PrevDayTotal float64
	PrevWeekAvg  float64
	PrevMonthAvg float64
}

// AverageSource tells which records fed a projection.
type AverageSource string

const (
	SourceMonth   AverageSource = "month"
	SourceHistory AverageSource = "history"
	SourceNone    AverageSource = "none"
)

// Projection is a linear extrapolation of a daily average.
type Projection struct {
	Daily  float64
	Month  float64
	Year   float64
	Source AverageSource
}

// CompareToHistory computes the selected day's total against the previous
// day and the trailing 7 and 30 day windows. Windows are half-open: the
// selected date itself never contributes to an average.
func CompareToHistory(history []core.SpendingRecord, selected core.Date) ComparisonStats {
	var stats ComparisonStats
	if len(history) == 0 {
		return stats
	}

	prevDay := selected.AddDays(-1)
	weekStart := selected.AddDays(-weekWindow)
	monthStart := selected.AddDays(-monthWindow)

	var weekSum, monthSum float64
	var weekN, monthN int
	for _, r := range history {
		total := sanitize(r.Total)
		switch {
		case r.Date.Equal(selected.Time):
			stats.CurrentTotal = total
		case r.Date.Equal(prevDay.Time):
			stats.PrevDayTotal = total
		}
		if inWindow(r.Date, weekStart, selected) {
			weekSum += total
			weekN++
		}
		if inWindow(r.Date, monthStart, selected) {
			monthSum += total
			monthN++
		}
	}
	stats.PrevWeekAvg = mean(weekSum, weekN)
	stats.PrevMonthAvg = mean(monthSum, monthN)
	return stats
}

// ProjectMonthAndYear extrapolates the daily average of the selected
// calendar month to 30 and 365 days.
func ProjectMonthAndYear(history []core.SpendingRecord, selected core.Date) (month, year float64) {
	p := Project(history, selected)
	return p.Month, p.Year
}

// Project is ProjectMonthAndYear with the daily average and its source.
// When the selected month has no records the mean over the whole history is
// used instead; an empty history projects to zero.
func Project(history []core.SpendingRecord, selected core.Date) Projection {
	var monthSum, allSum float64
	var monthN int
	for _, r := range history {
		total := sanitize(r.Total)
		allSum += total
		if r.Date.SameMonth(selected) {
			monthSum += total
			monthN++
		}
	}

	p := Projection{Source: SourceNone}
	switch {
	case monthN > 0:
		p.Daily = mean(monthSum, monthN)
		p.Source = SourceMonth
	case len(history) > 0:
		p.Daily = mean(allSum, len(history))
		p.Source = SourceHistory
	}
	p.Month = p.Daily * DaysPerMonth
	p.Year = p.Daily * DaysPerYear
	return p
}

// AnnualizeOneDay models "if today repeats every day for a year".
func AnnualizeOneDay(total float64) float64 {
	return sanitize(total) * DaysPerYear
}

// MonthlyFromOneDay models "if today repeats every day for a month".
func MonthlyFromOneDay(total float64) float64 {
	return sanitize(total) * DaysPerMonth
}

func inWindow(d, start, end core.Date) bool {
	return !d.Before(start.Time) && d.Before(end.Time)
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
