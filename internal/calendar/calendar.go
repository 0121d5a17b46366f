// Package calendar lays out a Sunday-first month grid of spending records.
package calendar

import (
	"fmt"
	"time"

	"moneytracker/internal/core"
)

// Weekdays are the column headings, Sunday first.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Entry is one non-zero category amount shown in a day cell.
type Entry struct {
	Category core.Category
	Amount   float64
}

// Cell is one day of the grid. Padding cells before the first and after the
// last day have Day == 0.
type Cell struct {
	Day       int
	Date      core.Date
	Entries   []Entry
	Total     float64
	HasRecord bool
	IsToday   bool
}

// Month is a grid of full weeks.
type Month struct {
	Year  int
	Month int
	Title string
	Weeks [][]Cell
	Total float64
}

// Build lays out year/month, filling cells from records of that month.
func Build(year, month int, records []core.SpendingRecord, today core.Date) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidDate)
	}
	if year < 1 || year > 9999 {
		return Month{}, fmt.Errorf("year %d: %w", year, core.ErrInvalidDate)
	}

	first := core.NewDate(year, month, 1)
	last := first.LastOfMonth()
	byDate := core.IndexByDate(records)

	m := Month{
		Year:  year,
		Month: month,
		Title: fmt.Sprintf("%s %d", time.Month(month), year),
	}

	week := make([]Cell, 0, 7)
	for i := 0; i < int(first.Weekday()); i++ {
		week = append(week, Cell{})
	}
	for d := first; !d.After(last.Time); d = d.AddDays(1) {
		c := Cell{Day: d.Day(), Date: d, IsToday: d.Equal(today.Time)}
		if rec, ok := byDate[d.String()]; ok {
			c.HasRecord = true
			c.Total = rec.Total
			m.Total += rec.Total
			for _, cat := range core.Categories() {
				if v := rec.Get(cat); v > 0 {
					c.Entries = append(c.Entries, Entry{Category: cat, Amount: v})
				}
			}
		}
		week = append(week, c)
		if len(week) == 7 {
			m.Weeks = append(m.Weeks, week)
			week = make([]Cell, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Cell{})
		}
		m.Weeks = append(m.Weeks, week)
	}
	return m, nil
}

// YearOptions returns the selectable years, two before today's through one after.
func YearOptions(today core.Date) []int {
	y := today.Year()
	out := make([]int, 0, 4)
	for i := y - 2; i <= y+1; i++ {
		out = append(out, i)
	}
	return out
}

// MonthOption is a value/label pair for the month selector.
type MonthOption struct {
	Value int
	Label string
}

// MonthOptions returns January through December.
func MonthOptions() []MonthOption {
	out := make([]MonthOption, 12)
	for i := range out {
		out[i] = MonthOption{Value: i + 1, Label: time.Month(i + 1).String()}
	}
	return out
}
