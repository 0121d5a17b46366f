package core

import (
	"fmt"
	"sort"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   float64
}

// PeriodSummary is a compact summary of the records between two dates.
type PeriodSummary struct {
	From       Date
	To         Date
	Days       int // days with a record
	Total      float64
	ByCategory []CategoryAmount
}

// Summarize folds records into a PeriodSummary. Records outside [from, to]
// are ignored.
func Summarize(records []SpendingRecord, from, to Date) PeriodSummary {
	sums := make([]float64, len(Categories()))
	s := PeriodSummary{From: from, To: to}
	for _, r := range records {
		if r.Date.Before(from.Time) || r.Date.After(to.Time) {
			continue
		}
		s.Days++
		for i, c := range Categories() {
			sums[i] += r.Get(c)
		}
	}
	var a Amounts
	for i, c := range Categories() {
		a.Set(c, sums[i])
		s.ByCategory = append(s.ByCategory, CategoryAmount{Category: c, Amount: sums[i]})
	}
	s.Total = a.Total()
	return s
}

// SortByDate orders records ascending by date, in place.
func SortByDate(records []SpendingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date.Time)
	})
}

// IndexByDate maps each record by its YYYY-MM-DD key.
func IndexByDate(records []SpendingRecord) map[string]SpendingRecord {
	idx := make(map[string]SpendingRecord, len(records))
	for _, r := range records {
		idx[r.Date.String()] = r
	}
	return idx
}

func categoryError(c Category, err error) error {
	return fmt.Errorf("%s: %w", c.Key(), err)
}
