// Package memory is an in-process spreadsheet mirror used in development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"moneytracker/internal/core"
	ports "moneytracker/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.SpendingRecord
	// writes counts Mirror calls, including overwrites.
	writes int
}

var (
	_ ports.RecordMirror = (*Mirror)(nil)
	_ ports.MirrorReader = (*Mirror)(nil)
)

func New() *Mirror { return &Mirror{} }

// Mirror stores rec, replacing the row of the same date, and returns a
// synthetic row reference.
func (m *Mirror) Mirror(_ context.Context, rec core.SpendingRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for i, r := range m.rows {
		if r.Date.Equal(rec.Date.Time) {
			m.rows[i] = rec
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, rec)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// ListMonth returns the mirrored rows of a month ordered by date.
func (m *Mirror) ListMonth(_ context.Context, year int, month int) ([]core.SpendingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.SpendingRecord
	for _, r := range m.rows {
		if r.Date.Year() == year && r.Date.Month() == month {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

// Writes reports how many times Mirror succeeded.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
