// Package memory is an in-process record store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	records  map[string]core.SpendingRecord
	mirrored map[string]time.Time
	now      func() time.Time
}

var (
	_ storage.Store       = (*Store)(nil)
	_ storage.MirrorQueue = (*Store)(nil)
)

func New() *Store {
	return &Store{
		records:  map[string]core.SpendingRecord{},
		mirrored: map[string]time.Time{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Upsert(_ context.Context, date core.Date, amounts core.Amounts) (core.SpendingRecord, error) {
	if err := date.Validate(); err != nil {
		return core.SpendingRecord{}, err
	}
	if err := amounts.Validate(); err != nil {
		return core.SpendingRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Second)
	rec := core.NewSpendingRecord(date, amounts, now)
	if prev, ok := s.records[date.String()]; ok {
		rec.CreatedAt = prev.CreatedAt
	}
	s.records[date.String()] = rec
	delete(s.mirrored, date.String())
	return rec, nil
}

func (s *Store) GetByDate(_ context.Context, date core.Date) (core.SpendingRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[date.String()]
	return rec, ok, nil
}

func (s *Store) GetRange(_ context.Context, start, end core.Date) ([]core.SpendingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(r core.SpendingRecord) bool {
		return !r.Date.Before(start.Time) && !r.Date.After(end.Time)
	}), nil
}

func (s *Store) GetAll(_ context.Context) ([]core.SpendingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(core.SpendingRecord) bool { return true }), nil
}

func (s *Store) GetMonth(ctx context.Context, year, month int) ([]core.SpendingRecord, error) {
	first, last := storage.MonthBounds(year, month)
	return s.GetRange(ctx, first, last)
}

func (s *Store) PendingMirror(_ context.Context, limit int) ([]core.SpendingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.collect(func(r core.SpendingRecord) bool {
		at, ok := s.mirrored[r.Date.String()]
		return !ok || at.Before(r.UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkMirrored(_ context.Context, rec core.SpendingRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[rec.Date.String()]
	if !ok || cur.Amounts != rec.Amounts || !cur.UpdatedAt.Equal(rec.UpdatedAt) {
		return false, nil
	}
	s.mirrored[rec.Date.String()] = cur.UpdatedAt
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// collect must be called with mu held.
func (s *Store) collect(keep func(core.SpendingRecord) bool) []core.SpendingRecord {
	var out []core.SpendingRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}
