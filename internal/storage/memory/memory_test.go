package memory

import (
	"context"
	"testing"
	"time"

	"moneytracker/internal/core"
)

func TestMemoryStoreUpsertPreservesCreatedAt(t *testing.T) {
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time {
		tick = tick.Add(time.Hour)
		return tick
	})
	ctx := context.Background()
	day := core.NewDate(2025, 1, 1)

	a, err := s.Upsert(ctx, day, core.Amounts{Food: 5})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b, err := s.Upsert(ctx, day, core.Amounts{Food: 5})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if a.Total != b.Total || !a.CreatedAt.Equal(b.CreatedAt) {
		t.Fatalf("expected stable total and created_at, got %+v vs %+v", a, b)
	}
	if !b.UpdatedAt.After(a.UpdatedAt) {
		t.Fatalf("expected updated_at to move forward")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Upsert(context.Background(), core.NewDate(2025, 1, 1), core.Amounts{Other: -3}); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	all, _ := s.GetAll(context.Background())
	if len(all) != 0 {
		t.Fatalf("invalid upsert must not persist")
	}
}

func TestMemoryStoreQueries(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, d := range []int{20, 3, 11} {
		if _, err := s.Upsert(ctx, core.NewDate(2025, 2, d), core.Amounts{Food: float64(d)}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if _, err := s.Upsert(ctx, core.NewDate(2025, 3, 1), core.Amounts{Food: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	feb, _ := s.GetMonth(ctx, 2025, 2)
	if len(feb) != 3 || feb[0].Date.Day() != 3 || feb[2].Date.Day() != 20 {
		t.Fatalf("unexpected february %+v", feb)
	}
	rng, _ := s.GetRange(ctx, core.NewDate(2025, 2, 11), core.NewDate(2025, 3, 1))
	if len(rng) != 3 {
		t.Fatalf("expected inclusive range of 3, got %d", len(rng))
	}
	if _, ok, _ := s.GetByDate(ctx, core.NewDate(2025, 2, 4)); ok {
		t.Fatalf("expected missing record")
	}
}

func TestMemoryStoreMirrorQueue(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := core.NewDate(2025, 2, 1)
	rec, _ := s.Upsert(ctx, day, core.Amounts{Food: 1})

	pending, _ := s.PendingMirror(ctx, 0)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	if ok, _ := s.MarkMirrored(ctx, rec); !ok {
		t.Fatal("current version should be marked")
	}
	pending, _ = s.PendingMirror(ctx, 0)
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %d", len(pending))
	}

	// A same-second rewrite makes the mirrored version stale.
	s.WithClock(func() time.Time { return rec.UpdatedAt })
	if _, err := s.Upsert(ctx, day, core.Amounts{Food: 7}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.MarkMirrored(ctx, rec); ok {
		t.Fatal("stale version must not be marked")
	}
	pending, _ = s.PendingMirror(ctx, 0)
	if len(pending) != 1 || pending[0].Food != 7 {
		t.Fatalf("expected rewritten record pending, got %+v", pending)
	}
}
