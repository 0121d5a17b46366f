package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestRepo(t *testing.T) (*SQLiteRepository, *stepClock) {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "spending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	clock := &stepClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	repo.WithClock(clock.now)
	return repo, clock
}

func TestUpsertInsertsAndOverwrites(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2025, 3, 1)

	first, err := repo.Upsert(ctx, day, core.Amounts{Food: 12.5, Shopping: 7.5})
	require.NoError(t, err)
	assert.Equal(t, 20.0, first.Total)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := repo.Upsert(ctx, day, core.Amounts{Leisure: 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, second.Total)
	assert.Zero(t, second.Food, "overwrite replaces every category")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestUpsertIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2025, 3, 2)
	amounts := core.Amounts{Food: 0.1, Shopping: 0.2, Other: 4}

	a, err := repo.Upsert(ctx, day, amounts)
	require.NoError(t, err)
	b, err := repo.Upsert(ctx, day, amounts)
	require.NoError(t, err)

	assert.Equal(t, a.Total, b.Total)
	assert.Equal(t, a.CreatedAt, b.CreatedAt)
	assert.InDelta(t, 4.3, b.Total, 1e-9)
	require.NoError(t, b.Validate())

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertRejectsInvalidAmounts(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, core.NewDate(2025, 3, 3), core.Amounts{Food: -1})
	assert.ErrorIs(t, err, core.ErrNegativeAmount)

	_, err = repo.Upsert(ctx, core.Date{}, core.Amounts{Food: 1})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, ok, err := repo.GetByDate(ctx, core.NewDate(2025, 3, 3))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetRangeAndMonth(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for _, d := range []core.Date{
		core.NewDate(2025, 2, 28),
		core.NewDate(2025, 3, 31),
		core.NewDate(2025, 3, 1),
		core.NewDate(2025, 3, 15),
		core.NewDate(2025, 4, 1),
	} {
		_, err := repo.Upsert(ctx, d, core.Amounts{Food: float64(d.Day())})
		require.NoError(t, err)
	}

	march, err := repo.GetMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, march, 3)
	assert.Equal(t, "2025-03-01", march[0].Date.String())
	assert.Equal(t, "2025-03-31", march[2].Date.String())

	rng, err := repo.GetRange(ctx, core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 1))
	require.NoError(t, err)
	assert.Len(t, rng, 2)

	empty, err := repo.GetRange(ctx, core.NewDate(2025, 5, 1), core.NewDate(2025, 4, 1))
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "2025-02-28", all[0].Date.String())
	assert.Equal(t, "2025-04-01", all[4].Date.String())
}

func TestMirrorQueue(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2025, 3, 5)

	_, err := repo.Upsert(ctx, day, core.Amounts{Food: 1})
	require.NoError(t, err)

	pending, err := repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	marked, err := repo.MarkMirrored(ctx, pending[0])
	require.NoError(t, err)
	assert.True(t, marked)
	pending, err = repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = repo.Upsert(ctx, day, core.Amounts{Food: 2})
	require.NoError(t, err)
	pending, err = repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "a rewrite after mirroring is pending again")
}

func TestMarkMirroredIgnoresStaleVersion(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "stale.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	fixed := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	repo.WithClock(func() time.Time { return fixed })
	ctx := context.Background()
	day := core.NewDate(2025, 3, 5)

	read, err := repo.Upsert(ctx, day, core.Amounts{Food: 10})
	require.NoError(t, err)
	// Rewritten in the same second, after the mirror read the first version.
	_, err = repo.Upsert(ctx, day, core.Amounts{Food: 99})
	require.NoError(t, err)

	marked, err := repo.MarkMirrored(ctx, read)
	require.NoError(t, err)
	assert.False(t, marked)

	pending, err := repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 99.0, pending[0].Food)
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)

	// Reopening an up-to-date database is a no-op.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(context.Background()))
	require.NoError(t, repo.Close())
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newRepository(db)
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO daily_spending").WillReturnError(boom)
	_, err = repo.Upsert(ctx, core.NewDate(2025, 1, 1), core.Amounts{Food: 1})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "upsert spending 2025-01-01")

	mock.ExpectQuery("SELECT (.+) FROM daily_spending WHERE spend_date = ").WillReturnError(boom)
	_, _, err = repo.GetByDate(ctx, core.NewDate(2025, 1, 1))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT (.+) FROM daily_spending ORDER BY").WillReturnError(boom)
	_, err = repo.GetAll(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "get all spending")

	mock.ExpectQuery("SELECT (.+) BETWEEN").WithArgs("2025-01-01", "2025-01-31").WillReturnError(boom)
	_, err = repo.GetMonth(ctx, 2025, 1)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRecordFromRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"spend_date", "food", "shopping", "leisure", "other", "total", "created_at", "updated_at"}).
		AddRow("2025-01-02", 1.0, 2.0, 3.0, 4.0, 10.0, "2025-01-02T09:00:00", "2025-01-02T10:30:00").
		AddRow("2025-01-03", 0.0, 0.0, 0.0, 5.0, 5.0, "2025-01-03T09:00:00+00:00", "garbage")
	mock.ExpectQuery("SELECT (.+) FROM daily_spending ORDER BY").WillReturnRows(rows)

	recs, err := newRepository(db).GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, core.Amounts{Food: 1, Shopping: 2, Leisure: 3, Other: 4}, recs[0].Amounts)
	assert.Equal(t, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC), recs[0].UpdatedAt)
	assert.Equal(t, time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), recs[1].CreatedAt)
	assert.True(t, recs[1].UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRejectsCorruptDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"spend_date", "food", "shopping", "leisure", "other", "total", "created_at", "updated_at"}).
		AddRow("not-a-date", 0.0, 0.0, 0.0, 0.0, 0.0, "", "")
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	_, err = newRepository(db).GetAll(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}
