package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moneytracker/internal/core"

	_ "modernc.org/sqlite"
)

const recordColumns = `spend_date, food, shopping, leisure, other, total, created_at, updated_at`

const (
	upsertSQL = `INSERT INTO daily_spending (` + recordColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(spend_date) DO UPDATE SET
    food = excluded.food,
    shopping = excluded.shopping,
    leisure = excluded.leisure,
    other = excluded.other,
    total = excluded.total,
    updated_at = excluded.updated_at,
    mirrored_at = NULL`

	selectByDateSQL  = `SELECT ` + recordColumns + ` FROM daily_spending WHERE spend_date = ?`
	selectRangeSQL   = `SELECT ` + recordColumns + ` FROM daily_spending WHERE spend_date BETWEEN ? AND ? ORDER BY spend_date ASC`
	selectAllSQL     = `SELECT ` + recordColumns + ` FROM daily_spending ORDER BY spend_date ASC`
	selectPendingSQL = `SELECT ` + recordColumns + ` FROM daily_spending
WHERE mirrored_at IS NULL OR mirrored_at < updated_at
ORDER BY spend_date ASC LIMIT ?`
	markMirroredSQL = `UPDATE daily_spending SET mirrored_at = updated_at
WHERE spend_date = ? AND updated_at = ? AND food = ? AND shopping = ? AND leisure = ? AND other = ?`
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ Store       = (*SQLiteRepository)(nil)
	_ MirrorQueue = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers; concurrent upserts on a date become last-writer-wins.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, date core.Date, amounts core.Amounts) (core.SpendingRecord, error) {
	if err := date.Validate(); err != nil {
		return core.SpendingRecord{}, err
	}
	if err := amounts.Validate(); err != nil {
		return core.SpendingRecord{}, err
	}

	stamp := r.now().UTC().Format(TimestampLayout)
	total := amounts.Total()
	_, err := r.db.ExecContext(ctx, upsertSQL,
		date.String(), amounts.Food, amounts.Shopping, amounts.Leisure, amounts.Other,
		total, stamp, stamp)
	if err != nil {
		return core.SpendingRecord{}, fmt.Errorf("upsert spending %s: %w", date, err)
	}

	rec, ok, err := r.GetByDate(ctx, date)
	if err != nil {
		return core.SpendingRecord{}, err
	}
	if !ok {
		return core.SpendingRecord{}, fmt.Errorf("upsert spending %s: record missing after write", date)
	}

	slog.InfoContext(ctx, "Spending saved to SQLite",
		"date", rec.Date.String(),
		"total", rec.Total,
		"created_at", rec.CreatedAt)

	return rec, nil
}

func (r *SQLiteRepository) GetByDate(ctx context.Context, date core.Date) (core.SpendingRecord, bool, error) {
	row := r.db.QueryRowContext(ctx, selectByDateSQL, date.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SpendingRecord{}, false, nil
	}
	if err != nil {
		return core.SpendingRecord{}, false, fmt.Errorf("get spending %s: %w", date, err)
	}
	return rec, true, nil
}

func (r *SQLiteRepository) GetRange(ctx context.Context, start, end core.Date) ([]core.SpendingRecord, error) {
	if end.Before(start.Time) {
		return nil, nil
	}
	recs, err := r.query(ctx, selectRangeSQL, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("get spending range %s..%s: %w", start, end, err)
	}
	return recs, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]core.SpendingRecord, error) {
	recs, err := r.query(ctx, selectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("get all spending: %w", err)
	}
	return recs, nil
}

func (r *SQLiteRepository) GetMonth(ctx context.Context, year, month int) ([]core.SpendingRecord, error) {
	first, last := MonthBounds(year, month)
	return r.GetRange(ctx, first, last)
}

// PendingMirror returns records changed since they were last mirrored.
func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]core.SpendingRecord, error) {
	recs, err := r.query(ctx, selectPendingSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending mirror records: %w", err)
	}
	return recs, nil
}

// MarkMirrored marks rec as mirrored only if the stored row is still that
// exact version. It reports false when the row was rewritten meanwhile.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, rec core.SpendingRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, markMirroredSQL,
		rec.Date.String(), rec.UpdatedAt.UTC().Format(TimestampLayout),
		rec.Food, rec.Shopping, rec.Leisure, rec.Other)
	if err != nil {
		return false, fmt.Errorf("mark mirrored %s: %w", rec.Date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark mirrored %s: %w", rec.Date, err)
	}
	slog.DebugContext(ctx, "Spending mirror mark", "date", rec.Date.String(), "marked", n > 0)
	return n > 0, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]core.SpendingRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SpendingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.SpendingRecord, error) {
	var (
		rec                        core.SpendingRecord
		date, createdAt, updatedAt string
	)
	err := s.Scan(&date, &rec.Food, &rec.Shopping, &rec.Leisure, &rec.Other, &rec.Total, &createdAt, &updatedAt)
	if err != nil {
		return core.SpendingRecord{}, err
	}
	if rec.Date, err = core.ParseDate(date); err != nil {
		return core.SpendingRecord{}, fmt.Errorf("scan spend_date: %w", err)
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return rec, nil
}

// parseTimestamp accepts ISO-8601 with or without a zone; unparseable values become zero.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{TimestampLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
