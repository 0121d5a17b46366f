// Package storage persists one spending record per calendar date.
package storage

import (
	"context"

	"moneytracker/internal/core"
)

// TimestampLayout is the ISO-8601 seconds format used for created_at and updated_at.
const TimestampLayout = "2006-01-02T15:04:05"

type (
	// Store is the record store consumed by the dashboard and the engine.
	Store interface {
		// Upsert inserts or overwrites the record for date. created_at is kept
		// on overwrite and updated_at is refreshed.
		Upsert(ctx context.Context, date core.Date, amounts core.Amounts) (core.SpendingRecord, error)
		// GetByDate reports false when no record exists for date.
		GetByDate(ctx context.Context, date core.Date) (core.SpendingRecord, bool, error)
		// GetRange returns records in [start, end] ascending by date.
		GetRange(ctx context.Context, start, end core.Date) ([]core.SpendingRecord, error)
		// GetAll returns every record ascending by date.
		GetAll(ctx context.Context) ([]core.SpendingRecord, error)
		// GetMonth returns the records of one calendar month.
		GetMonth(ctx context.Context, year, month int) ([]core.SpendingRecord, error)
		Ping(ctx context.Context) error
		Close() error
	}

	// MirrorQueue tracks records not yet copied to the spreadsheet mirror.
	MirrorQueue interface {
		PendingMirror(ctx context.Context, limit int) ([]core.SpendingRecord, error)
		// MarkMirrored clears rec from the queue unless the stored row has
		// changed since rec was read.
		MarkMirrored(ctx context.Context, rec core.SpendingRecord) (bool, error)
	}
)

// MonthBounds returns the first and last day of a calendar month.
func MonthBounds(year, month int) (core.Date, core.Date) {
	first := core.NewDate(year, month, 1)
	return first, first.LastOfMonth()
}
