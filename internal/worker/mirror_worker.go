// Package worker copies saved spending records to the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneytracker/internal/amqp"
	"moneytracker/internal/core"
	"moneytracker/internal/sheets"
	"moneytracker/internal/storage"
)

// ErrRecordMissing is returned when a message names a date the store does not hold.
var ErrRecordMissing = errors.New("spending record not found")

// Source is the store view the worker needs.
type Source interface {
	GetByDate(ctx context.Context, date core.Date) (core.SpendingRecord, bool, error)
	storage.MirrorQueue
}

// MirrorWorker handles synchronization of spending records from SQLite to Google Sheets
type MirrorWorker struct {
	store     Source
	mirror    sheets.RecordMirror
	batchSize int
}

func NewMirrorWorker(store Source, mirror sheets.RecordMirror, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MirrorWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSavedMessage mirrors the record named by a spending.saved message.
// The record is read back from the store so the sheet always holds the
// latest amounts, even when messages arrive out of order.
func (w *MirrorWorker) HandleSavedMessage(ctx context.Context, msg *amqp.SpendingSavedMessage) error {
	slog.InfoContext(ctx, "Processing spending saved message",
		"date", msg.Date,
		"total", msg.Total)

	date, err := msg.SpendingDate()
	if err != nil {
		return fmt.Errorf("parse message date: %w", err)
	}

	rec, ok, err := w.store.GetByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", msg.Date, ErrRecordMissing)
	}

	if err := w.mirrorRecord(ctx, rec); err != nil {
		return fmt.Errorf("mirror record to sheets: %w", err)
	}
	return nil
}

// ProcessPending mirrors records written since their last mirror. It is the
// backup path for lost messages and worker downtime.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingMirror(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	synced := 0
	var errs []error
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.mirrorRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror record", "date", rec.Date.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		synced++
	}
	return synced, errors.Join(errs...)
}

// startupRounds bounds how many batches StartupSyncCheck processes.
const startupRounds = 5

// StartupSyncCheck drains up to startupRounds batches at worker start.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for round := 0; round < startupRounds; round++ {
		n, err := w.ProcessPending(ctx)
		total += n
		if err != nil {
			slog.WarnContext(ctx, "Startup sync stopped early", "synced", total, "error", err)
			return err
		}
		if n < w.batchSize {
			break
		}
	}
	if total == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	return nil
}

func (w *MirrorWorker) mirrorRecord(ctx context.Context, rec core.SpendingRecord) error {
	ref, err := w.mirror.Mirror(ctx, rec)
	if err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	marked, err := w.store.MarkMirrored(ctx, rec)
	switch {
	case err != nil:
		// The row is written; the next pending pass rewrites it idempotently.
		slog.ErrorContext(ctx, "Failed to mark as mirrored", "date", rec.Date.String(), "error", err)
	case !marked:
		slog.InfoContext(ctx, "Record changed while mirroring, left pending", "date", rec.Date.String())
	}

	slog.InfoContext(ctx, "Successfully mirrored record",
		"date", rec.Date.String(),
		"sheets_ref", ref,
		"total", rec.Total)
	return nil
}
