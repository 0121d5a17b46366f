// Package sheets defines the spreadsheet mirror of daily spending records.
package sheets

import (
	"context"

	"moneytracker/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordMirror writes one row per date, replacing the row when the date
	// was mirrored before.
	RecordMirror interface {
		Mirror(ctx context.Context, rec core.SpendingRecord) (rowRef string, err error)
	}

	// MirrorReader lists the rows previously mirrored for a month.
	MirrorReader interface {
		ListMonth(ctx context.Context, year int, month int) ([]core.SpendingRecord, error)
	}
)

// Header is the first row of every mirror sheet.
var Header = []string{"Date", "Food", "Shopping", "Leisure", "Other", "Total", "Updated"}
