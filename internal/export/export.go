// Package export writes spending records as XLSX workbooks or CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"moneytracker/internal/core"
)

const (
	dailySheet   = "Daily"
	summarySheet = "Summary"
)

// Columns is the header shared by the CSV and the daily sheet.
var Columns = columns()

func columns() []string {
	out := []string{"Date"}
	for _, c := range core.Categories() {
		out = append(out, c.Label())
	}
	return append(out, "Total")
}

// Filename returns the download name for a range, e.g. spending_2025-03-01_2025-03-31.xlsx.
func Filename(from, to core.Date, ext string) string {
	return fmt.Sprintf("spending_%s_%s.%s", from, to, ext)
}

// WriteCSV writes one row per record, ordered by date.
func WriteCSV(w io.Writer, records []core.SpendingRecord) error {
	sorted := sortedCopy(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range sorted {
		row := []string{r.Date.String()}
		for _, c := range core.Categories() {
			row = append(row, formatAmount(r.Get(c)))
		}
		row = append(row, formatAmount(r.Total))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Date, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a daily sheet and a per-category summary
// of [from, to].
func WriteXLSX(w io.Writer, records []core.SpendingRecord, from, to core.Date) error {
	f, err := Workbook(records, from, to)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Workbook builds the export workbook in memory.
func Workbook(records []core.SpendingRecord, from, to core.Date) (*excelize.File, error) {
	sorted := sortedCopy(records)
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", dailySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("add summary sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := writeDaily(f, st, sorted); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, st, core.Summarize(sorted, from, to)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

type styles struct {
	header, data, money, total int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	moneyFmt := "$#,##0.00"

	var st styles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"334155"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.data, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return st, fmt.Errorf("data style: %w", err)
	}
	if st.money, err = f.NewStyle(&excelize.Style{
		Border:       border,
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	if st.total, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"E2E8F0"}, Pattern: 1},
		Border:       border,
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return st, fmt.Errorf("total style: %w", err)
	}
	return st, nil
}

func writeDaily(f *excelize.File, st styles, records []core.SpendingRecord) error {
	if err := writeHeader(f, dailySheet, st.header, Columns); err != nil {
		return err
	}
	_ = f.SetColWidth(dailySheet, "A", "A", 14)
	_ = f.SetColWidth(dailySheet, "B", "F", 16)

	var grand core.Amounts
	for i, r := range records {
		row := i + 2
		values := []any{r.Date.String()}
		for _, c := range core.Categories() {
			values = append(values, r.Get(c))
			grand.Set(c, grand.Get(c)+r.Get(c))
		}
		values = append(values, r.Total)
		if err := f.SetSheetRow(dailySheet, cell("A", row), &values); err != nil {
			return fmt.Errorf("write row %s: %w", r.Date, err)
		}
		_ = f.SetCellStyle(dailySheet, cell("A", row), cell("A", row), st.data)
		_ = f.SetCellStyle(dailySheet, cell("B", row), cell("F", row), st.money)
	}

	totalRow := len(records) + 2
	values := []any{"Total"}
	for _, c := range core.Categories() {
		values = append(values, grand.Get(c))
	}
	values = append(values, grand.Total())
	if err := f.SetSheetRow(dailySheet, cell("A", totalRow), &values); err != nil {
		return fmt.Errorf("write total row: %w", err)
	}
	_ = f.SetCellStyle(dailySheet, cell("A", totalRow), cell("F", totalRow), st.total)
	return nil
}

func writeSummary(f *excelize.File, st styles, s core.PeriodSummary) error {
	if err := writeHeader(f, summarySheet, st.header, []string{"Category", "Amount", "Share"}); err != nil {
		return err
	}
	_ = f.SetColWidth(summarySheet, "A", "C", 18)

	for i, ca := range s.ByCategory {
		row := i + 2
		share := 0.0
		if s.Total > 0 {
			share = ca.Amount / s.Total
		}
		values := []any{ca.Category.Label(), ca.Amount, fmt.Sprintf("%.1f%%", share*100)}
		if err := f.SetSheetRow(summarySheet, cell("A", row), &values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		_ = f.SetCellStyle(summarySheet, cell("B", row), cell("B", row), st.money)
	}

	row := len(s.ByCategory) + 2
	footer := []any{"Total", s.Total, fmt.Sprintf("%d days", s.Days)}
	if err := f.SetSheetRow(summarySheet, cell("A", row), &footer); err != nil {
		return fmt.Errorf("write summary total: %w", err)
	}
	_ = f.SetCellStyle(summarySheet, cell("A", row), cell("C", row), st.total)

	period := []any{"Period", fmt.Sprintf("%s to %s", s.From, s.To)}
	return f.SetSheetRow(summarySheet, cell("A", row+2), &period)
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	for i, h := range headers {
		name, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, h); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		_ = f.SetCellStyle(sheet, name, name, style)
	}
	return nil
}

func cell(col string, row int) string {
	return col + strconv.Itoa(row)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sortedCopy(records []core.SpendingRecord) []core.SpendingRecord {
	out := make([]core.SpendingRecord, len(records))
	copy(out, records)
	core.SortByDate(out)
	return out
}
