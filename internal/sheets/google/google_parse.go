package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneytracker/internal/core"
)

// findDateRow returns the 1-based sheet row holding date in column A, or 0.
func findDateRow(values [][]any, date core.Date) int {
	want := date.String()
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// parseRows converts mirrored rows back to records. The header, blank rows
// and rows with an unparseable date or amount are skipped.
func parseRows(values [][]any) []core.SpendingRecord {
	var out []core.SpendingRecord
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 5 {
			continue
		}
		date, err := core.ParseDate(cols[0])
		if err != nil {
			continue
		}
		var amounts core.Amounts
		ok := true
		for i, c := range core.Categories() {
			v, parsed := parseAmount(cols[i+1])
			if !parsed {
				ok = false
				break
			}
			amounts.Set(c, v)
		}
		if !ok {
			continue
		}
		rec := core.NewSpendingRecord(date, amounts, time.Time{})
		if len(cols) >= 7 {
			if t, err := time.Parse(time.RFC3339, cols[6]); err == nil {
				rec.UpdatedAt = t
			}
		}
		out = append(out, rec)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseAmount accepts sheet formatted numbers such as "1,234.50" or "$12".
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
