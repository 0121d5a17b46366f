package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		err error
	}{
		{"1", 1, nil},
		{"1.0", 1, nil},
		{"1.23", 1.23, nil},
		{"1,23", 1.23, nil},
		{"$4.50", 4.5, nil},
		{"0", 0, nil},
		{"", 0, nil},
		{"   ", 0, nil},
		{"1.005", 1.01, nil}, // half-up rounding
		{" 2.50 ", 2.5, nil},
		{"-1", 0, ErrNegativeAmount},
		{"abc", 0, ErrInvalidAmount},
		{"NaN", 0, ErrInvalidAmount},
		{"Inf", 0, ErrInvalidAmount},
		{"1.2.3", 0, ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err == nil {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
		}
	}
}

func TestParseAmounts(t *testing.T) {
	a, err := ParseAmounts(map[Category]string{Food: "12", Other: "3.5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != (Amounts{Food: 12, Other: 3.5}) {
		t.Fatalf("got %+v", a)
	}

	_, err = ParseAmounts(map[Category]string{Shopping: "-2"})
	if !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if err.Error() != "shopping: negative amount" {
		t.Fatalf("error should name the category, got %q", err)
	}
	huge := map[Category]string{Food: "1e308", Shopping: "1e308", Leisure: "1e308", Other: "1e308"}
	if _, err := ParseAmounts(huge); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("overflowing total should be rejected, got %v", err)
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		1234.5:     "$1,234.50",
		1000000.01: "$1,000,000.01",
		-3:         "-$3.00",
	}
	for in, want := range cases {
		if got := FormatUSD(in); got != want {
			t.Fatalf("FormatUSD(%v) = %q want %q", in, got, want)
		}
	}
	if got := FormatWhole(24000); got != "$24,000" {
		t.Fatalf("FormatWhole = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	recs := []SpendingRecord{
		NewSpendingRecord(NewDate(2025, 1, 31), Amounts{Food: 100}, NewDate(2025, 1, 31).Time),
		NewSpendingRecord(NewDate(2025, 2, 1), Amounts{Food: 10, Other: 5}, NewDate(2025, 2, 1).Time),
		NewSpendingRecord(NewDate(2025, 2, 2), Amounts{Shopping: 2.5}, NewDate(2025, 2, 2).Time),
	}
	s := Summarize(recs, NewDate(2025, 2, 1), NewDate(2025, 2, 28))
	if s.Days != 2 || s.Total != 17.5 {
		t.Fatalf("got days=%d total=%v", s.Days, s.Total)
	}
	if len(s.ByCategory) != 4 || s.ByCategory[0].Amount != 10 || s.ByCategory[1].Amount != 2.5 {
		t.Fatalf("unexpected breakdown %+v", s.ByCategory)
	}

	shuffled := []SpendingRecord{recs[2], recs[0], recs[1]}
	SortByDate(shuffled)
	if shuffled[0].Date.String() != "2025-01-31" || shuffled[2].Date.String() != "2025-02-02" {
		t.Fatalf("unexpected order %v %v", shuffled[0].Date, shuffled[2].Date)
	}
	if _, ok := IndexByDate(recs)["2025-02-01"]; !ok {
		t.Fatal("expected index entry")
	}
}
