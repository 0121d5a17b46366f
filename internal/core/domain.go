package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical date representation used in storage, URLs and forms.
const DateLayout = "2006-01-02"

// Category is one of the four fixed spending buckets.
// The declaration order is also the tie-break priority used by the feedback rules.
type Category int

const (
	Food Category = iota
	Shopping
	Leisure
	Other
)

type (
	Date struct {
		time.Time
	}

	// Amounts holds the spending of a single day split by category.
	Amounts struct {
		Food     float64
		Shopping float64
		Leisure  float64
		Other    float64
	}

	// SpendingRecord is the persisted spending of one calendar date.
	SpendingRecord struct {
		Date Date
		Amounts
		Total     float64
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrUnknownCategory = errors.New("unknown category")
	ErrTotalMismatch   = errors.New("total does not match category sum")
)

var categoryInfo = [...]struct {
	key   string
	label string
	color string
}{
	Food:     {"food", "Food/Beverage", "#d1d5db"},
	Shopping: {"shopping", "Shopping", "#e5e7eb"},
	Leisure:  {"leisure", "Hobbies", "#cbd5e1"},
	Other:    {"other", "Etc (Travel)", "#f1f5f9"},
}

// Categories returns every category in priority order.
func Categories() []Category {
	return []Category{Food, Shopping, Leisure, Other}
}

func (c Category) valid() bool {
	return c >= Food && c <= Other
}

// Key is the stable machine name used in forms, storage columns and JSON.
func (c Category) Key() string {
	if !c.valid() {
		return "unknown"
	}
	return categoryInfo[c].key
}

// Label is the human readable name.
func (c Category) Label() string {
	if !c.valid() {
		return "Unknown"
	}
	return categoryInfo[c].label
}

// Color is the legend / chart color.
func (c Category) Color() string {
	if !c.valid() {
		return "#ffffff"
	}
	return categoryInfo[c].color
}

func (c Category) String() string {
	return c.Key()
}

// ParseCategory resolves a category from its key, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories() {
		if c.Key() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Month returns the month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// FirstOfMonth returns day 1 of the date's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// LastOfMonth returns the final day of the date's month.
func (d Date) LastOfMonth() Date {
	return Date{Time: d.FirstOfMonth().Time.AddDate(0, 1, -1)}
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// Get returns the amount spent on c.
func (a Amounts) Get(c Category) float64 {
	switch c {
	case Food:
		return a.Food
	case Shopping:
		return a.Shopping
	case Leisure:
		return a.Leisure
	case Other:
		return a.Other
	}
	return 0
}

// Set assigns the amount spent on c.
func (a *Amounts) Set(c Category, v float64) {
	switch c {
	case Food:
		a.Food = v
	case Shopping:
		a.Shopping = v
	case Leisure:
		a.Leisure = v
	case Other:
		a.Other = v
	}
}

// Total sums the four categories using exact decimal arithmetic.
// Non-finite values contribute nothing.
func (a Amounts) Total() float64 {
	sum := decimal.Zero
	for _, c := range Categories() {
		sum = sum.Add(toDecimal(a.Get(c)))
	}
	return sum.InexactFloat64()
}

// Validate rejects negative and non-finite amounts, and amounts whose sum
// overflows float64.
func (a Amounts) Validate() error {
	for _, c := range Categories() {
		v := a.Get(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: %w", c.Key(), ErrInvalidAmount)
		}
		if v < 0 {
			return fmt.Errorf("%s: %w", c.Key(), ErrNegativeAmount)
		}
	}
	if math.IsInf(a.Total(), 0) {
		return fmt.Errorf("total: %w", ErrInvalidAmount)
	}
	return nil
}

// IsZero reports whether nothing was spent.
func (a Amounts) IsZero() bool {
	return a.Total() == 0
}

// NewSpendingRecord builds a record with its total derived from amounts.
func NewSpendingRecord(date Date, amounts Amounts, now time.Time) SpendingRecord {
	return SpendingRecord{
		Date:      date,
		Amounts:   amounts,
		Total:     amounts.Total(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r SpendingRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if err := r.Amounts.Validate(); err != nil {
		return err
	}
	if math.Abs(r.Total-r.Amounts.Total()) > 1e-9 {
		return ErrTotalMismatch
	}
	return nil
}

func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
