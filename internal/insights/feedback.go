package insights

import (
	"errors"
	"fmt"

	"moneytracker/internal/core"
)

// Level is the severity of a feedback advisory.
type Level string

const (
	LevelNoSpending Level = "none"
	LevelStrong     Level = "strong"
	LevelWarning    Level = "warning"
	LevelStable     Level = "stable"
)

const (
	noSpendingMessage = "No spending entered for the selected day. Add values to get actionable feedback."
	strongTemplate    = "Strong feedback: %s is taking too much of your daily budget. Your current pace is not sustainable. Set a strict hard cap immediately and pause non-essential spending for the next 7 days."
	warningTemplate   = "Warning: %s is above your healthy spending range. Apply a daily cap and enforce a 24-hour delay rule before any optional purchase."
	stableMessage     = "Your spending distribution is stable. Keep consistent daily caps and continue tracking."
)

// Thresholds drive the feedback rules. A rule fires when either the dominant
// category ratio or the projected yearly spend reaches its bound.
type Thresholds struct {
	StrongRatio  float64
	WarningRatio float64
	StrongYear   float64
	WarningYear  float64
}

// DefaultThresholds returns the stock bounds: 50% / 35% share and $50,000 / $30,000 a year.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongRatio:  0.5,
		WarningRatio: 0.35,
		StrongYear:   50000,
		WarningYear:  30000,
	}
}

// Validate checks that the thresholds are ordered and positive.
func (t Thresholds) Validate() error {
	var errs []error
	if t.StrongRatio <= 0 || t.StrongRatio > 1 {
		errs = append(errs, fmt.Errorf("strong ratio must be in (0, 1], got %v", t.StrongRatio))
	}
	if t.WarningRatio <= 0 || t.WarningRatio > t.StrongRatio {
		errs = append(errs, fmt.Errorf("warning ratio must be in (0, strong ratio], got %v", t.WarningRatio))
	}
	if t.StrongYear <= 0 {
		errs = append(errs, fmt.Errorf("strong yearly bound must be positive, got %v", t.StrongYear))
	}
	if t.WarningYear <= 0 || t.WarningYear > t.StrongYear {
		errs = append(errs, fmt.Errorf("warning yearly bound must be in (0, strong bound], got %v", t.WarningYear))
	}
	return errors.Join(errs...)
}

// Feedback is the advisory produced for one day.
type Feedback struct {
	Level    Level
	Category core.Category // meaningful for strong and warning only
	Ratio    float64
	Message  string
}

// Named reports whether the advisory names a category.
func (f Feedback) Named() bool {
	return f.Level == LevelStrong || f.Level == LevelWarning
}

// DominantCategory returns the category with the strictly largest amount.
// Exact ties go to the earlier category in core.Categories order.
func DominantCategory(a core.Amounts) (core.Category, float64) {
	best := core.Food
	bestAmount := sanitize(a.Food)
	for _, c := range core.Categories()[1:] {
		if v := sanitize(a.Get(c)); v > bestAmount {
			best, bestAmount = c, v
		}
	}
	return best, bestAmount
}

// Classify evaluates the feedback rules in order and returns the first match.
func (t Thresholds) Classify(a core.Amounts, projectedYear float64) Feedback {
	total := sanitize(a.Total())
	if total <= 0 {
		return Feedback{Level: LevelNoSpending, Message: noSpendingMessage}
	}

	dominant, amount := DominantCategory(a)
	ratio := amount / total
	projectedYear = sanitize(projectedYear)

	switch {
	case ratio >= t.StrongRatio || projectedYear >= t.StrongYear:
		return Feedback{
			Level:    LevelStrong,
			Category: dominant,
			Ratio:    ratio,
			Message:  fmt.Sprintf(strongTemplate, dominant.Label()),
		}
	case ratio >= t.WarningRatio || projectedYear >= t.WarningYear:
		return Feedback{
			Level:    LevelWarning,
			Category: dominant,
			Ratio:    ratio,
			Message:  fmt.Sprintf(warningTemplate, dominant.Label()),
		}
	default:
		return Feedback{Level: LevelStable, Ratio: ratio, Message: stableMessage}
	}
}

// Classify uses the default thresholds.
func Classify(a core.Amounts, projectedYear float64) Feedback {
	return DefaultThresholds().Classify(a, projectedYear)
}
