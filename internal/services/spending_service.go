package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneytracker/internal/cache"
	"moneytracker/internal/catalog"
	"moneytracker/internal/core"
	"moneytracker/internal/insights"
	"moneytracker/internal/quote"
	"moneytracker/internal/storage"
)

var ErrFutureDate = errors.New("date is in the future")

type (
	// Publisher announces saved records to other processes.
	Publisher interface {
		PublishSpendingSaved(ctx context.Context, date core.Date, total float64) error
		Close() error
	}

	// QuoteGenerator produces a discipline quote or an error message.
	QuoteGenerator interface {
		Generate(ctx context.Context, req quote.Request) quote.Result
	}
)

// Options tune a SpendingService. Zero values fall back to defaults.
type Options struct {
	Thresholds     insights.Thresholds
	Catalogs       *catalog.Set
	Quotes         QuoteGenerator
	MonthCacheSize int
	MonthCacheTTL  time.Duration
	Now            func() time.Time
}

// SpendingService orchestrates record storage, the insight engine and the
// optional publisher for one request cycle at a time.
type SpendingService struct {
	store      storage.Store
	publisher  Publisher
	thresholds insights.Thresholds
	catalogs   *catalog.Set
	quotes     QuoteGenerator
	months     *cache.LRUCache[[]core.SpendingRecord]
	now        func() time.Time
}

func NewSpendingService(store storage.Store, publisher Publisher, opts Options) (*SpendingService, error) {
	if store == nil {
		return nil, errors.New("spending service: nil store")
	}
	if opts.Thresholds == (insights.Thresholds{}) {
		opts.Thresholds = insights.DefaultThresholds()
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("feedback thresholds: %w", err)
	}
	if opts.Catalogs == nil {
		set, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("default catalogs: %w", err)
		}
		opts.Catalogs = set
	}
	if opts.Quotes == nil {
		opts.Quotes = quote.New(quote.Config{})
	}
	if opts.MonthCacheSize <= 0 {
		opts.MonthCacheSize = 24
	}
	if opts.MonthCacheTTL <= 0 {
		opts.MonthCacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &SpendingService{
		store:      store,
		publisher:  publisher,
		thresholds: opts.Thresholds,
		catalogs:   opts.Catalogs,
		quotes:     opts.Quotes,
		months:     cache.NewLRUCache[[]core.SpendingRecord](opts.MonthCacheSize, opts.MonthCacheTTL),
		now:        opts.Now,
	}, nil
}

// MonthCache exposes the month cache for lifecycle management.
func (s *SpendingService) MonthCache() *cache.LRUCache[[]core.SpendingRecord] {
	return s.months
}

// Thresholds returns the feedback thresholds in effect.
func (s *SpendingService) Thresholds() insights.Thresholds {
	return s.thresholds
}

// Today is the current calendar date.
func (s *SpendingService) Today() core.Date {
	return core.DateOf(s.now())
}

// ClampDate limits d to today; zero dates become today.
func (s *SpendingService) ClampDate(d core.Date) core.Date {
	today := s.Today()
	if d.IsZero() || d.After(today.Time) {
		return today
	}
	return d
}

// Record returns the stored record for date, or a zero record when none exists.
func (s *SpendingService) Record(ctx context.Context, date core.Date) (core.SpendingRecord, bool, error) {
	rec, ok, err := s.store.GetByDate(ctx, date)
	if err != nil {
		return core.SpendingRecord{}, false, fmt.Errorf("load record: %w", err)
	}
	if !ok {
		return core.SpendingRecord{Date: date}, false, nil
	}
	return rec, true, nil
}

// Save upserts the record for date and announces it. Publishing is best
// effort: a failed publish is logged and the saved record is still returned.
func (s *SpendingService) Save(ctx context.Context, date core.Date, amounts core.Amounts) (core.SpendingRecord, error) {
	if date.After(s.Today().Time) {
		return core.SpendingRecord{}, fmt.Errorf("%w: %s", ErrFutureDate, date)
	}
	rec, err := s.store.Upsert(ctx, date, amounts)
	if err != nil {
		return core.SpendingRecord{}, fmt.Errorf("save spending: %w", err)
	}
	s.months.Delete(monthKey(date.Year(), date.Month()))

	if err := s.publishSaved(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to publish spending saved message",
			"date", date.String(), "error", err)
	}
	return rec, nil
}

func (s *SpendingService) publishSaved(ctx context.Context, rec core.SpendingRecord) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping saved message")
		return nil
	}
	return s.publisher.PublishSpendingSaved(ctx, rec.Date, rec.Total)
}

// Month returns the records of one calendar month, served from cache when fresh.
func (s *SpendingService) Month(ctx context.Context, year, month int) ([]core.SpendingRecord, error) {
	recs, err := s.months.GetOrLoad(monthKey(year, month), func() ([]core.SpendingRecord, error) {
		return s.store.GetMonth(ctx, year, month)
	})
	if err != nil {
		return nil, fmt.Errorf("load month %04d-%02d: %w", year, month, err)
	}
	return recs, nil
}

// Range returns records in [from, to].
func (s *SpendingService) Range(ctx context.Context, from, to core.Date) ([]core.SpendingRecord, error) {
	recs, err := s.store.GetRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load range: %w", err)
	}
	return recs, nil
}

// History returns every stored record.
func (s *SpendingService) History(ctx context.Context) ([]core.SpendingRecord, error) {
	recs, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return recs, nil
}

// Ready reports whether the store is reachable.
func (s *SpendingService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes both storage and publisher connections.
func (s *SpendingService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close spending service: %w", errors.Join(errs...))
	}
	return nil
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
