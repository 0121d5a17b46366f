package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/catalog"
	"moneytracker/internal/core"
	"moneytracker/internal/insights"
	"moneytracker/internal/quote"
	"moneytracker/internal/storage/memory"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type fakePublisher struct {
	published []string
	err       error
	closed    bool
}

func (p *fakePublisher) PublishSpendingSaved(_ context.Context, date core.Date, _ float64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, date.String())
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type fakeQuotes struct {
	last quote.Request
	res  quote.Result
}

func (q *fakeQuotes) Generate(_ context.Context, req quote.Request) quote.Result {
	q.last = req
	return q.res
}

// countingStore counts month queries and can be told to fail.
type countingStore struct {
	*memory.Store
	monthCalls int
	err        error
}

func (c *countingStore) GetMonth(ctx context.Context, y, m int) ([]core.SpendingRecord, error) {
	c.monthCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.GetMonth(ctx, y, m)
}

func (c *countingStore) GetAll(ctx context.Context) ([]core.SpendingRecord, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.GetAll(ctx)
}

func newService(t *testing.T, pub Publisher, q QuoteGenerator) (*SpendingService, *countingStore) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	svc, err := NewSpendingService(store, pub, Options{
		Quotes: q,
		Now:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, store
}

func TestNewSpendingServiceValidation(t *testing.T) {
	_, err := NewSpendingService(nil, nil, Options{})
	assert.Error(t, err)

	_, err = NewSpendingService(memory.New(), nil, Options{
		Thresholds: insights.Thresholds{StrongRatio: 0.2, WarningRatio: 0.5, StrongYear: 1, WarningYear: 1},
	})
	assert.Error(t, err)

	svc, err := NewSpendingService(memory.New(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, insights.DefaultThresholds(), svc.Thresholds())
}

func TestSavePublishesAndInvalidatesMonth(t *testing.T) {
	pub := &fakePublisher{}
	svc, store := newService(t, pub, nil)
	ctx := context.Background()

	recs, err := svc.Month(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Empty(t, recs)
	_, err = svc.Month(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, store.monthCalls, "second read served from cache")

	rec, err := svc.Save(ctx, core.NewDate(2025, 3, 14), core.Amounts{Food: 10, Other: 2})
	require.NoError(t, err)
	assert.Equal(t, 12.0, rec.Total)
	assert.Equal(t, []string{"2025-03-14"}, pub.published)

	recs, err = svc.Month(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 2, store.monthCalls, "save invalidates the cached month")
}

// racingStore runs onMonth once, after a month query has read its rows.
type racingStore struct {
	*memory.Store
	onMonth func()
}

func (r *racingStore) GetMonth(ctx context.Context, y, m int) ([]core.SpendingRecord, error) {
	recs, err := r.Store.GetMonth(ctx, y, m)
	if f := r.onMonth; f != nil {
		r.onMonth = nil
		f()
	}
	return recs, err
}

func TestSaveDuringMonthLoadIsNotMaskedByCache(t *testing.T) {
	store := &racingStore{Store: memory.New()}
	svc, err := NewSpendingService(store, nil, Options{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	ctx := context.Background()

	store.onMonth = func() {
		_, err := svc.Save(ctx, core.NewDate(2025, 3, 14), core.Amounts{Food: 5})
		require.NoError(t, err)
	}
	recs, err := svc.Month(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Empty(t, recs, "the in-flight read predates the save")

	recs, err = svc.Month(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 5.0, recs[0].Total)
}

func TestSaveSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newService(t, pub, nil)

	rec, err := svc.Save(context.Background(), core.NewDate(2025, 3, 1), core.Amounts{Leisure: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, rec.Total)
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	svc, _ := newService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, core.NewDate(2025, 3, 16), core.Amounts{Food: 1})
	assert.ErrorIs(t, err, ErrFutureDate)

	_, err = svc.Save(ctx, core.NewDate(2025, 3, 1), core.Amounts{Food: -1})
	assert.ErrorIs(t, err, core.ErrNegativeAmount)
}

func TestRecordDefaultsToZero(t *testing.T) {
	svc, _ := newService(t, nil, nil)
	rec, ok, err := svc.Record(context.Background(), core.NewDate(2025, 1, 1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "2025-01-01", rec.Date.String())
	assert.True(t, rec.Amounts.IsZero())
}

func TestClampDate(t *testing.T) {
	svc, _ := newService(t, nil, nil)
	assert.Equal(t, "2025-03-15", svc.ClampDate(core.NewDate(2030, 1, 1)).String())
	assert.Equal(t, "2025-03-15", svc.ClampDate(core.Date{}).String())
	assert.Equal(t, "2025-03-01", svc.ClampDate(core.NewDate(2025, 3, 1)).String())
}

func TestDashboard(t *testing.T) {
	svc, _ := newService(t, nil, nil)
	ctx := context.Background()
	for day, food := range map[int]float64{13: 40, 14: 60, 15: 100} {
		_, err := svc.Save(ctx, core.NewDate(2025, 3, day), core.Amounts{Food: food})
		require.NoError(t, err)
	}

	d, err := svc.Dashboard(ctx, core.NewDate(2025, 3, 15), nil)
	require.NoError(t, err)

	assert.True(t, d.Saved)
	assert.False(t, d.Draft)
	assert.Equal(t, 100.0, d.Total)
	assert.Equal(t, 100.0, d.Comparison.CurrentTotal)
	assert.Equal(t, 60.0, d.Comparison.PrevDayTotal)
	assert.Equal(t, 50.0, d.Comparison.PrevWeekAvg)
	assert.InDelta(t, 200.0/3, d.Projection.Daily, 1e-9)
	assert.Equal(t, insights.LevelStrong, d.Feedback.Level)
	assert.Equal(t, core.Food, d.Feedback.Category)

	assert.Equal(t, 36500.0, d.Annual.Amount)
	require.Len(t, d.Annual.Picks, 1)
	assert.Equal(t, "Mazda Mazda3", d.Annual.Picks[0].Item.Name())
	assert.True(t, d.Annual.Picks[0].Affordable)

	assert.Equal(t, 3000.0, d.Monthly.Amount)
	require.Len(t, d.Monthly.Picks, 2)
	assert.Equal(t, catalog.Laptop, d.Monthly.Picks[0].Kind)
	assert.Equal(t, "MacBook Pro 16 (M4 Pro)", d.Monthly.Picks[0].Item.Model)
	assert.Equal(t, "iPhone 16 Pro Max", d.Monthly.Picks[1].Item.Model)
}

func TestDashboardDraftAndEmptyHistory(t *testing.T) {
	svc, _ := newService(t, nil, nil)
	ctx := context.Background()

	d, err := svc.Dashboard(ctx, core.NewDate(2025, 3, 10), nil)
	require.NoError(t, err)
	assert.False(t, d.HasHistory)
	assert.Equal(t, insights.LevelNoSpending, d.Feedback.Level)
	assert.Equal(t, "Toyota Corolla", d.Annual.Picks[0].Item.Name())
	assert.False(t, d.Annual.Picks[0].Affordable)

	draft := core.Amounts{Food: 30, Shopping: 30, Leisure: 20, Other: 20}
	d, err = svc.Dashboard(ctx, core.NewDate(2025, 3, 10), &draft)
	require.NoError(t, err)
	assert.True(t, d.Draft)
	assert.Equal(t, 100.0, d.Total)
	assert.Zero(t, d.Comparison.CurrentTotal, "comparisons use saved history only")
	assert.Equal(t, insights.LevelStable, d.Feedback.Level)
}

func TestDashboardStorageFailure(t *testing.T) {
	svc, store := newService(t, nil, nil)
	store.err = errors.New("database is locked")

	_, err := svc.Dashboard(context.Background(), core.NewDate(2025, 3, 10), nil)
	assert.ErrorIs(t, err, store.err)

	_, err = svc.Month(context.Background(), 2025, 3)
	assert.ErrorIs(t, err, store.err)
}

func TestQuote(t *testing.T) {
	q := &fakeQuotes{res: quote.Result{Text: "Stay sharp."}}
	svc, _ := newService(t, nil, q)

	res, err := svc.Quote(context.Background(), QuoteInput{
		Date:    core.NewDate(2025, 3, 15),
		Amounts: core.Amounts{Food: 10},
		APIKey:  "k",
		Model:   "m",
	})
	require.NoError(t, err)
	assert.Equal(t, "Stay sharp.", res.Text)
	assert.Equal(t, 10.0, q.last.TodayTotal)
	assert.Equal(t, "k", q.last.APIKey)
	assert.Contains(t, q.last.Feedback, "Food/Beverage")
}

func TestQuoteFailureIsAResult(t *testing.T) {
	q := &fakeQuotes{res: quote.Result{Err: "OpenAI request failed: timeout"}}
	svc, _ := newService(t, nil, q)

	res, err := svc.Quote(context.Background(), QuoteInput{Date: core.NewDate(2025, 3, 15)})
	require.NoError(t, err)
	assert.True(t, res.Failed())
}

func TestBuildTrend(t *testing.T) {
	recs := []core.SpendingRecord{
		core.NewSpendingRecord(core.NewDate(2025, 3, 2), core.Amounts{Food: 1, Other: 1}, fixedNow),
		core.NewSpendingRecord(core.NewDate(2025, 3, 1), core.Amounts{Shopping: 4}, fixedNow),
	}
	tr := BuildTrend(recs)
	require.Len(t, tr.Categories, 4)
	assert.Equal(t, "Hobbies", tr.Categories[2].Label)
	require.Len(t, tr.Points, 2)
	assert.Equal(t, "2025-03-01", tr.Points[0].Date)
	assert.Equal(t, 2.0, tr.Points[1].Total)
	assert.Equal(t, "2025-03-02", recs[0].Date.String(), "input is not reordered")
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub, nil)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
