package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// memoryRepo is an in-memory MarketSignalRepository that mimics the
// transactional semantics of RecordBatch.
type memoryRepo struct {
	rows        []*domain.MarketSignal
	findLastErr error
	batchErr    error
}

func (r *memoryRepo) Insert(ctx context.Context, signal *domain.MarketSignal) error {
	r.rows = append(r.rows, signal)
	return nil
}

func (r *memoryRepo) FindLast(ctx context.Context, currency, timeframe string, side domain.PositionSide) (*domain.MarketSignal, error) {
	if r.findLastErr != nil {
		return nil, r.findLastErr
	}
	var last *domain.MarketSignal
	for _, row := range r.rows {
		if row.Currency == currency && row.Timeframe == timeframe && row.Side() == side {
			if last == nil || !row.Timestamp.Before(last.Timestamp) {
				last = row
			}
		}
	}
	return last, nil
}

func (r *memoryRepo) FindAll(ctx context.Context, currency string, filter ports.MarketSignalFilter) ([]*domain.MarketSignal, error) {
	var out []*domain.MarketSignal
	for _, row := range r.rows {
		if row.Currency != currency {
			continue
		}
		if filter.Timeframe != "" && row.Timeframe != filter.Timeframe {
			continue
		}
		if filter.Side != "" && row.Side() != filter.Side {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memoryRepo) DeleteOlderThan(ctx context.Context, currency, timeframe string, cutoff time.Time) (int64, error) {
	var kept []*domain.MarketSignal
	var deleted int64
	for _, row := range r.rows {
		if row.Currency == currency && row.Timeframe == timeframe && !row.Timestamp.After(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return deleted, nil
}

func (r *memoryRepo) RecordBatch(ctx context.Context, signals []*domain.MarketSignal, currency, timeframe string, cutoff time.Time) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	r.rows = append(r.rows, signals...)
	_, err := r.DeleteOlderThan(ctx, currency, timeframe, cutoff)
	return err
}

func newTestService(t *testing.T, repo *memoryRepo) *Service {
	t.Helper()
	svc, err := NewService(repo, &mockLogger{}, 5)
	require.NoError(t, err)
	return svc
}

func entryEval(ts time.Time) domain.SignalEvaluationResult {
	return domain.SignalEvaluationResult{
		Timestamp: ts,
		Currency:  "BTC/USDT",
		Timeframe: "15m",
		LongEntry: true,
	}
}

func testHints() *domain.TradeHints {
	return &domain.TradeHints{
		Long: &domain.PositionHints{
			IsLong:            true,
			EntryPrice:        100.0,
			BreakEvenPrice:    100.08,
			StopLossPercent:   3.0,
			TakeProfitPercent: 6.0,
			StopLossPrice:     97.0,
			TakeProfitPrice:   106.0,
		},
		Short: &domain.PositionHints{
			IsLong:          false,
			EntryPrice:      100.0,
			BreakEvenPrice:  99.92,
			StopLossPercent: 3.0,
			StopLossPrice:   103.0,
			TakeProfitPrice: 94.0,
		},
	}
}

func TestNewService(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		_, err := NewService(nil, &mockLogger{}, 5)
		assert.Error(t, err)
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := NewService(&memoryRepo{}, nil, 5)
		assert.Error(t, err)
	})

	t.Run("defaults retention", func(t *testing.T) {
		svc, err := NewService(&memoryRepo{}, &mockLogger{}, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultMarketSignalRetentionDays, svc.retentionDays)
	})
}

func TestRecordEntrySignal(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	now := time.Now().UTC()

	written, err := svc.Record(context.Background(), entryEval(now), testHints())
	require.NoError(t, err)
	require.Len(t, written, 1)

	sig := written[0]
	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, domain.SignalLongEntry, sig.Type)
	assert.Equal(t, "BTC/USDT", sig.Currency)
	assert.Equal(t, 100.0, sig.EntryPrice)
	assert.Equal(t, 100.08, sig.BreakEvenPrice)
	assert.Equal(t, 97.0, sig.StopLossPrice)
	assert.Equal(t, 106.0, sig.TakeProfitPrice)
	assert.Len(t, repo.rows, 1)
}

func TestRecordIsIdempotent(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	now := time.Now().UTC()

	first, err := svc.Record(context.Background(), entryEval(now), testHints())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Re-evaluating the same conditions must not duplicate the row.
	second, err := svc.Record(context.Background(), entryEval(now.Add(time.Minute)), testHints())
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, repo.rows, 1)
}

func TestRecordExitAfterEntry(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	now := time.Now().UTC()

	_, err := svc.Record(context.Background(), entryEval(now), testHints())
	require.NoError(t, err)

	exitEval := domain.SignalEvaluationResult{
		Timestamp: now.Add(15 * time.Minute),
		Currency:  "BTC/USDT",
		Timeframe: "15m",
		LongExit:  true,
	}
	written, err := svc.Record(context.Background(), exitEval, nil)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, domain.SignalLongExit, written[0].Type)
	// Exit rows carry no price snapshot.
	assert.Zero(t, written[0].EntryPrice)

	// A second exit for the same side is suppressed.
	exitEval.Timestamp = now.Add(30 * time.Minute)
	written, err = svc.Record(context.Background(), exitEval, nil)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestRecordExitWithoutHistoryIsSuppressed(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)

	eval := domain.SignalEvaluationResult{
		Timestamp: time.Now().UTC(),
		Currency:  "BTC/USDT",
		Timeframe: "15m",
		LongExit:  true,
	}
	written, err := svc.Record(context.Background(), eval, nil)
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.Empty(t, repo.rows)
}

func TestRecordSidesAreIndependent(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	now := time.Now().UTC()

	_, err := svc.Record(context.Background(), entryEval(now), testHints())
	require.NoError(t, err)

	shortEval := domain.SignalEvaluationResult{
		Timestamp:  now.Add(time.Minute),
		Currency:   "BTC/USDT",
		Timeframe:  "15m",
		ShortEntry: true,
	}
	written, err := svc.Record(context.Background(), shortEval, testHints())
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, domain.SignalShortEntry, written[0].Type)
	assert.Equal(t, 103.0, written[0].StopLossPrice)
}

func TestRecordAppliesRetention(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	now := time.Now().UTC()

	// Seed a stale exit row exactly at the retention boundary and a fresh one
	// just inside it. The boundary row must be pruned, the fresh one kept.
	stale := &domain.MarketSignal{
		ID:        "stale",
		Timestamp: now.AddDate(0, 0, -5),
		Currency:  "BTC/USDT",
		Timeframe: "15m",
		Type:      domain.SignalShortExit,
	}
	fresh := &domain.MarketSignal{
		ID:        "fresh",
		Timestamp: now.AddDate(0, 0, -5).Add(time.Second),
		Currency:  "BTC/USDT",
		Timeframe: "15m",
		Type:      domain.SignalShortEntry,
	}
	repo.rows = append(repo.rows, stale, fresh)

	written, err := svc.Record(context.Background(), entryEval(now), testHints())
	require.NoError(t, err)
	require.Len(t, written, 1)

	ids := make(map[string]bool)
	for _, row := range repo.rows {
		ids[row.ID] = true
	}
	assert.False(t, ids["stale"])
	assert.True(t, ids["fresh"])
	assert.Len(t, repo.rows, 2)
}

func TestRecordPropagatesRepositoryErrors(t *testing.T) {
	t.Run("find last fails", func(t *testing.T) {
		repo := &memoryRepo{findLastErr: errors.New("db locked")}
		svc := newTestService(t, repo)
		_, err := svc.Record(context.Background(), entryEval(time.Now()), testHints())
		assert.ErrorContains(t, err, "db locked")
	})

	t.Run("batch fails", func(t *testing.T) {
		repo := &memoryRepo{batchErr: errors.New("disk full")}
		svc := newTestService(t, repo)
		_, err := svc.Record(context.Background(), entryEval(time.Now()), testHints())
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestRecordNoSignals(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)

	eval := domain.SignalEvaluationResult{
		Timestamp: time.Now().UTC(),
		Currency:  "BTC/USDT",
		Timeframe: "15m",
	}
	written, err := svc.Record(context.Background(), eval, nil)
	require.NoError(t, err)
	assert.Empty(t, written)
}
