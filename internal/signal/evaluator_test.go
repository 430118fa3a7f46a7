package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/domain"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	eval, err := NewEvaluator(&mockLogger{})
	require.NoError(t, err)
	return eval
}

func defaultParams() *domain.SignalParametrization {
	return domain.DefaultSignalParametrization("ETH/USDT")
}

// snapshots returns a (prev, last) pair that fires a long entry with the
// default parametrization. Tests mutate fields to break single conditions.
func snapshots() (*domain.CandleIndicators, *domain.CandleIndicators) {
	prev := &domain.CandleIndicators{
		Close: 100, EMA50: 95,
		StochRSIK: 0.10, StochRSID: 0.20,
		MACDHist: 0.4,
	}
	last := &domain.CandleIndicators{
		Close: 101, EMA50: 95,
		StochRSIK: 0.60, StochRSID: 0.30,
		MACDHist: 0.5,
	}
	return prev, last
}

func evaluate(t *testing.T, prev, last *domain.CandleIndicators, params *domain.SignalParametrization) domain.SignalEvaluationResult {
	t.Helper()
	eval := newTestEvaluator(t)
	return eval.Evaluate(context.Background(), "ETH/USDT", "15m", prev, last, params, time.Now())
}

func TestNewEvaluator_RequiresLogger(t *testing.T) {
	_, err := NewEvaluator(nil)
	require.Error(t, err)
}

func TestEvaluate_LongEntry(t *testing.T) {
	prev, last := snapshots()

	result := evaluate(t, prev, last, defaultParams())

	assert.True(t, result.LongEntry)
	assert.False(t, result.ShortEntry)
	assert.False(t, result.LongExit)
	// The bullish cross from oversold also flags a short exit.
	assert.True(t, result.ShortExit)
	assert.Equal(t, "ETH/USDT", result.Currency)
	assert.Equal(t, "15m", result.Timeframe)
	assert.True(t, result.HasSignal())
	assert.Equal(t, []domain.SignalType{domain.SignalLongEntry, domain.SignalShortExit}, result.Signals())
}

func TestEvaluate_LongEntry_RequiresTrend(t *testing.T) {
	prev, last := snapshots()
	last.EMA50 = 102 // price below trend line

	result := evaluate(t, prev, last, defaultParams())

	assert.False(t, result.LongEntry)
}

func TestEvaluate_LongEntry_RequiresOversoldStart(t *testing.T) {
	prev, last := snapshots()
	prev.StochRSIK = 0.30 // cross starts above the oversold band
	prev.StochRSID = 0.35

	result := evaluate(t, prev, last, defaultParams())

	assert.False(t, result.LongEntry)
	assert.False(t, result.ShortExit)
}

func TestEvaluate_LongEntry_RequiresPositiveMomentum(t *testing.T) {
	prev, last := snapshots()
	last.MACDHist = -0.1

	result := evaluate(t, prev, last, defaultParams())

	assert.False(t, result.LongEntry)
	// The exit leg has no momentum filter.
	assert.True(t, result.ShortExit)
}

func TestEvaluate_LongEntry_RequiresCross(t *testing.T) {
	prev, last := snapshots()
	prev.StochRSIK = 0.21 // %K already above %D on the previous candle
	prev.StochRSID = 0.20

	result := evaluate(t, prev, last, defaultParams())

	assert.False(t, result.LongEntry)
	assert.False(t, result.HasSignal())
}

func TestEvaluate_DoubleConfirmTrend(t *testing.T) {
	prev, last := snapshots()
	prev.Close = 90 // previous candle below trend line

	params := defaultParams()
	params.DoubleConfirmTrend = true
	result := evaluate(t, prev, last, params)
	assert.False(t, result.LongEntry)

	params.DoubleConfirmTrend = false
	result = evaluate(t, prev, last, params)
	assert.True(t, result.LongEntry)
}

func TestEvaluate_ShortEntry(t *testing.T) {
	prev := &domain.CandleIndicators{
		Close: 100, EMA50: 105,
		StochRSIK: 0.90, StochRSID: 0.80,
		MACDHist: -0.4,
	}
	last := &domain.CandleIndicators{
		Close: 99, EMA50: 105,
		StochRSIK: 0.40, StochRSID: 0.70,
		MACDHist: -0.5,
	}

	result := evaluate(t, prev, last, defaultParams())

	assert.True(t, result.ShortEntry)
	assert.False(t, result.LongEntry)
	// The bearish cross from overbought also flags a long exit.
	assert.True(t, result.LongExit)
	assert.False(t, result.ShortExit)
}

func TestEvaluate_ShortEntry_RequiresOverboughtStart(t *testing.T) {
	prev := &domain.CandleIndicators{
		Close: 100, EMA50: 105,
		StochRSIK: 0.60, StochRSID: 0.55,
		MACDHist: -0.4,
	}
	last := &domain.CandleIndicators{
		Close: 99, EMA50: 105,
		StochRSIK: 0.40, StochRSID: 0.50,
		MACDHist: -0.5,
	}

	result := evaluate(t, prev, last, defaultParams())

	assert.False(t, result.ShortEntry)
	assert.False(t, result.LongExit)
}

func TestEvaluate_ExitWithoutTrendFilter(t *testing.T) {
	// Price far above EMA50, so no short entry; the bearish cross out of the
	// overbought band still raises the long exit.
	prev := &domain.CandleIndicators{
		Close: 110, EMA50: 95,
		StochRSIK: 0.85, StochRSID: 0.80,
		MACDHist: 0.4,
	}
	last := &domain.CandleIndicators{
		Close: 109, EMA50: 95,
		StochRSIK: 0.50, StochRSID: 0.60,
		MACDHist: 0.3,
	}

	result := evaluate(t, prev, last, defaultParams())

	assert.True(t, result.LongExit)
	assert.False(t, result.ShortEntry)
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	prev, last := snapshots()
	prev.StochRSIK = 0.30
	prev.StochRSID = 0.35

	// Widening the oversold band re-enables the entry.
	params := defaultParams()
	params.LongEntryOversoldThreshold = 0.35

	result := evaluate(t, prev, last, params)

	assert.True(t, result.LongEntry)
}

func TestEvaluate_NoSignalOnFlatMarket(t *testing.T) {
	flat := &domain.CandleIndicators{
		Close: 100, EMA50: 100,
		StochRSIK: 0.50, StochRSID: 0.50,
		MACDHist: 0,
	}

	result := evaluate(t, flat, flat, defaultParams())

	assert.False(t, result.HasSignal())
	assert.Empty(t, result.Signals())
}
