package signal

import (
	"context"
	"fmt"
	"time"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
)

// Evaluator turns two consecutive indicator snapshots into entry/exit flags.
// It is a pure function of its inputs; all side effects (ledger, notification,
// trading) happen downstream.
type Evaluator struct {
	logger ports.Logger
}

// NewEvaluator creates a new signal evaluator.
func NewEvaluator(logger ports.Logger) (*Evaluator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for signal evaluator")
	}
	return &Evaluator{logger: logger}, nil
}

// Evaluate applies the entry and exit rules to the PREV and LAST snapshots.
//
// A long entry requires: price above EMA50 (trend), a bullish StochRSI %K/%D
// cross that starts from the oversold band, and positive MACD histogram
// (momentum). A short entry mirrors every condition. Exits fire on the
// opposite StochRSI cross out of the extreme band, without trend or momentum
// filters.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	currency, timeframe string,
	prev, last *domain.CandleIndicators,
	params *domain.SignalParametrization,
	now time.Time,
) domain.SignalEvaluationResult {
	bullishCross := prev.StochRSIK <= prev.StochRSID && last.StochRSIK > last.StochRSID
	bearishCross := prev.StochRSIK >= prev.StochRSID && last.StochRSIK < last.StochRSID

	upTrend := last.Close > last.EMA50
	downTrend := last.Close < last.EMA50
	if params.DoubleConfirmTrend {
		upTrend = upTrend && prev.Close > prev.EMA50
		downTrend = downTrend && prev.Close < prev.EMA50
	}

	wasOversold := prev.StochRSIK < params.LongEntryOversoldThreshold
	wasOverbought := prev.StochRSIK > params.ShortEntryOverboughtThreshold

	result := domain.SignalEvaluationResult{
		Timestamp: now,
		Currency:  currency,
		Timeframe: timeframe,

		LongEntry:  upTrend && bullishCross && wasOversold && last.MACDHist > 0,
		ShortEntry: downTrend && bearishCross && wasOverbought && last.MACDHist < 0,

		LongExit:  bearishCross && wasOverbought,
		ShortExit: bullishCross && wasOversold,
	}

	if result.HasSignal() {
		e.logger.Debug(ctx, "Signal conditions met", map[string]interface{}{
			"currency":   currency,
			"timeframe":  timeframe,
			"longEntry":  result.LongEntry,
			"shortEntry": result.ShortEntry,
			"longExit":   result.LongExit,
			"shortExit":  result.ShortExit,
			"close":      last.Close,
			"ema50":      last.EMA50,
			"macdHist":   last.MACDHist,
			"stochK":     last.StochRSIK,
			"stochD":     last.StochRSID,
		})
	}
	return result
}
