package domain

import "time"

// SignalEvaluationResult is the outcome of evaluating two consecutive
// indicator snapshots for one currency and timeframe. It is ephemeral and
// produced fresh on every scheduler tick; its identity key is
// currency+timeframe.
type SignalEvaluationResult struct {
	Timestamp time.Time
	Currency  string
	Timeframe string

	LongEntry  bool
	LongExit   bool
	ShortEntry bool
	ShortExit  bool
}

// Signals returns the explicit set of signal tags raised by this evaluation,
// in a stable order.
func (r SignalEvaluationResult) Signals() []SignalType {
	signals := make([]SignalType, 0, 2)
	if r.LongEntry {
		signals = append(signals, SignalLongEntry)
	}
	if r.LongExit {
		signals = append(signals, SignalLongExit)
	}
	if r.ShortEntry {
		signals = append(signals, SignalShortEntry)
	}
	if r.ShortExit {
		signals = append(signals, SignalShortExit)
	}
	return signals
}

// HasSignal reports whether any entry or exit flag is set.
func (r SignalEvaluationResult) HasSignal() bool {
	return r.LongEntry || r.LongExit || r.ShortEntry || r.ShortExit
}

// MarketSignal is a persisted ledger row recording a detected action-type
// transition for a (currency, timeframe, side) key. Entry rows carry the full
// price/percent snapshot computed by the position sizer; exit rows carry only
// the identity fields.
type MarketSignal struct {
	ID        string // UUID assigned on insert
	Timestamp time.Time
	Currency  string
	Timeframe string
	Type      SignalType

	// Entry snapshot (zero for EXIT rows)
	EntryPrice        float64
	BreakEvenPrice    float64
	StopLossPercent   float64
	TakeProfitPercent float64
	StopLossPrice     float64
	TakeProfitPrice   float64
}

// Side returns the position side this signal refers to.
func (s *MarketSignal) Side() PositionSide { return s.Type.Side() }

// Action returns the action type this signal refers to.
func (s *MarketSignal) Action() MarketActionType { return s.Type.Action() }
