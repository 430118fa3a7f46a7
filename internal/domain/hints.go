package domain

// PositionHints is the immutable output of the position sizer for one side.
// It is recomputed on demand and never persisted.
type PositionHints struct {
	IsLong bool

	// IsSafe holds iff the liquidation price is strictly beyond the stop-loss
	// price in the adverse direction, so the stop fires before liquidation.
	IsSafe bool

	Margin           float64
	Leverage         int
	NotionalSize     float64
	LiquidationPrice float64

	EntryPrice      float64
	BreakEvenPrice  float64
	StopLossPrice   float64
	TakeProfitPrice float64

	// Laddered trailing-stop triggers: when price reaches TriggerLevel1 the
	// stop moves to break-even; at TriggerLevel2 it moves to TriggerLevel1.
	TriggerLevel1 float64
	TriggerLevel2 float64

	StopLossPercent   float64
	TakeProfitPercent float64

	PotentialProfit float64
	PotentialLoss   float64
}

// Side returns the position side these hints were computed for.
func (h *PositionHints) Side() PositionSide {
	if h.IsLong {
		return Long
	}
	return Short
}

// TradeHints bundles everything computed for a prospective trade: the quote
// and indicator snapshot used, the stop/target distances, and the sizing for
// both sides. Both sides are always computed, regardless of which one is
// ultimately acted upon.
type TradeHints struct {
	Ticker            *SymbolTicker
	Indicators        *CandleIndicators
	StopLossPercent   float64
	TakeProfitPercent float64
	Long              *PositionHints
	Short             *PositionHints
}

// ForSide returns the hints for the requested side.
func (h *TradeHints) ForSide(side PositionSide) *PositionHints {
	if side == Long {
		return h.Long
	}
	return h.Short
}
