package domain

import "math"

// Position is a futures position as reported by the exchange. The engine only
// reads and creates positions through the gateway; the exchange owns them.
type Position struct {
	ID               string
	Symbol           string
	Side             PositionSide
	Leverage         int
	EntryPrice       float64
	Contracts        float64
	ContractSize     float64
	Fee              float64
	InitialMargin    float64
	LiquidationPrice float64
	Isolated         bool

	// Protective levels attached to the position, 0 when absent.
	StopLossPrice   float64
	TakeProfitPrice float64
}

// SymbolTicker is a point-in-time price quote for a symbol.
type SymbolTicker struct {
	Symbol    string
	Timestamp int64 // milliseconds since epoch
	Close     float64
	Ask       float64
	Bid       float64
	MarkPrice float64
}

// AskOrClose returns the ask price, falling back to the close when the
// exchange did not report one.
func (t *SymbolTicker) AskOrClose() float64 {
	if t.Ask > 0 {
		return t.Ask
	}
	return t.Close
}

// BidOrClose returns the bid price, falling back to the close when the
// exchange did not report one.
func (t *SymbolTicker) BidOrClose() float64 {
	if t.Bid > 0 {
		return t.Bid
	}
	return t.Close
}

// MarkOrClose returns the mark price, falling back to the close.
func (t *SymbolTicker) MarkOrClose() float64 {
	if t.MarkPrice > 0 {
		return t.MarkPrice
	}
	return t.Close
}

// SymbolMarketConfig carries the exchange-supplied market metadata needed for
// price and amount rounding.
type SymbolMarketConfig struct {
	Symbol          string
	PricePrecision  int
	AmountPrecision int
	ContractSize    float64
}

// RoundPrice rounds a price to the market's price precision.
func (c *SymbolMarketConfig) RoundPrice(price float64) float64 {
	factor := math.Pow(10, float64(c.PricePrecision))
	return math.Round(price*factor) / factor
}

// PositionMetrics derives the monetary figures of an open position from the
// exchange-reported position, the current ticker and the market config.
// All monetary values are rounded to the market's price precision.
type PositionMetrics struct {
	Position     *Position
	MarketConfig *SymbolMarketConfig
	Ticker       *SymbolTicker
}

func (m *PositionMetrics) direction() float64 {
	if m.Position.Side == Long {
		return 1
	}
	return -1
}

// Notional returns the position value: contracts x contract size x entry price.
func (m *PositionMetrics) Notional() float64 {
	return m.MarketConfig.RoundPrice(m.Position.Contracts * m.Position.ContractSize * m.Position.EntryPrice)
}

// InitialMargin returns the margin allocated to the position.
func (m *PositionMetrics) InitialMargin() float64 {
	return m.MarketConfig.RoundPrice(m.Position.InitialMargin)
}

// UnrealisedPnL returns the unrealised profit (positive) or loss (negative)
// for a USDT-margined linear position at the current mark price.
func (m *PositionMetrics) UnrealisedPnL() float64 {
	return m.MarketConfig.RoundPrice(
		m.direction() * (m.Ticker.MarkOrClose() - m.Position.EntryPrice) * m.Position.Contracts * m.Position.ContractSize)
}

// UnrealisedPnLRatio returns the unrealised PnL as a fraction of the initial
// margin, rounded to 2 decimals.
func (m *PositionMetrics) UnrealisedPnLRatio() float64 {
	margin := m.InitialMargin()
	if margin == 0 {
		return 0
	}
	return math.Round(m.UnrealisedPnL()/margin*100) / 100
}

// UnrealisedNetRevenue returns the unrealised economic result including
// already-paid fees.
func (m *PositionMetrics) UnrealisedNetRevenue() float64 {
	return m.MarketConfig.RoundPrice(m.UnrealisedPnL() - m.Position.Fee)
}

// PotentialProfitAtTP returns the theoretical PnL if the take-profit level is
// hit, or 0 when no take-profit is attached.
func (m *PositionMetrics) PotentialProfitAtTP() float64 {
	if m.Position.TakeProfitPrice == 0 {
		return 0
	}
	return m.MarketConfig.RoundPrice(
		m.direction() * (m.Position.TakeProfitPrice - m.Position.EntryPrice) * m.Position.Contracts * m.Position.ContractSize)
}

// PotentialLossAtSL returns the theoretical PnL if the stop-loss level is hit.
// Negative by definition; 0 when no stop-loss is attached.
func (m *PositionMetrics) PotentialLossAtSL() float64 {
	if m.Position.StopLossPrice == 0 {
		return 0
	}
	return m.MarketConfig.RoundPrice(
		m.direction() * (m.Position.StopLossPrice - m.Position.EntryPrice) * m.Position.Contracts * m.Position.ContractSize)
}

// ProfitFactor returns potential profit over potential loss, rounded to 2
// decimals, or 0 when either protective level is missing.
func (m *PositionMetrics) ProfitFactor() float64 {
	loss := math.Abs(m.PotentialLossAtSL())
	profit := m.PotentialProfitAtTP()
	if loss == 0 || profit == 0 {
		return 0
	}
	return math.Round(profit/loss*100) / 100
}
