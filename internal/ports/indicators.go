package ports

import (
	"context"

	"futuresbot/internal/domain"
)

// IndicatorProvider computes technical-indicator snapshots from market data.
// The engine never computes indicators itself; it consumes snapshots.
type IndicatorProvider interface {
	// GetTechnicalAnalysis returns the indicator table for a symbol, oldest
	// first, with warm-up rows already dropped.
	GetTechnicalAnalysis(ctx context.Context, symbol, timeframe string) ([]*domain.CandleIndicators, error)

	// GetCandlestickIndicators returns the snapshot at the given index
	// (PREV or LAST). Returns ErrInsufficientCandles when the table is too
	// short to resolve the index.
	GetCandlestickIndicators(ctx context.Context, symbol, timeframe string, index domain.CandleIndex) (*domain.CandleIndicators, error)
}
