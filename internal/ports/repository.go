package ports

import (
	"context"
	"time"

	"futuresbot/internal/domain"
)

// MarketSignalFilter narrows a ledger history query. Zero values mean "any".
type MarketSignalFilter struct {
	Timeframe string
	Side      domain.PositionSide
}

// MarketSignalRepository persists the signal ledger rows.
type MarketSignalRepository interface {
	// Insert saves a new signal row, assigning its ID.
	Insert(ctx context.Context, signal *domain.MarketSignal) error

	// FindLast returns the most recent row for (currency, timeframe, side),
	// or nil, nil when none exists.
	FindLast(ctx context.Context, currency, timeframe string, side domain.PositionSide) (*domain.MarketSignal, error)

	// FindAll returns the filtered history for a currency, newest first.
	FindAll(ctx context.Context, currency string, filter MarketSignalFilter) ([]*domain.MarketSignal, error)

	// DeleteOlderThan removes rows for (currency, timeframe) with a timestamp
	// at or before the cutoff, returning how many were removed.
	DeleteOlderThan(ctx context.Context, currency, timeframe string, cutoff time.Time) (int64, error)

	// RecordBatch inserts the given rows and applies the retention cutoff for
	// (currency, timeframe) within a single transaction: either all inserts
	// and the prune commit, or none do.
	RecordBatch(ctx context.Context, signals []*domain.MarketSignal, currency, timeframe string, cutoff time.Time) error
}

// RiskManagementRepository persists the singleton risk budget row.
type RiskManagementRepository interface {
	// Get returns the persisted setting, or the defaults when no row exists.
	Get(ctx context.Context) (*domain.RiskManagementSetting, error)
	// Update writes the setting, creating the row when absent.
	Update(ctx context.Context, setting *domain.RiskManagementSetting) error
}

// SignalParametrizationRepository persists per-currency signal tunables.
type SignalParametrizationRepository interface {
	// FindByCurrency returns the persisted parametrization for the currency,
	// or the defaults when no row exists.
	FindByCurrency(ctx context.Context, currency string) (*domain.SignalParametrization, error)
	// SaveOrUpdate writes the parametrization, creating the row when absent.
	SaveOrUpdate(ctx context.Context, params *domain.SignalParametrization) error
}

// TrackedCurrencyRepository persists the set of currencies the scheduler
// evaluates, with their auto-trade flags.
type TrackedCurrencyRepository interface {
	// FindAll returns all tracked currencies ordered by currency code.
	FindAll(ctx context.Context) ([]*domain.TrackedCurrency, error)
	// IsAutoTradeEnabled reports whether auto-trading is on for the currency.
	IsAutoTradeEnabled(ctx context.Context, currency string) (bool, error)
	// Upsert adds or updates a tracked currency.
	Upsert(ctx context.Context, tracked *domain.TrackedCurrency) error
	// Remove deletes a tracked currency.
	Remove(ctx context.Context, currency string) error
}
