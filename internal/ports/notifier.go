package ports

import (
	"context"

	"futuresbot/internal/domain"
)

// Notifier dispatches engine events to downstream subscribers. Three channels
// exist: market signals, trade alerts, and fatal errors.
type Notifier interface {
	// NotifySignal announces a newly recorded market signal.
	NotifySignal(ctx context.Context, signal *domain.MarketSignal) error
	// NotifyTrade announces the outcome of an open-position attempt.
	NotifyTrade(ctx context.Context, message string) error
	// NotifyFatalError routes an uncaught per-currency failure to operators.
	NotifyFatalError(ctx context.Context, err error) error
}
