package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
)

// Service maintains the idempotent market-signal ledger. A signal is recorded
// only when it changes the last recorded action for its (currency, timeframe,
// side) key, so re-evaluating the same candle never produces duplicate rows.
//
// Record serializes all writers through a process-wide mutex: dedup reads and
// the subsequent batch insert must not interleave between concurrent ticks.
type Service struct {
	mu            sync.Mutex
	repo          ports.MarketSignalRepository
	logger        ports.Logger
	retentionDays int
}

// NewService creates the ledger service. retentionDays bounds how long rows
// are kept; zero or negative falls back to the default retention.
func NewService(repo ports.MarketSignalRepository, logger ports.Logger, retentionDays int) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("market signal repository is required for ledger service")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for ledger service")
	}
	if retentionDays <= 0 {
		retentionDays = domain.DefaultMarketSignalRetentionDays
	}
	return &Service{repo: repo, logger: logger, retentionDays: retentionDays}, nil
}

// Record persists the state transitions implied by an evaluation result.
// For each raised signal tag it checks the last recorded row for the same
// (currency, timeframe, side): a row is written only when the action type
// differs, or when an entry arrives with no prior history. All inserts and the
// retention prune commit in one transaction.
//
// The returned slice holds the rows actually written, in evaluation order.
func (s *Service) Record(ctx context.Context, eval domain.SignalEvaluationResult, hints *domain.TradeHints) ([]*domain.MarketSignal, error) {
	op := "recordSignals"

	s.mu.Lock()
	defer s.mu.Unlock()

	var toInsert []*domain.MarketSignal
	for _, sigType := range eval.Signals() {
		accepted, err := s.shouldRecord(ctx, eval, sigType)
		if err != nil {
			return nil, fmt.Errorf("%s: checking last signal for %s %s: %w", op, eval.Currency, sigType, err)
		}
		if !accepted {
			s.logger.Debug(ctx, "Signal suppressed as duplicate", map[string]interface{}{
				"op":        op,
				"currency":  eval.Currency,
				"timeframe": eval.Timeframe,
				"type":      string(sigType),
			})
			continue
		}
		toInsert = append(toInsert, s.buildSignal(eval, sigType, hints))
	}

	if len(toInsert) == 0 {
		return nil, nil
	}

	cutoff := eval.Timestamp.AddDate(0, 0, -s.retentionDays)
	if err := s.repo.RecordBatch(ctx, toInsert, eval.Currency, eval.Timeframe, cutoff); err != nil {
		return nil, fmt.Errorf("%s: persisting %d signals for %s: %w", op, len(toInsert), eval.Currency, err)
	}

	for _, sig := range toInsert {
		s.logger.Info(ctx, "Market signal recorded", map[string]interface{}{
			"op":        op,
			"id":        sig.ID,
			"currency":  sig.Currency,
			"timeframe": sig.Timeframe,
			"type":      string(sig.Type),
		})
	}
	return toInsert, nil
}

// shouldRecord applies the per-side state machine: NONE allows only entries,
// and any recorded action allows only the opposite action.
func (s *Service) shouldRecord(ctx context.Context, eval domain.SignalEvaluationResult, sigType domain.SignalType) (bool, error) {
	last, err := s.repo.FindLast(ctx, eval.Currency, eval.Timeframe, sigType.Side())
	if err != nil {
		return false, err
	}
	if last == nil {
		return sigType.IsEntry(), nil
	}
	return last.Action() != sigType.Action(), nil
}

func (s *Service) buildSignal(eval domain.SignalEvaluationResult, sigType domain.SignalType, hints *domain.TradeHints) *domain.MarketSignal {
	sig := &domain.MarketSignal{
		ID:        uuid.NewString(),
		Timestamp: eval.Timestamp,
		Currency:  eval.Currency,
		Timeframe: eval.Timeframe,
		Type:      sigType,
	}
	if sigType.IsEntry() && hints != nil {
		side := hints.ForSide(sigType.Side())
		sig.EntryPrice = side.EntryPrice
		sig.BreakEvenPrice = side.BreakEvenPrice
		sig.StopLossPercent = side.StopLossPercent
		sig.TakeProfitPercent = side.TakeProfitPercent
		sig.StopLossPrice = side.StopLossPrice
		sig.TakeProfitPrice = side.TakeProfitPrice
	}
	return sig
}

// Last returns the most recent recorded signal for the key, or nil when the
// ledger has none.
func (s *Service) Last(ctx context.Context, currency, timeframe string, side domain.PositionSide) (*domain.MarketSignal, error) {
	return s.repo.FindLast(ctx, currency, timeframe, side)
}

// List returns the filtered signal history for a currency, newest first.
func (s *Service) List(ctx context.Context, currency string, filter ports.MarketSignalFilter) ([]*domain.MarketSignal, error) {
	return s.repo.FindAll(ctx, currency, filter)
}

// Prune removes rows at or older than the retention window for the key,
// returning how many were deleted. Record already prunes inline; this exists
// for maintenance callers.
func (s *Service) Prune(ctx context.Context, currency, timeframe string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.DeleteOlderThan(ctx, currency, timeframe, now.AddDate(0, 0, -s.retentionDays))
}
