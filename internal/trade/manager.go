package trade

import (
	"context"
	"fmt"
	"time"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
	"futuresbot/internal/risk"
)

// OpenPositionResult is the typed outcome of an open-position request.
// Business rules (already open, concurrency cap, no funds) produce a result
// type, never an error; errors mean the workflow itself failed.
type OpenPositionResult struct {
	Type     domain.OpenPositionResultType
	Position *domain.Position
	Metrics  *domain.PositionMetrics
	Order    *ports.OrderResponse
}

// Config holds the trade manager settings.
type Config struct {
	// OrderPollInterval is the pause between order status polls.
	OrderPollInterval time.Duration
	// OrderPollMaxAttempts bounds how many polls run before giving up.
	OrderPollMaxAttempts int
}

// Manager executes the trade-opening workflow and computes trade hints.
type Manager struct {
	gateway     ports.FuturesGateway
	provider    ports.IndicatorProvider
	sizer       *risk.Sizer
	riskRepo    ports.RiskManagementRepository
	paramRepo   ports.SignalParametrizationRepository
	trackedRepo ports.TrackedCurrencyRepository
	logger      ports.Logger
	config      Config
}

// NewManager creates the trade manager.
func NewManager(
	gateway ports.FuturesGateway,
	provider ports.IndicatorProvider,
	sizer *risk.Sizer,
	riskRepo ports.RiskManagementRepository,
	paramRepo ports.SignalParametrizationRepository,
	trackedRepo ports.TrackedCurrencyRepository,
	logger ports.Logger,
	config Config,
) (*Manager, error) {
	if gateway == nil {
		return nil, fmt.Errorf("futures gateway is required for trade manager")
	}
	if provider == nil {
		return nil, fmt.Errorf("indicator provider is required for trade manager")
	}
	if sizer == nil {
		return nil, fmt.Errorf("position sizer is required for trade manager")
	}
	if riskRepo == nil || paramRepo == nil || trackedRepo == nil {
		return nil, fmt.Errorf("repositories are required for trade manager")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for trade manager")
	}
	if config.OrderPollInterval <= 0 {
		config.OrderPollInterval = 500 * time.Millisecond
	}
	if config.OrderPollMaxAttempts <= 0 {
		config.OrderPollMaxAttempts = 20
	}
	return &Manager{
		gateway:     gateway,
		provider:    provider,
		sizer:       sizer,
		riskRepo:    riskRepo,
		paramRepo:   paramRepo,
		trackedRepo: trackedRepo,
		logger:      logger,
		config:      config,
	}, nil
}

// ComputeTradeHints gathers the quote, indicators, balances and settings for a
// currency and sizes both position sides. Longs are priced at the ask, shorts
// at the bid.
func (m *Manager) ComputeTradeHints(ctx context.Context, currency, timeframe string) (*domain.TradeHints, error) {
	op := "computeTradeHints"

	ticker, err := m.gateway.GetSymbolTicker(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching ticker for %s: %w", op, currency, err)
	}
	last, err := m.provider.GetCandlestickIndicators(ctx, currency, timeframe, domain.CandleLast)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching indicators for %s: %w", op, currency, err)
	}
	marketConfig, err := m.gateway.GetSymbolMarketConfig(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching market config for %s: %w", op, currency, err)
	}
	params, err := m.paramRepo.FindByCurrency(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: loading parametrization for %s: %w", op, currency, err)
	}
	riskSetting, err := m.riskRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: loading risk setting: %w", op, err)
	}
	balance, err := m.gateway.GetPortfolioBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching portfolio balance: %w", op, err)
	}
	wallet, err := m.gateway.GetFuturesWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching futures wallet: %w", op, err)
	}
	tracked, err := m.trackedRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: loading tracked currencies: %w", op, err)
	}

	autoTradeCount := 0
	for _, tc := range tracked {
		if tc.AutoTradeEnabled {
			autoTradeCount++
		}
	}

	input := risk.SizingInput{
		ATR:                    last.ATR,
		Params:                 params,
		Risk:                   riskSetting,
		MarketConfig:           marketConfig,
		TotalBalance:           balance.Total(),
		FuturesBalance:         balance.FuturesBalance,
		WalletAvailableBalance: wallet.AvailableBalance,
		TrackedCount:           len(tracked),
		AutoTradeEnabledCount:  autoTradeCount,
		TakerFee:               m.gateway.GetTakerFee(),
	}

	longInput := input
	longInput.EntryPrice = ticker.AskOrClose()
	shortInput := input
	shortInput.EntryPrice = ticker.BidOrClose()

	long := m.sizer.ComputeHints(longInput, true)
	short := m.sizer.ComputeHints(shortInput, false)

	return &domain.TradeHints{
		Ticker:            ticker,
		Indicators:        last,
		StopLossPercent:   long.StopLossPercent,
		TakeProfitPercent: long.TakeProfitPercent,
		Long:              long,
		Short:             short,
	}, nil
}

// OpenPosition runs the full trade-opening workflow for a currency and side:
// pre-trade checks, market entry in isolated mode with protective levels,
// polling the order to a terminal state, and resolving the resulting position.
func (m *Manager) OpenPosition(ctx context.Context, currency, timeframe string, side domain.PositionSide) (*OpenPositionResult, error) {
	op := "openPosition"

	positions, err := m.gateway.GetOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: listing open positions: %w", op, err)
	}
	for _, pos := range positions {
		// An open position on the symbol blocks a new entry on either side.
		if pos.Symbol == currency {
			m.logger.Info(ctx, "Position already open, skipping entry", map[string]interface{}{
				"op": op, "currency": currency, "openSide": string(pos.Side), "requestedSide": string(side),
			})
			return &OpenPositionResult{Type: domain.OpenResultAlreadyOpen, Position: pos}, nil
		}
	}

	riskSetting, err := m.riskRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: loading risk setting: %w", op, err)
	}
	if len(positions) >= riskSetting.NumberOfConcurrentTrades {
		m.logger.Info(ctx, "Concurrent position cap reached, skipping entry", map[string]interface{}{
			"op": op, "currency": currency, "open": len(positions), "cap": riskSetting.NumberOfConcurrentTrades,
		})
		return &OpenPositionResult{Type: domain.OpenResultMaxConcurrentPositionsReached}, nil
	}

	hints, err := m.ComputeTradeHints(ctx, currency, timeframe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sideHints := hints.ForSide(side)
	if sideHints.Margin <= 0 {
		m.logger.Warn(ctx, "No margin available, skipping entry", map[string]interface{}{
			"op": op, "currency": currency, "side": string(side),
		})
		return &OpenPositionResult{Type: domain.OpenResultNoFunds}, nil
	}
	if !sideHints.IsSafe {
		m.logger.Warn(ctx, "Liquidation price inside stop band", map[string]interface{}{
			"op":          op,
			"currency":    currency,
			"side":        string(side),
			"leverage":    sideHints.Leverage,
			"liquidation": sideHints.LiquidationPrice,
			"stopLoss":    sideHints.StopLossPrice,
		})
	}

	order := &ports.CreateMarketPositionOrder{
		Symbol:          currency,
		Side:            side,
		Margin:          sideHints.Margin,
		Leverage:        sideHints.Leverage,
		Isolated:        true,
		StopLossPrice:   sideHints.StopLossPrice,
		TakeProfitPrice: sideHints.TakeProfitPrice,
	}
	resp, err := m.gateway.CreateMarketPositionOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: placing %s order for %s: %w", op, side, currency, err)
	}
	m.logger.Info(ctx, "Entry order placed", map[string]interface{}{
		"op":       op,
		"currency": currency,
		"side":     string(side),
		"orderId":  resp.OrderID,
		"margin":   sideHints.Margin,
		"leverage": sideHints.Leverage,
	})

	resp, err = m.awaitTerminalOrder(ctx, currency, resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Status != ports.OrderStatusFilled {
		return nil, fmt.Errorf("%s: order %d for %s %s ended %s: %w",
			op, resp.OrderID, currency, side, resp.Status, ports.ErrOrderNotFilled)
	}

	position, err := m.resolvePosition(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ticker, err := m.gateway.GetSymbolTicker(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching ticker for metrics: %w", op, err)
	}
	marketConfig, err := m.gateway.GetSymbolMarketConfig(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching market config for metrics: %w", op, err)
	}

	m.logger.Info(ctx, "Position opened", map[string]interface{}{
		"op":         op,
		"currency":   currency,
		"side":       string(side),
		"entryPrice": position.EntryPrice,
		"leverage":   position.Leverage,
	})
	return &OpenPositionResult{
		Type:     domain.OpenResultSuccess,
		Position: position,
		Order:    resp,
		Metrics: &domain.PositionMetrics{
			Position:     position,
			MarketConfig: marketConfig,
			Ticker:       ticker,
		},
	}, nil
}

// awaitTerminalOrder polls the order at a fixed interval until it reaches a
// terminal state or the attempt budget runs out.
func (m *Manager) awaitTerminalOrder(ctx context.Context, currency string, resp *ports.OrderResponse) (*ports.OrderResponse, error) {
	for attempt := 0; attempt < m.config.OrderPollMaxAttempts; attempt++ {
		if resp.Status.IsTerminal() {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("awaiting order %d: %w", resp.OrderID, ports.ErrContextCanceled)
		case <-time.After(m.config.OrderPollInterval):
		}
		updated, err := m.gateway.GetOrder(ctx, currency, resp.OrderID)
		if err != nil {
			return nil, fmt.Errorf("polling order %d: %w", resp.OrderID, err)
		}
		resp = updated
	}
	if resp.Status.IsTerminal() {
		return resp, nil
	}
	return nil, fmt.Errorf("order %d still %s after %d polls: %w",
		resp.OrderID, resp.Status, m.config.OrderPollMaxAttempts, ports.ErrTimeout)
}

// resolvePosition re-reads open positions after a fill and returns the one for
// the symbol. A filled entry with no visible position is a data fault.
func (m *Manager) resolvePosition(ctx context.Context, currency string) (*domain.Position, error) {
	positions, err := m.gateway.GetOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("re-reading open positions: %w", err)
	}
	for _, pos := range positions {
		if pos.Symbol == currency {
			return pos, nil
		}
	}
	return nil, fmt.Errorf("filled order has no open position for %s: %w", currency, ports.ErrPositionNotFound)
}
