package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"futuresbot/internal/domain"
	"futuresbot/internal/ledger"
	"futuresbot/internal/ports"
	evaluator "futuresbot/internal/signal"
	"futuresbot/internal/trade"
)

// Config holds the engine scheduler settings.
type Config struct {
	// Timeframe is the candle interval evaluated on every tick.
	Timeframe string
	// TickInterval is the pause between scheduler ticks.
	TickInterval time.Duration
	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables the listener.
	MetricsAddr string
}

// Engine drives the signal pipeline. On every tick it walks the tracked
// currencies sequentially and, for each one, computes indicators, evaluates
// signals, records them in the ledger, notifies subscribers, and opens
// positions for entry signals on auto-trade currencies. A failure in one
// currency is logged and reported but never stops the others.
type Engine struct {
	cfg         Config
	logger      ports.Logger
	provider    ports.IndicatorProvider
	evaluator   *evaluator.Evaluator
	ledger      *ledger.Service
	trader      *trade.Manager
	notifier    ports.Notifier
	trackedRepo ports.TrackedCurrencyRepository
	paramRepo   ports.SignalParametrizationRepository

	registry *prometheus.Registry
	metrics  *metrics
}

// NewEngine creates the engine and validates its dependencies.
func NewEngine(
	cfg Config,
	logger ports.Logger,
	provider ports.IndicatorProvider,
	eval *evaluator.Evaluator,
	ledgerSvc *ledger.Service,
	trader *trade.Manager,
	notifier ports.Notifier,
	trackedRepo ports.TrackedCurrencyRepository,
	paramRepo ports.SignalParametrizationRepository,
) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for engine")
	}
	if provider == nil || eval == nil || ledgerSvc == nil || trader == nil {
		return nil, fmt.Errorf("pipeline services are required for engine")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required for engine")
	}
	if trackedRepo == nil || paramRepo == nil {
		return nil, fmt.Errorf("repositories are required for engine")
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = domain.DefaultTimeframe
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}

	registry := prometheus.NewRegistry()
	return &Engine{
		cfg:         cfg,
		logger:      logger,
		provider:    provider,
		evaluator:   eval,
		ledger:      ledgerSvc,
		trader:      trader,
		notifier:    notifier,
		trackedRepo: trackedRepo,
		paramRepo:   paramRepo,
		registry:    registry,
		metrics:     newMetrics(registry),
	}, nil
}

// Start runs the scheduler loop until the context is canceled or a shutdown
// signal arrives. Ticks run strictly one at a time; if a tick overruns the
// interval, the missed ticks are dropped rather than queued.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info(ctx, "Starting engine", map[string]interface{}{
		"timeframe":    e.cfg.Timeframe,
		"tickInterval": e.cfg.TickInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			e.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if e.cfg.MetricsAddr != "" {
		stop := e.serveMetrics(ctx)
		defer stop()
	}

	e.processTick(ctx)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, "Engine stopped")
			return nil
		case <-ticker.C:
			e.processTick(ctx)
		}
	}
}

// processTick evaluates every tracked currency once. Failures are isolated
// per currency: they are counted, logged and forwarded to the fatal-error
// channel, then the loop moves on.
func (e *Engine) processTick(ctx context.Context) {
	op := "processTick"
	started := time.Now()
	e.metrics.ticks.Inc()

	tracked, err := e.trackedRepo.FindAll(ctx)
	if err != nil {
		e.logger.Error(ctx, err, "Failed to load tracked currencies", map[string]interface{}{"op": op})
		return
	}
	if len(tracked) == 0 {
		e.logger.Warn(ctx, "No tracked currencies configured", map[string]interface{}{"op": op})
		return
	}

	for _, tc := range tracked {
		if ctx.Err() != nil {
			return
		}
		if err := e.processCurrency(ctx, tc); err != nil {
			e.metrics.currencyErrors.Inc()
			e.logger.Error(ctx, err, "Currency pipeline failed", map[string]interface{}{
				"op":       op,
				"currency": tc.Currency,
			})
			if notifyErr := e.notifier.NotifyFatalError(ctx, err); notifyErr != nil {
				e.logger.Warn(ctx, "Failed to notify fatal error", map[string]interface{}{
					"op":    op,
					"error": notifyErr.Error(),
				})
			}
		}
	}

	e.metrics.tickDuration.Observe(time.Since(started).Seconds())
}

// processCurrency runs the full pipeline for one currency: indicators,
// evaluation, ledger recording, notification, and auto-trading.
func (e *Engine) processCurrency(ctx context.Context, tc *domain.TrackedCurrency) error {
	op := "processCurrency"

	table, err := e.provider.GetTechnicalAnalysis(ctx, tc.Currency, e.cfg.Timeframe)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientCandles) {
			e.logger.Warn(ctx, "Not enough candles, skipping currency", map[string]interface{}{
				"op": op, "currency": tc.Currency, "timeframe": e.cfg.Timeframe,
			})
			return nil
		}
		return fmt.Errorf("%s: computing indicators for %s: %w", op, tc.Currency, err)
	}
	if len(table) < 2 {
		e.logger.Warn(ctx, "Indicator table too short, skipping currency", map[string]interface{}{
			"op": op, "currency": tc.Currency, "rows": len(table),
		})
		return nil
	}
	prev, last := table[len(table)-2], table[len(table)-1]

	params, err := e.paramRepo.FindByCurrency(ctx, tc.Currency)
	if err != nil {
		return fmt.Errorf("%s: loading parametrization for %s: %w", op, tc.Currency, err)
	}

	eval := e.evaluator.Evaluate(ctx, tc.Currency, e.cfg.Timeframe, prev, last, params, time.Now().UTC())
	e.metrics.evaluations.Inc()
	if !eval.HasSignal() {
		return nil
	}

	// Entry rows need the sizing snapshot; exits do not.
	var hints *domain.TradeHints
	if eval.LongEntry || eval.ShortEntry {
		hints, err = e.trader.ComputeTradeHints(ctx, tc.Currency, e.cfg.Timeframe)
		if err != nil {
			return fmt.Errorf("%s: computing trade hints for %s: %w", op, tc.Currency, err)
		}
	}

	recorded, err := e.ledger.Record(ctx, eval, hints)
	if err != nil {
		return fmt.Errorf("%s: recording signals for %s: %w", op, tc.Currency, err)
	}

	for _, sig := range recorded {
		e.metrics.signals.WithLabelValues(string(sig.Type)).Inc()
		if notifyErr := e.notifier.NotifySignal(ctx, sig); notifyErr != nil {
			e.logger.Warn(ctx, "Failed to notify signal", map[string]interface{}{
				"op": op, "currency": tc.Currency, "type": string(sig.Type), "error": notifyErr.Error(),
			})
		}
	}

	if !tc.AutoTradeEnabled {
		return nil
	}
	for _, sig := range recorded {
		if !sig.Type.IsEntry() {
			continue
		}
		result, err := e.trader.OpenPosition(ctx, tc.Currency, e.cfg.Timeframe, sig.Side())
		if err != nil {
			return fmt.Errorf("%s: opening %s position for %s: %w", op, sig.Side(), tc.Currency, err)
		}
		e.metrics.openResults.WithLabelValues(string(result.Type)).Inc()
		if notifyErr := e.notifier.NotifyTrade(ctx, formatTradeResult(tc.Currency, sig.Side(), result)); notifyErr != nil {
			e.logger.Warn(ctx, "Failed to notify trade", map[string]interface{}{
				"op": op, "currency": tc.Currency, "error": notifyErr.Error(),
			})
		}
	}
	return nil
}

// serveMetrics starts the Prometheus listener and returns a function that
// shuts it down.
func (e *Engine) serveMetrics(ctx context.Context) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: e.cfg.MetricsAddr, Handler: mux}

	go func() {
		e.logger.Info(ctx, "Metrics endpoint listening", map[string]interface{}{"addr": e.cfg.MetricsAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error(ctx, err, "Metrics server failed", map[string]interface{}{"addr": e.cfg.MetricsAddr})
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Warn(context.Background(), "Metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func formatTradeResult(currency string, side domain.PositionSide, result *trade.OpenPositionResult) string {
	switch result.Type {
	case domain.OpenResultSuccess:
		pos := result.Position
		notional := 0.0
		if result.Metrics != nil {
			notional = result.Metrics.Notional()
		}
		return fmt.Sprintf("OPENED %s %s\nEntry: %.8g\nLeverage: %dx\nNotional: %.2f\nLiquidation: %.8g",
			side, currency, pos.EntryPrice, pos.Leverage, notional, pos.LiquidationPrice)
	case domain.OpenResultAlreadyOpen:
		return fmt.Sprintf("SKIPPED %s %s: position already open", side, currency)
	case domain.OpenResultMaxConcurrentPositionsReached:
		return fmt.Sprintf("SKIPPED %s %s: concurrent position cap reached", side, currency)
	case domain.OpenResultNoFunds:
		return fmt.Sprintf("SKIPPED %s %s: no margin available", side, currency)
	default:
		return fmt.Sprintf("%s %s: %s", side, currency, result.Type)
	}
}
