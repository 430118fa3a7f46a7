package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
	"futuresbot/internal/risk"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockProvider struct {
	last *domain.CandleIndicators
	err  error
}

func (m *mockProvider) GetTechnicalAnalysis(ctx context.Context, symbol, timeframe string) ([]*domain.CandleIndicators, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*domain.CandleIndicators{m.last}, nil
}

func (m *mockProvider) GetCandlestickIndicators(ctx context.Context, symbol, timeframe string, index domain.CandleIndex) (*domain.CandleIndicators, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.last, nil
}

type mockGateway struct {
	ticker       *domain.SymbolTicker
	marketConfig *domain.SymbolMarketConfig
	balance      *ports.PortfolioBalance
	wallet       *ports.FuturesWallet

	// positionBatches is consumed one slice per GetOpenPositions call; the
	// last batch repeats once exhausted.
	positionBatches [][]*domain.Position
	positionCalls   int

	createResp  *ports.OrderResponse
	createErr   error
	createdWith *ports.CreateMarketPositionOrder

	// orderStates is consumed one response per GetOrder call.
	orderStates []*ports.OrderResponse
	orderCalls  int
}

func (m *mockGateway) GetAccountInfo(ctx context.Context) (*ports.AccountInfo, error) {
	return &ports.AccountInfo{CurrencyCode: "USDT"}, nil
}

func (m *mockGateway) GetPortfolioBalance(ctx context.Context) (*ports.PortfolioBalance, error) {
	return m.balance, nil
}

func (m *mockGateway) GetFuturesWallet(ctx context.Context) (*ports.FuturesWallet, error) {
	return m.wallet, nil
}

func (m *mockGateway) GetSymbolTicker(ctx context.Context, symbol string) (*domain.SymbolTicker, error) {
	return m.ticker, nil
}

func (m *mockGateway) GetSymbolTickers(ctx context.Context, symbols []string) ([]*domain.SymbolTicker, error) {
	return []*domain.SymbolTicker{m.ticker}, nil
}

func (m *mockGateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Kline, error) {
	return nil, nil
}

func (m *mockGateway) GetSymbolMarketConfig(ctx context.Context, currency string) (*domain.SymbolMarketConfig, error) {
	return m.marketConfig, nil
}

func (m *mockGateway) GetOpenPositions(ctx context.Context) ([]*domain.Position, error) {
	if len(m.positionBatches) == 0 {
		return nil, nil
	}
	idx := m.positionCalls
	if idx >= len(m.positionBatches) {
		idx = len(m.positionBatches) - 1
	}
	m.positionCalls++
	return m.positionBatches[idx], nil
}

func (m *mockGateway) CreateMarketPositionOrder(ctx context.Context, order *ports.CreateMarketPositionOrder) (*ports.OrderResponse, error) {
	m.createdWith = order
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *mockGateway) GetOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	if m.orderCalls >= len(m.orderStates) {
		return m.orderStates[len(m.orderStates)-1], nil
	}
	resp := m.orderStates[m.orderCalls]
	m.orderCalls++
	return resp, nil
}

func (m *mockGateway) GetTakerFee() float64 { return 0.0004 }

type mockRiskRepo struct{ setting *domain.RiskManagementSetting }

func (m *mockRiskRepo) Get(ctx context.Context) (*domain.RiskManagementSetting, error) {
	return m.setting, nil
}

func (m *mockRiskRepo) Update(ctx context.Context, setting *domain.RiskManagementSetting) error {
	m.setting = setting
	return nil
}

type mockParamRepo struct{}

func (m *mockParamRepo) FindByCurrency(ctx context.Context, currency string) (*domain.SignalParametrization, error) {
	p := domain.DefaultSignalParametrization(currency)
	p.ATRStopLossMult = 1.5
	p.ATRTakeProfitMult = 3.0
	return p, nil
}

func (m *mockParamRepo) SaveOrUpdate(ctx context.Context, params *domain.SignalParametrization) error {
	return nil
}

type mockTrackedRepo struct{ tracked []*domain.TrackedCurrency }

func (m *mockTrackedRepo) FindAll(ctx context.Context) ([]*domain.TrackedCurrency, error) {
	return m.tracked, nil
}

func (m *mockTrackedRepo) IsAutoTradeEnabled(ctx context.Context, currency string) (bool, error) {
	for _, tc := range m.tracked {
		if tc.Currency == currency {
			return tc.AutoTradeEnabled, nil
		}
	}
	return false, nil
}

func (m *mockTrackedRepo) Upsert(ctx context.Context, tracked *domain.TrackedCurrency) error { return nil }
func (m *mockTrackedRepo) Remove(ctx context.Context, currency string) error                 { return nil }

func defaultMockGateway() *mockGateway {
	return &mockGateway{
		ticker: &domain.SymbolTicker{
			Symbol: "BTC/USDT",
			Close:  100.0,
			Ask:    100.0,
			Bid:    100.0,
		},
		marketConfig: &domain.SymbolMarketConfig{
			Symbol:         "BTC/USDT",
			PricePrecision: 2,
			ContractSize:   1,
		},
		balance: &ports.PortfolioBalance{SpotBalance: 5000, FuturesBalance: 5000, CurrencyCode: "USDT"},
		wallet:  &ports.FuturesWallet{Equity: 5000, AvailableBalance: 4000},
	}
}

func defaultIndicators() *domain.CandleIndicators {
	return &domain.CandleIndicators{
		Symbol:    "BTC/USDT",
		Timestamp: time.Now().UTC(),
		Close:     100.0,
		ATR:       2.0,
	}
}

func newTestManager(t *testing.T, gw *mockGateway) *Manager {
	t.Helper()
	sizer, err := risk.NewSizer(risk.SizerConfig{MaintenanceMarginRate: 0.01})
	require.NoError(t, err)

	mgr, err := NewManager(
		gw,
		&mockProvider{last: defaultIndicators()},
		sizer,
		&mockRiskRepo{setting: domain.DefaultRiskManagementSetting()},
		&mockParamRepo{},
		&mockTrackedRepo{tracked: []*domain.TrackedCurrency{
			{Currency: "BTC/USDT", AutoTradeEnabled: true},
			{Currency: "ETH/USDT", AutoTradeEnabled: true},
		}},
		&mockLogger{},
		Config{OrderPollInterval: time.Millisecond, OrderPollMaxAttempts: 5},
	)
	require.NoError(t, err)
	return mgr
}

func TestComputeTradeHints(t *testing.T) {
	gw := defaultMockGateway()
	gw.ticker.Ask = 100.5
	gw.ticker.Bid = 99.5
	mgr := newTestManager(t, gw)

	hints, err := mgr.ComputeTradeHints(context.Background(), "BTC/USDT", "15m")
	require.NoError(t, err)

	// Long priced at the ask, short at the bid.
	assert.Equal(t, 100.5, hints.Long.EntryPrice)
	assert.Equal(t, 99.5, hints.Short.EntryPrice)
	assert.True(t, hints.Long.IsLong)
	assert.False(t, hints.Short.IsLong)

	// Futures balance split across the two tracked currencies, capped by the
	// available wallet balance.
	assert.InDelta(t, 2500.0, hints.Long.Margin, 1e-9)

	assert.GreaterOrEqual(t, hints.Long.Leverage, 1)
	assert.Positive(t, hints.StopLossPercent)
	assert.Positive(t, hints.TakeProfitPercent)
	assert.NotNil(t, hints.Ticker)
	assert.NotNil(t, hints.Indicators)
}

func TestOpenPositionAlreadyOpen(t *testing.T) {
	gw := defaultMockGateway()
	gw.positionBatches = [][]*domain.Position{{
		{ID: "1", Symbol: "BTC/USDT", Side: domain.Long},
	}}
	mgr := newTestManager(t, gw)

	// The block applies regardless of which side is requested.
	for _, side := range []domain.PositionSide{domain.Long, domain.Short} {
		result, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", side)
		require.NoError(t, err)
		assert.Equal(t, domain.OpenResultAlreadyOpen, result.Type)
		require.NotNil(t, result.Position)
		assert.Equal(t, "BTC/USDT", result.Position.Symbol)
	}
	assert.Nil(t, gw.createdWith)
}

func TestOpenPositionConcurrencyCap(t *testing.T) {
	gw := defaultMockGateway()
	gw.positionBatches = [][]*domain.Position{{
		{ID: "1", Symbol: "ETH/USDT", Side: domain.Long},
		{ID: "2", Symbol: "SOL/USDT", Side: domain.Short},
		{ID: "3", Symbol: "XRP/USDT", Side: domain.Long},
	}}
	mgr := newTestManager(t, gw)

	result, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	require.NoError(t, err)
	assert.Equal(t, domain.OpenResultMaxConcurrentPositionsReached, result.Type)
	assert.Nil(t, gw.createdWith)
}

func TestOpenPositionNoFunds(t *testing.T) {
	gw := defaultMockGateway()
	gw.balance = &ports.PortfolioBalance{}
	gw.wallet = &ports.FuturesWallet{}
	mgr := newTestManager(t, gw)

	result, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	require.NoError(t, err)
	assert.Equal(t, domain.OpenResultNoFunds, result.Type)
	assert.Nil(t, gw.createdWith)
}

func TestOpenPositionSuccess(t *testing.T) {
	gw := defaultMockGateway()
	opened := &domain.Position{
		ID:            "42",
		Symbol:        "BTC/USDT",
		Side:          domain.Long,
		Leverage:      2,
		EntryPrice:    100.0,
		Contracts:     50,
		ContractSize:  1,
		InitialMargin: 2500,
		Isolated:      true,
	}
	gw.positionBatches = [][]*domain.Position{
		{}, // pre-trade check: nothing open
		{opened},
	}
	gw.createResp = &ports.OrderResponse{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusNew}
	gw.orderStates = []*ports.OrderResponse{
		{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusPartiallyFilled},
		{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusFilled, AvgPrice: 100.0},
	}
	mgr := newTestManager(t, gw)

	result, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	require.NoError(t, err)
	assert.Equal(t, domain.OpenResultSuccess, result.Type)
	require.NotNil(t, result.Position)
	assert.Equal(t, "42", result.Position.ID)
	require.NotNil(t, result.Metrics)
	assert.InDelta(t, 5000.0, result.Metrics.Notional(), 1e-9)

	require.NotNil(t, gw.createdWith)
	assert.True(t, gw.createdWith.Isolated)
	assert.Equal(t, domain.Long, gw.createdWith.Side)
	assert.InDelta(t, 2500.0, gw.createdWith.Margin, 1e-9)
	assert.Positive(t, gw.createdWith.StopLossPrice)
	assert.Positive(t, gw.createdWith.TakeProfitPrice)
	assert.Less(t, gw.createdWith.StopLossPrice, 100.0)
	assert.Greater(t, gw.createdWith.TakeProfitPrice, 100.0)
}

func TestOpenPositionOrderNotFilled(t *testing.T) {
	gw := defaultMockGateway()
	gw.positionBatches = [][]*domain.Position{{}}
	gw.createResp = &ports.OrderResponse{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusNew}
	gw.orderStates = []*ports.OrderResponse{
		{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusRejected},
	}
	mgr := newTestManager(t, gw)

	_, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrOrderNotFilled)
	assert.ErrorContains(t, err, "BTC/USDT")
	assert.ErrorContains(t, err, string(ports.OrderStatusRejected))
}

func TestOpenPositionPollTimeout(t *testing.T) {
	gw := defaultMockGateway()
	gw.positionBatches = [][]*domain.Position{{}}
	gw.createResp = &ports.OrderResponse{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusNew}
	gw.orderStates = []*ports.OrderResponse{
		{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusNew},
	}
	mgr := newTestManager(t, gw)

	_, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	assert.ErrorIs(t, err, ports.ErrTimeout)
}

func TestOpenPositionFilledWithoutPosition(t *testing.T) {
	gw := defaultMockGateway()
	gw.positionBatches = [][]*domain.Position{{}}
	gw.createResp = &ports.OrderResponse{OrderID: 7, Symbol: "BTC/USDT", Status: ports.OrderStatusFilled}
	mgr := newTestManager(t, gw)

	_, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	assert.ErrorIs(t, err, ports.ErrPositionNotFound)
}

func TestOpenPositionCreateFails(t *testing.T) {
	gw := defaultMockGateway()
	gw.positionBatches = [][]*domain.Position{{}}
	gw.createErr = errors.New("margin call rejected")
	mgr := newTestManager(t, gw)

	_, err := mgr.OpenPosition(context.Background(), "BTC/USDT", "15m", domain.Long)
	assert.ErrorContains(t, err, "margin call rejected")
}
