package binancefutures

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.FuturesGateway interface using the go-binance
// USDT-margined futures API.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	quoteCurrency string
	takerFee      float64

	retryMinDelay time.Duration
	retryMaxDelay time.Duration
	maxAttempts   int

	mu            sync.Mutex
	marketConfigs map[string]*domain.SymbolMarketConfig
}

// Config holds configuration specific to the Binance futures adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger

	// QuoteCurrency is the settlement asset, e.g. "USDT".
	QuoteCurrency string
	// TakerFee overrides the default taker fee rate when non-zero.
	TakerFee float64

	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration
	MaxAttempts   int
}

// New creates a new Binance futures gateway.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance futures client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance futures client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance futures client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	quote := cfg.QuoteCurrency
	if quote == "" {
		quote = "USDT"
	}
	takerFee := cfg.TakerFee
	if takerFee <= 0 {
		takerFee = domain.DefaultTakerFeeRate
	}
	retryMin := cfg.RetryMinDelay
	if retryMin <= 0 {
		retryMin = 500 * time.Millisecond
	}
	retryMax := cfg.RetryMaxDelay
	if retryMax <= 0 {
		retryMax = 30 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		quoteCurrency: quote,
		takerFee:      takerFee,
		retryMinDelay: retryMin,
		retryMaxDelay: retryMax,
		maxAttempts:   maxAttempts,
		marketConfigs: make(map[string]*domain.SymbolMarketConfig),
	}, nil
}

// toExchangeSymbol converts "BTC/USDT" to the exchange form "BTCUSDT".
func toExchangeSymbol(currency string) string {
	return strings.ReplaceAll(currency, "/", "")
}

// fromExchangeSymbol converts "BTCUSDT" back to "BTC/USDT" given the quote
// currency. Symbols with an unexpected quote are returned unchanged.
func (c *Client) fromExchangeSymbol(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, c.quoteCurrency); ok && base != "" {
		return base + "/" + c.quoteCurrency
	}
	return symbol
}

// withRetry runs fn, retrying transient failures with exponential backoff and
// jitter. Authentication and malformed-request errors fail immediately.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    c.retryMinDelay,
		Max:    c.retryMaxDelay,
		Factor: 2,
		Jitter: true,
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !ports.IsRetryable(err) || attempt >= c.maxAttempts {
			return err
		}
		delay := b.Duration()
		c.logger.Warn(ctx, "Transient exchange error, retrying", map[string]interface{}{
			"operation": op, "attempt": attempt, "delay": delay.String(), "error": err.Error(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ports.ErrContextCanceled)
		case <-time.After(delay):
		}
	}
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Invalid signature
			mappedErr = ports.ErrAuthenticationFailed
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // Bad API key or permissions
			mappedErr = ports.ErrInvalidAPIKeys
		case -2019, -3005, -3041: // Insufficient margin or balance
			mappedErr = ports.ErrInsufficientFunds
		case -4003, -4014, -4015: // Qty, price or leverage out of range
			mappedErr = ports.ErrInvalidRequest
		case -4044: // Position not found
			mappedErr = ports.ErrPositionNotFound
		case -4047: // Exceeded maximum position at current leverage
			mappedErr = ports.ErrInsufficientFunds
		default:
			if apiErr.Code >= 500 && apiErr.Code < 600 {
				mappedErr = ports.ErrExchangeUnavailable
			} else {
				mappedErr = ports.ErrUnknown
			}
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetAccountInfo returns the settlement currency of the account.
func (c *Client) GetAccountInfo(ctx context.Context) (*ports.AccountInfo, error) {
	return &ports.AccountInfo{CurrencyCode: c.quoteCurrency}, nil
}

// GetPortfolioBalance returns the account balance split. The engine settles
// everything in the futures wallet, so the spot share is always zero.
func (c *Client) GetPortfolioBalance(ctx context.Context) (*ports.PortfolioBalance, error) {
	op := "GetPortfolioBalance"
	var account *futures.Account
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		account, innerErr = c.futuresClient.NewGetAccountService().Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	walletBalance, err := strconv.ParseFloat(account.TotalWalletBalance, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse wallet balance '%s': %w", account.TotalWalletBalance, err)
		return nil, c.handleError(ctx, parseErr, op)
	}
	return &ports.PortfolioBalance{
		SpotBalance:    0,
		FuturesBalance: walletBalance,
		CurrencyCode:   c.quoteCurrency,
	}, nil
}

// GetFuturesWallet returns the detailed futures wallet state.
func (c *Client) GetFuturesWallet(ctx context.Context) (*ports.FuturesWallet, error) {
	op := "GetFuturesWallet"
	var account *futures.Account
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		account, innerErr = c.futuresClient.NewGetAccountService().Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	equity, _ := strconv.ParseFloat(account.TotalMarginBalance, 64)
	positionMargin, _ := strconv.ParseFloat(account.TotalPositionInitialMargin, 64)
	available, _ := strconv.ParseFloat(account.AvailableBalance, 64)
	cash, _ := strconv.ParseFloat(account.TotalWalletBalance, 64)
	unrealized, _ := strconv.ParseFloat(account.TotalUnrealizedProfit, 64)

	return &ports.FuturesWallet{
		Equity:           equity,
		PositionMargin:   positionMargin,
		AvailableBalance: available,
		CashBalance:      cash,
		UnrealizedPnL:    unrealized,
	}, nil
}

// GetSymbolTicker returns the current quote for a symbol: last traded price
// plus best bid and ask.
func (c *Client) GetSymbolTicker(ctx context.Context, symbol string) (*domain.SymbolTicker, error) {
	op := "GetSymbolTicker"
	exchangeSymbol := toExchangeSymbol(symbol)

	var stats []*futures.PriceChangeStats
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		stats, innerErr = c.futuresClient.NewListPriceChangeStatsService().Symbol(exchangeSymbol).Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s", symbol), op)
	}

	var books []*futures.BookTicker
	err = c.withRetry(ctx, op, func() error {
		var innerErr error
		books, innerErr = c.futuresClient.NewListBookTickersService().Symbol(exchangeSymbol).Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	lastPrice, err := strconv.ParseFloat(stats[0].LastPrice, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse last price '%s': %w", stats[0].LastPrice, err)
		return nil, c.handleError(ctx, parseErr, op)
	}

	ticker := &domain.SymbolTicker{
		Symbol:    symbol,
		Timestamp: stats[0].CloseTime,
		Close:     lastPrice,
	}
	if len(books) > 0 {
		ticker.Ask, _ = strconv.ParseFloat(books[0].AskPrice, 64)
		ticker.Bid, _ = strconv.ParseFloat(books[0].BidPrice, 64)
	}
	return ticker, nil
}

// GetSymbolTickers returns quotes for the given symbols, or all symbols when
// the slice is empty. Only last prices are populated on bulk reads.
func (c *Client) GetSymbolTickers(ctx context.Context, symbols []string) ([]*domain.SymbolTicker, error) {
	op := "GetSymbolTickers"

	var stats []*futures.PriceChangeStats
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		stats, innerErr = c.futuresClient.NewListPriceChangeStatsService().Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[toExchangeSymbol(s)] = true
	}

	tickers := make([]*domain.SymbolTicker, 0, len(stats))
	for _, st := range stats {
		if len(wanted) > 0 && !wanted[st.Symbol] {
			continue
		}
		lastPrice, parseErr := strconv.ParseFloat(st.LastPrice, 64)
		if parseErr != nil {
			continue
		}
		tickers = append(tickers, &domain.SymbolTicker{
			Symbol:    c.fromExchangeSymbol(st.Symbol),
			Timestamp: st.CloseTime,
			Close:     lastPrice,
		})
	}
	return tickers, nil
}

// FetchOHLCV retrieves up to limit historical klines for the symbol.
func (c *Client) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Kline, error) {
	op := "FetchOHLCV"
	exchangeSymbol := toExchangeSymbol(symbol)

	var binanceKlines []*futures.Kline
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		binanceKlines, innerErr = c.futuresClient.NewKlinesService().
			Symbol(exchangeSymbol).
			Interval(timeframe).
			Limit(limit).
			Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateKline(bk, symbol, timeframe)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}
	return domainKlines, nil
}

// GetSymbolMarketConfig returns the market metadata for a currency. Results
// are cached for the lifetime of the client; precision does not change
// mid-session.
func (c *Client) GetSymbolMarketConfig(ctx context.Context, currency string) (*domain.SymbolMarketConfig, error) {
	op := "GetSymbolMarketConfig"

	c.mu.Lock()
	if mc, ok := c.marketConfigs[currency]; ok {
		c.mu.Unlock()
		return mc, nil
	}
	c.mu.Unlock()

	exchangeSymbol := toExchangeSymbol(currency)
	var info *futures.ExchangeInfo
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		info, innerErr = c.futuresClient.NewExchangeInfoService().Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	for _, s := range info.Symbols {
		if s.Symbol != exchangeSymbol {
			continue
		}
		mc := &domain.SymbolMarketConfig{
			Symbol:          currency,
			PricePrecision:  s.PricePrecision,
			AmountPrecision: s.QuantityPrecision,
			ContractSize:    1, // USDT-margined linear contracts
		}
		c.mu.Lock()
		c.marketConfigs[currency] = mc
		c.mu.Unlock()
		return mc, nil
	}
	return nil, fmt.Errorf("%s: symbol %s not listed on exchange: %w", op, currency, ports.ErrMarketConfigMissing)
}

// GetOpenPositions lists all currently open positions.
func (c *Client) GetOpenPositions(ctx context.Context) ([]*domain.Position, error) {
	op := "GetOpenPositions"

	var risks []*futures.PositionRisk
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		risks, innerErr = c.futuresClient.NewGetPositionRiskService().Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	positions := make([]*domain.Position, 0)
	for _, pr := range risks {
		posAmt, _ := strconv.ParseFloat(pr.PositionAmt, 64)
		if posAmt == 0 {
			continue
		}
		positions = append(positions, translatePosition(pr, posAmt, c.fromExchangeSymbol(pr.Symbol)))
	}
	return positions, nil
}

// CreateMarketPositionOrder opens a position: isolated margin mode and
// leverage are set first, then the market entry is placed, then the
// protective stop-loss and take-profit close orders.
func (c *Client) CreateMarketPositionOrder(ctx context.Context, order *ports.CreateMarketPositionOrder) (*ports.OrderResponse, error) {
	op := "CreateMarketPositionOrder"
	exchangeSymbol := toExchangeSymbol(order.Symbol)

	if order.Isolated {
		if err := c.ensureIsolatedMargin(ctx, exchangeSymbol); err != nil {
			return nil, err
		}
	}
	if err := c.setLeverage(ctx, exchangeSymbol, order.Leverage); err != nil {
		return nil, err
	}

	mc, err := c.GetSymbolMarketConfig(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}
	ticker, err := c.GetSymbolTicker(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}

	entrySide := domain.EntryOrderSide(order.Side)
	refPrice := ticker.AskOrClose()
	if order.Side == domain.Short {
		refPrice = ticker.BidOrClose()
	}
	if refPrice <= 0 {
		return nil, fmt.Errorf("%s: no reference price for %s: %w", op, order.Symbol, ports.ErrInvalidRequest)
	}

	quantity := formatQuantity(order.Margin*float64(order.Leverage)/refPrice, mc.AmountPrecision)

	var created *futures.CreateOrderResponse
	err = c.withRetry(ctx, op, func() error {
		var innerErr error
		created, innerErr = c.futuresClient.NewCreateOrderService().
			Symbol(exchangeSymbol).
			Side(futures.SideType(entrySide)).
			Type(futures.OrderTypeMarket).
			Quantity(quantity).
			Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info(ctx, "Market entry order placed", map[string]interface{}{
		"symbol": order.Symbol, "side": string(order.Side), "quantity": quantity, "orderID": created.OrderID,
	})

	closeSide := futures.SideType(domain.EntryOrderSide(order.Side.Opposite()))
	if order.StopLossPrice > 0 {
		if err := c.placeProtectiveOrder(ctx, exchangeSymbol, closeSide, futures.OrderTypeStopMarket,
			formatPrice(order.StopLossPrice, mc.PricePrecision)); err != nil {
			return nil, err
		}
	}
	if order.TakeProfitPrice > 0 {
		if err := c.placeProtectiveOrder(ctx, exchangeSymbol, closeSide, futures.OrderTypeTakeProfitMarket,
			formatPrice(order.TakeProfitPrice, mc.PricePrecision)); err != nil {
			return nil, err
		}
	}

	return translateOrderResponse(created), nil
}

// GetOrder returns the current state of an order.
func (c *Client) GetOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	op := "GetOrder"

	var order *futures.Order
	err := c.withRetry(ctx, op, func() error {
		var innerErr error
		order, innerErr = c.futuresClient.NewGetOrderService().
			Symbol(toExchangeSymbol(symbol)).
			OrderID(orderID).
			Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return nil, err
	}

	price, _ := strconv.ParseFloat(order.Price, 64)
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	origQty, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	return &ports.OrderResponse{
		OrderID:     order.OrderID,
		Symbol:      symbol,
		Side:        domain.OrderSide(order.Side),
		Price:       price,
		AvgPrice:    avgPrice,
		OrigQty:     origQty,
		ExecutedQty: execQty,
		Status:      ports.OrderStatus(order.Status),
		Timestamp:   time.UnixMilli(order.UpdateTime),
	}, nil
}

// GetTakerFee returns the taker fee rate charged on market orders.
func (c *Client) GetTakerFee() float64 {
	return c.takerFee
}

// ensureIsolatedMargin switches the symbol to isolated margin mode. The
// exchange rejects a no-op switch with code -4046, which is not an error.
func (c *Client) ensureIsolatedMargin(ctx context.Context, exchangeSymbol string) error {
	op := "ChangeMarginType"
	err := c.futuresClient.NewChangeMarginTypeService().
		Symbol(exchangeSymbol).
		MarginType(futures.MarginTypeIsolated).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == -4046 { // No need to change margin type
			return nil
		}
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, "Margin type set to isolated", map[string]interface{}{"symbol": exchangeSymbol})
	return nil
}

func (c *Client) setLeverage(ctx context.Context, exchangeSymbol string, leverage int) error {
	op := "SetLeverage"
	_, err := c.futuresClient.NewChangeLeverageService().
		Symbol(exchangeSymbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, "Leverage set", map[string]interface{}{"symbol": exchangeSymbol, "leverage": leverage})
	return nil
}

// placeProtectiveOrder attaches a close-position stop to the open position.
func (c *Client) placeProtectiveOrder(ctx context.Context, exchangeSymbol string, side futures.SideType, orderType futures.OrderType, stopPrice string) error {
	op := "PlaceProtectiveOrder"
	err := c.withRetry(ctx, op, func() error {
		_, innerErr := c.futuresClient.NewCreateOrderService().
			Symbol(exchangeSymbol).
			Side(side).
			Type(orderType).
			StopPrice(stopPrice).
			ClosePosition(true).
			Do(ctx)
		return c.handleError(ctx, innerErr, op)
	})
	if err != nil {
		return err
	}
	c.logger.Info(ctx, "Protective order placed", map[string]interface{}{
		"symbol": exchangeSymbol, "type": string(orderType), "stopPrice": stopPrice,
	})
	return nil
}

// --- Translation Helpers ---

func formatQuantity(quantity float64, precision int) string {
	factor := math.Pow(10, float64(precision))
	return strconv.FormatFloat(math.Floor(quantity*factor)/factor, 'f', precision, 64)
}

func formatPrice(price float64, precision int) string {
	return strconv.FormatFloat(price, 'f', precision, 64)
}

func translateOrderResponse(order *futures.CreateOrderResponse) *ports.OrderResponse {
	if order == nil {
		return nil
	}
	price, _ := strconv.ParseFloat(order.Price, 64)
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	origQty, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	return &ports.OrderResponse{
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        domain.OrderSide(order.Side),
		Price:       price,
		AvgPrice:    avgPrice,
		OrigQty:     origQty,
		ExecutedQty: execQty,
		Status:      ports.OrderStatus(order.Status),
		Timestamp:   time.UnixMilli(order.UpdateTime),
	}
}

func translatePosition(pr *futures.PositionRisk, posAmt float64, symbol string) *domain.Position {
	entryPrice, _ := strconv.ParseFloat(pr.EntryPrice, 64)
	liqPrice, _ := strconv.ParseFloat(pr.LiquidationPrice, 64)
	leverage, _ := strconv.Atoi(pr.Leverage)
	isolatedMargin, _ := strconv.ParseFloat(pr.IsolatedMargin, 64)

	side := domain.Long
	if posAmt < 0 {
		side = domain.Short
	}
	return &domain.Position{
		ID:               pr.Symbol,
		Symbol:           symbol,
		Side:             side,
		Leverage:         leverage,
		EntryPrice:       entryPrice,
		Contracts:        math.Abs(posAmt),
		ContractSize:     1,
		InitialMargin:    isolatedMargin,
		LiquidationPrice: liqPrice,
		Isolated:         strings.EqualFold(pr.MarginType, "isolated"),
	}
}

func translateKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   true, // Historical klines are always final
	}, nil
}
