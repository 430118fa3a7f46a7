package ports

import (
	"context"
	"time"

	"futuresbot/internal/domain"
)

// AccountInfo identifies the quote currency the account settles in.
type AccountInfo struct {
	CurrencyCode string // e.g. "USDT"
}

// PortfolioBalance is the account-wide balance split between spot and futures.
type PortfolioBalance struct {
	SpotBalance    float64
	FuturesBalance float64
	CurrencyCode   string
}

// Total returns the combined spot and futures balance.
func (b *PortfolioBalance) Total() float64 {
	return b.SpotBalance + b.FuturesBalance
}

// FuturesWallet is the detailed state of the futures wallet in the quote
// currency.
type FuturesWallet struct {
	Equity           float64
	PositionMargin   float64
	AvailableBalance float64
	CashBalance      float64
	UnrealizedPnL    float64
}

// OrderStatus is the exchange-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// IsTerminal reports whether the order can no longer change state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// CreateMarketPositionOrder describes a market entry with protective levels,
// sized by margin and leverage in isolated mode.
type CreateMarketPositionOrder struct {
	Symbol          string
	Side            domain.PositionSide
	Margin          float64
	Leverage        int
	Isolated        bool
	StopLossPrice   float64
	TakeProfitPrice float64
}

// OrderResponse represents the essential details returned after placing or
// querying an order.
type OrderResponse struct {
	OrderID     int64
	Symbol      string
	Side        domain.OrderSide
	Price       float64
	AvgPrice    float64
	OrigQty     float64
	ExecutedQty float64
	Status      OrderStatus
	Timestamp   time.Time
}

// FuturesGateway defines the interface for market data and order execution on
// a futures exchange. This abstraction decouples the engine from the concrete
// exchange binding; one implementation exists today.
type FuturesGateway interface {
	// GetAccountInfo returns the settlement currency of the account.
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)

	// GetPortfolioBalance returns the spot+futures balance split.
	GetPortfolioBalance(ctx context.Context) (*PortfolioBalance, error)

	// GetFuturesWallet returns the futures wallet detail.
	GetFuturesWallet(ctx context.Context) (*FuturesWallet, error)

	// GetSymbolTicker returns the current quote for a symbol.
	GetSymbolTicker(ctx context.Context, symbol string) (*domain.SymbolTicker, error)

	// GetSymbolTickers returns quotes for the given symbols, or all symbols
	// when the slice is empty.
	GetSymbolTickers(ctx context.Context, symbols []string) ([]*domain.SymbolTicker, error)

	// FetchOHLCV retrieves up to limit historical klines for the symbol.
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Kline, error)

	// GetSymbolMarketConfig returns the market metadata (precision, contract
	// size) for a currency against the account's quote currency.
	GetSymbolMarketConfig(ctx context.Context, currency string) (*domain.SymbolMarketConfig, error)

	// GetOpenPositions lists all currently open positions.
	GetOpenPositions(ctx context.Context) ([]*domain.Position, error)

	// CreateMarketPositionOrder submits a market entry order with the given
	// margin, leverage and protective levels. The returned response may not
	// be terminal yet; poll with GetOrder.
	CreateMarketPositionOrder(ctx context.Context, order *CreateMarketPositionOrder) (*OrderResponse, error)

	// GetOrder returns the current state of an order.
	GetOrder(ctx context.Context, symbol string, orderID int64) (*OrderResponse, error)

	// GetTakerFee returns the taker fee rate charged on market orders.
	GetTakerFee() float64
}
