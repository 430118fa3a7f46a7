package domain

// Defaults applied when no persisted row exists for a currency or setting.
const (
	DefaultLongEntryOversoldThreshold    = 0.25
	DefaultShortEntryOverboughtThreshold = 0.75
	DefaultATRStopLossMult               = 2.8
	DefaultATRTakeProfitMult             = 3.5

	DefaultRiskPercentValue          = 1.0
	DefaultTakerFeeRate              = 0.0004
	DefaultNumberOfConcurrentTrades  = 3
	DefaultMarketSignalRetentionDays = 5
	DefaultMaintenanceMarginRate     = 0.01
	DefaultTimeframe                 = "15m"
)

// SignalParametrization holds the per-currency tunables for signal evaluation
// and stop/target sizing.
type SignalParametrization struct {
	Currency string

	LongEntryOversoldThreshold    float64
	ShortEntryOverboughtThreshold float64
	ATRStopLossMult               float64
	ATRTakeProfitMult             float64

	// DoubleConfirmTrend requires the trend filter to hold on the previous
	// candle as well as the last one before an entry fires.
	DoubleConfirmTrend bool
}

// DefaultSignalParametrization returns the parametrization used when no row
// is persisted for the currency.
func DefaultSignalParametrization(currency string) *SignalParametrization {
	return &SignalParametrization{
		Currency:                      currency,
		LongEntryOversoldThreshold:    DefaultLongEntryOversoldThreshold,
		ShortEntryOverboughtThreshold: DefaultShortEntryOverboughtThreshold,
		ATRStopLossMult:               DefaultATRStopLossMult,
		ATRTakeProfitMult:             DefaultATRTakeProfitMult,
		DoubleConfirmTrend:            true,
	}
}

// RiskManagementSetting is the global equity-risk budget. A single row is
// persisted; defaults apply until one is written.
type RiskManagementSetting struct {
	// PercentValue is the share of total equity risked per trade, in percent.
	PercentValue float64
	// NumberOfConcurrentTrades caps how many positions may be open at once.
	NumberOfConcurrentTrades int
}

// DefaultRiskManagementSetting returns the lazily-created default setting.
func DefaultRiskManagementSetting() *RiskManagementSetting {
	return &RiskManagementSetting{
		PercentValue:             DefaultRiskPercentValue,
		NumberOfConcurrentTrades: DefaultNumberOfConcurrentTrades,
	}
}

// TrackedCurrency is a currency the scheduler evaluates on every tick.
// AutoTradeEnabled controls whether entry signals are acted upon
// automatically in addition to being notified.
type TrackedCurrency struct {
	Currency         string
	AutoTradeEnabled bool
}
