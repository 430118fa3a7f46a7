package risk

import (
	"fmt"
	"math"

	"futuresbot/internal/domain"
)

// SizerConfig holds configuration for the position sizer.
type SizerConfig struct {
	// MaintenanceMarginRate is the exchange's maintenance margin ratio used
	// in the liquidation-price approximation.
	MaintenanceMarginRate float64
}

// Sizer computes risk-bounded position sizing and protective price levels.
// It is deterministic and free of side effects: every call is a pure function
// of its inputs.
type Sizer struct {
	config SizerConfig
}

// SizingInput bundles everything the sizer needs for one computation.
type SizingInput struct {
	// EntryPrice is the ask for longs, the bid for shorts.
	EntryPrice float64
	// ATR of the last candle, in price units.
	ATR float64

	Params       *domain.SignalParametrization
	Risk         *domain.RiskManagementSetting
	MarketConfig *domain.SymbolMarketConfig

	// TotalBalance is the combined spot+futures equity in the quote currency.
	TotalBalance float64
	// FuturesBalance is the futures-wallet share of the equity.
	FuturesBalance float64
	// WalletAvailableBalance is the margin actually free to allocate.
	WalletAvailableBalance float64

	// TrackedCount and AutoTradeEnabledCount size the per-asset split of the
	// futures balance across simultaneously tradable currencies.
	TrackedCount          int
	AutoTradeEnabledCount int

	// TakerFee is the gateway's taker fee rate, used for the break-even price.
	TakerFee float64
}

// NewSizer creates a new position sizer.
func NewSizer(config SizerConfig) (*Sizer, error) {
	if config.MaintenanceMarginRate <= 0 {
		config.MaintenanceMarginRate = domain.DefaultMaintenanceMarginRate
	}
	if config.MaintenanceMarginRate >= 1 {
		return nil, fmt.Errorf("maintenance margin rate must be below 1, got %f", config.MaintenanceMarginRate)
	}
	return &Sizer{config: config}, nil
}

// CeilRound rounds a value up at the given number of decimal places.
func CeilRound(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Ceil(value*factor) / factor
}

// FloorRound rounds a value down at the given number of decimal places.
func FloorRound(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Floor(value*factor) / factor
}

// StopLossPercent returns the stop distance in percent, rounded up at 2
// decimals. Rounding up widens the assumed stop band, which is the
// conservative direction for sizing.
func (s *Sizer) StopLossPercent(entryPrice, atr float64, params *domain.SignalParametrization) float64 {
	if entryPrice <= 0 {
		return 0
	}
	stopPrice := entryPrice - atr*params.ATRStopLossMult
	return CeilRound(math.Abs(1-stopPrice/entryPrice)*100, 2)
}

// TakeProfitPercent returns the target distance in percent, rounded down at 2
// decimals. Rounding down assumes a nearer target, again the conservative
// direction.
func (s *Sizer) TakeProfitPercent(entryPrice, atr float64, params *domain.SignalParametrization) float64 {
	if entryPrice <= 0 {
		return 0
	}
	targetPrice := entryPrice + atr*params.ATRTakeProfitMult
	return FloorRound(math.Abs(1-targetPrice/entryPrice)*100, 2)
}

// StopLossPrice converts a stop distance in percent into a price level on the
// adverse side of the entry, rounded to the market's price precision.
func (s *Sizer) StopLossPrice(entryPrice, stopLossPercent float64, isLong bool, mc *domain.SymbolMarketConfig) float64 {
	if isLong {
		return mc.RoundPrice(entryPrice * (1 - stopLossPercent/100))
	}
	return mc.RoundPrice(entryPrice * (1 + stopLossPercent/100))
}

// TakeProfitPriceLevels returns the two ladder trigger levels and the final
// take-profit price. The triggers sit at one third and two thirds of the full
// ATR-multiple target distance, on the favourable side of the entry.
func (s *Sizer) TakeProfitPriceLevels(entryPrice, atr float64, isLong bool, params *domain.SignalParametrization, mc *domain.SymbolMarketConfig) (trigger1, trigger2, takeProfit float64) {
	distance := atr * params.ATRTakeProfitMult
	if !isLong {
		distance = -distance
	}
	trigger1 = mc.RoundPrice(entryPrice + distance/3)
	trigger2 = mc.RoundPrice(entryPrice + distance*2/3)
	takeProfit = mc.RoundPrice(entryPrice + distance)
	return trigger1, trigger2, takeProfit
}

// BreakEvenPrice returns the round-trip price at which entry and exit taker
// fees net to zero.
func (s *Sizer) BreakEvenPrice(entryPrice, takerFee float64, isLong bool, mc *domain.SymbolMarketConfig) float64 {
	if isLong {
		return mc.RoundPrice(entryPrice * (1 + takerFee) / (1 - takerFee))
	}
	return mc.RoundPrice(entryPrice * (1 - takerFee) / (1 + takerFee))
}

// ComputeHints sizes one side of a prospective position under the equity-risk
// budget, respecting the exchange's liquidation mechanics. The stop-loss is
// always derived before the take-profit ladder, which reads its distances.
func (s *Sizer) ComputeHints(input SizingInput, isLong bool) *domain.PositionHints {
	mc := input.MarketConfig
	mmr := s.config.MaintenanceMarginRate
	entry := input.EntryPrice

	slPercent := s.StopLossPercent(entry, input.ATR, input.Params)
	slPrice := s.StopLossPrice(entry, slPercent, isLong, mc)
	tpPercent := s.TakeProfitPercent(entry, input.ATR, input.Params)
	trigger1, trigger2, tpPrice := s.TakeProfitPriceLevels(entry, input.ATR, isLong, input.Params, mc)
	breakEven := s.BreakEvenPrice(entry, input.TakerFee, isLong, mc)

	numAssets := input.TrackedCount
	if input.AutoTradeEnabledCount < numAssets {
		numAssets = input.AutoTradeEnabledCount
	}
	if numAssets < 1 {
		numAssets = 1
	}

	desiredRiskAmount := input.TotalBalance * input.Risk.PercentValue / 100
	targetNotional := 0.0
	if slPercent > 0 {
		targetNotional = desiredRiskAmount / (slPercent / 100)
	}

	availableMargin := math.Min(input.FuturesBalance/float64(numAssets), input.WalletAvailableBalance)

	// A 5% buffer keeps the theoretical liquidation level beyond the stop.
	maxSurvivalLeverage := int(math.Floor(0.95 / (slPercent/100 + mmr)))

	requiredLeverage := 1
	if availableMargin > 0 {
		requiredLeverage = int(math.Ceil(targetNotional / availableMargin))
	}

	finalLeverage := requiredLeverage
	if finalLeverage > maxSurvivalLeverage {
		finalLeverage = maxSurvivalLeverage
	}
	if finalLeverage < 1 {
		finalLeverage = 1
	}

	var liquidationPrice float64
	if isLong {
		liquidationPrice = mc.RoundPrice(entry * (1 - 1/float64(finalLeverage) + mmr))
	} else {
		liquidationPrice = mc.RoundPrice(entry * (1 + 1/float64(finalLeverage) - mmr))
	}

	isSafe := liquidationPrice < slPrice
	if !isLong {
		isSafe = liquidationPrice > slPrice
	}

	margin := availableMargin
	if margin < 0 {
		margin = 0
	}
	finalNotional := mc.RoundPrice(margin * float64(finalLeverage))
	potentialLoss := mc.RoundPrice(finalNotional * slPercent / 100)
	potentialProfit := 0.0
	if entry > 0 {
		potentialProfit = mc.RoundPrice(finalNotional * math.Abs(tpPrice-entry) / entry)
	}

	return &domain.PositionHints{
		IsLong:            isLong,
		IsSafe:            isSafe,
		Margin:            mc.RoundPrice(margin),
		Leverage:          finalLeverage,
		NotionalSize:      finalNotional,
		LiquidationPrice:  liquidationPrice,
		EntryPrice:        entry,
		BreakEvenPrice:    breakEven,
		StopLossPrice:     slPrice,
		TakeProfitPrice:   tpPrice,
		TriggerLevel1:     trigger1,
		TriggerLevel2:     trigger2,
		StopLossPercent:   slPercent,
		TakeProfitPercent: tpPercent,
		PotentialProfit:   potentialProfit,
		PotentialLoss:     potentialLoss,
	}
}
