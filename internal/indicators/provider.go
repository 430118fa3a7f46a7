package indicators

import (
	"context"
	"fmt"
	"math"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
)

// Indicator periods. The candle limit leaves at least 200 usable rows after
// the slowest warm-up (EMA50) is dropped.
const (
	emaTrendPeriod = 50

	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9

	rsiPeriod         = 14
	stochPeriod       = 14
	stochKSmoothing   = 3
	stochDSmoothing   = 3
	atrPeriod         = 14
	relVolumeSMAWidth = 20

	candleFetchLimit = 251
)

// Provider computes indicator snapshots from gateway OHLCV data. It holds no
// state between calls; every analysis re-fetches and recomputes.
type Provider struct {
	gateway ports.FuturesGateway
	logger  ports.Logger
}

// NewProvider creates a new indicator provider.
func NewProvider(gateway ports.FuturesGateway, logger ports.Logger) (*Provider, error) {
	if gateway == nil {
		return nil, fmt.Errorf("futures gateway is required for indicator provider")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for indicator provider")
	}
	return &Provider{gateway: gateway, logger: logger}, nil
}

// GetTechnicalAnalysis fetches recent klines and returns the indicator table
// oldest first, with warm-up rows dropped. Rows where any indicator is still
// unready never appear in the result.
func (p *Provider) GetTechnicalAnalysis(ctx context.Context, symbol, timeframe string) ([]*domain.CandleIndicators, error) {
	op := "getTechnicalAnalysis"

	klines, err := p.gateway.FetchOHLCV(ctx, symbol, timeframe, candleFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching klines for %s %s: %w", op, symbol, timeframe, err)
	}
	table := p.compute(symbol, klines)
	if len(table) == 0 {
		return nil, fmt.Errorf("%s: %s %s yielded %d klines: %w",
			op, symbol, timeframe, len(klines), ports.ErrInsufficientCandles)
	}

	p.logger.Debug(ctx, "Technical analysis computed", map[string]interface{}{
		"op":        op,
		"symbol":    symbol,
		"timeframe": timeframe,
		"klines":    len(klines),
		"rows":      len(table),
	})
	return table, nil
}

// GetCandlestickIndicators returns the snapshot at the given index counted
// from the end of the table.
func (p *Provider) GetCandlestickIndicators(ctx context.Context, symbol, timeframe string, index domain.CandleIndex) (*domain.CandleIndicators, error) {
	table, err := p.GetTechnicalAnalysis(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	pos := len(table) + int(index)
	if pos < 0 || pos >= len(table) {
		return nil, fmt.Errorf("getCandlestickIndicators: index %d out of range for %d rows: %w",
			index, len(table), ports.ErrInsufficientCandles)
	}
	row := table[pos]
	row.Index = index
	return row, nil
}

func (p *Provider) compute(symbol string, klines []*domain.Kline) []*domain.CandleIndicators {
	n := len(klines)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, k := range klines {
		closes[i] = k.Close
		volumes[i] = k.Volume
	}

	ema50 := emaSeries(closes, emaTrendPeriod)
	macdLine, macdSignal, macdHist := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	stochRaw, stochK, stochD := stochRSISeries(closes, rsiPeriod, stochPeriod, stochKSmoothing, stochDSmoothing)
	rsi := rsiSeries(closes, rsiPeriod)
	atr := atrSeries(klines, atrPeriod)
	relVol := relativeVolumeSeries(volumes, relVolumeSMAWidth)

	var table []*domain.CandleIndicators
	for i := 0; i < n; i++ {
		if anyNaN(ema50[i], macdLine[i], macdSignal[i], macdHist[i],
			stochRaw[i], stochK[i], stochD[i], rsi[i], atr[i], relVol[i]) {
			continue
		}
		table = append(table, &domain.CandleIndicators{
			Symbol:    symbol,
			Timestamp: klines[i].CloseTime,

			Open:  klines[i].Open,
			High:  klines[i].High,
			Low:   klines[i].Low,
			Close: klines[i].Close,

			EMA50: ema50[i],

			MACDLine:   macdLine[i],
			MACDSignal: macdSignal[i],
			MACDHist:   macdHist[i],

			StochRSI:  stochRaw[i],
			StochRSIK: stochK[i],
			StochRSID: stochD[i],

			RSI: rsi[i],
			ATR: atr[i],

			RelativeVolume: relVol[i],
		})
	}
	return table
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
