package indicators

import (
	"math"

	"futuresbot/internal/domain"
)

// Series functions compute one value per input candle, aligned by index.
// Positions before an indicator's warm-up window hold NaN so that callers can
// detect and drop unready rows uniformly.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// smaSeries computes a simple moving average over the trailing period values,
// the current one included. Windows overlapping unready inputs stay NaN.
func smaSeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		if !fullWindow(values, i, period) {
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

func fullWindow(values []float64, end, period int) bool {
	for j := end - period + 1; j <= end; j++ {
		if j < 0 || math.IsNaN(values[j]) {
			return false
		}
	}
	return true
}

// emaSeries computes an exponential moving average seeded with the SMA of the
// first full window.
func emaSeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[start+period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := start + period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// rsiSeries computes the Relative Strength Index with Wilder's smoothing.
func rsiSeries(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain = (avgGain*float64(period-1) + change) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - change) / float64(period)
		}
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	if rsi > 100 {
		return 100
	}
	if rsi < 0 {
		return 0
	}
	return rsi
}

// atrSeries computes the Average True Range with Wilder's smoothing. The first
// value appears at index period, seeded with the simple average of the first
// period true ranges.
func atrSeries(klines []*domain.Kline, period int) []float64 {
	out := nanSlice(len(klines))
	if period <= 0 || len(klines) < period+1 {
		return out
	}

	trueRanges := make([]float64, len(klines))
	trueRanges[0] = klines[0].High - klines[0].Low
	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	// Seed with the average of the period true ranges after the first candle,
	// whose TR lacks a previous close.
	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)
	out[period] = atr

	for i := period + 1; i < len(klines); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// macdSeries computes the MACD line (fast EMA minus slow EMA), its signal EMA
// and the histogram.
func macdSeries(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (line, signal, hist []float64) {
	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)

	line = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			line[i] = fast[i] - slow[i]
		}
	}

	signal = emaSeries(line, signalPeriod)

	hist = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(line[i]) && !math.IsNaN(signal[i]) {
			hist[i] = line[i] - signal[i]
		}
	}
	return line, signal, hist
}

// stochRSISeries computes the Stochastic RSI: the RSI's position within its
// recent range, then %K as an SMA of the raw value and %D as an SMA of %K.
// All outputs are in [0, 1].
func stochRSISeries(closes []float64, rsiPeriod, stochPeriod, kSmooth, dSmooth int) (raw, k, d []float64) {
	rsi := rsiSeries(closes, rsiPeriod)

	raw = nanSlice(len(closes))
	for i := range rsi {
		if !fullWindow(rsi, i, stochPeriod) {
			continue
		}
		lowest := math.Inf(1)
		highest := math.Inf(-1)
		for j := i - stochPeriod + 1; j <= i; j++ {
			lowest = math.Min(lowest, rsi[j])
			highest = math.Max(highest, rsi[j])
		}
		if highest == lowest {
			raw[i] = 0
			continue
		}
		raw[i] = (rsi[i] - lowest) / (highest - lowest)
	}

	k = smaSeries(raw, kSmooth)
	d = smaSeries(k, dSmooth)
	return raw, k, d
}

// relativeVolumeSeries divides each volume by the SMA of the trailing period
// volumes, the current one included.
func relativeVolumeSeries(volumes []float64, period int) []float64 {
	sma := smaSeries(volumes, period)
	out := nanSlice(len(volumes))
	for i := range volumes {
		if !math.IsNaN(sma[i]) && sma[i] > 0 {
			out[i] = volumes[i] / sma[i]
		}
	}
	return out
}
