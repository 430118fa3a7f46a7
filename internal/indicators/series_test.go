package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/domain"
)

func TestSMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := smaSeries(values, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)

	t.Run("window overlapping NaN stays NaN", func(t *testing.T) {
		withGap := []float64{1, math.NaN(), 3, 4, 5}
		out := smaSeries(withGap, 3)
		assert.True(t, math.IsNaN(out[2]))
		assert.True(t, math.IsNaN(out[3]))
		assert.InDelta(t, 4.0, out[4], 1e-9)
	})

	t.Run("insufficient data", func(t *testing.T) {
		out := smaSeries([]float64{1, 2}, 3)
		for _, v := range out {
			assert.True(t, math.IsNaN(v))
		}
	})
}

func TestEMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := emaSeries(values, 3)

	// Seed SMA(1,2,3)=2, multiplier 0.5.
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)

	t.Run("skips leading NaN", func(t *testing.T) {
		values := []float64{math.NaN(), math.NaN(), 1, 2, 3, 4}
		out := emaSeries(values, 3)
		assert.True(t, math.IsNaN(out[3]))
		assert.InDelta(t, 2.0, out[4], 1e-9)
		assert.InDelta(t, 3.0, out[5], 1e-9)
	})
}

func TestRSISeries(t *testing.T) {
	closes := []float64{100, 102, 101, 103, 102, 104}
	out := rsiSeries(closes, 3)

	assert.True(t, math.IsNaN(out[2]))
	// Wilder smoothing over the full sequence.
	assert.InDelta(t, 77.272727, out[5], 1e-4)

	t.Run("all gains", func(t *testing.T) {
		out := rsiSeries([]float64{100, 102, 104, 106}, 3)
		assert.InDelta(t, 100.0, out[3], 1e-9)
	})

	t.Run("flat market is neutral", func(t *testing.T) {
		out := rsiSeries([]float64{100, 100, 100, 100}, 3)
		assert.InDelta(t, 50.0, out[3], 1e-9)
	})
}

func TestATRSeries(t *testing.T) {
	klines := []*domain.Kline{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}
	out := atrSeries(klines, 2)

	// Every true range is 2, so the smoothed ATR stays 2.
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 2.0, out[3], 1e-9)

	t.Run("gap widens true range", func(t *testing.T) {
		klines := []*domain.Kline{
			{High: 10, Low: 8, Close: 9},
			{High: 11, Low: 9, Close: 10},
			{High: 11, Low: 10, Close: 10.5},
			// Gap down: |low - prev close| dominates.
			{High: 7, Low: 5, Close: 6},
		}
		out := atrSeries(klines, 2)
		// Seed avg(TR1=2, TR2=1) = 1.5; TR3 = max(2, |7-10.5|, |5-10.5|) = 5.5.
		assert.InDelta(t, 1.5, out[2], 1e-9)
		assert.InDelta(t, (1.5+5.5)/2, out[3], 1e-9)
	})
}

func TestMACDSeries(t *testing.T) {
	t.Run("constant closes yield zero", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 100.0
		}
		line, signal, hist := macdSeries(closes, 12, 26, 9)
		last := len(closes) - 1
		assert.InDelta(t, 0.0, line[last], 1e-9)
		assert.InDelta(t, 0.0, signal[last], 1e-9)
		assert.InDelta(t, 0.0, hist[last], 1e-9)
	})

	t.Run("uptrend yields positive histogram on acceleration", func(t *testing.T) {
		closes := make([]float64, 80)
		price := 100.0
		for i := range closes {
			closes[i] = price
			price *= 1.01
		}
		line, signal, hist := macdSeries(closes, 12, 26, 9)
		last := len(closes) - 1
		require.False(t, math.IsNaN(hist[last]))
		assert.Positive(t, line[last])
		assert.InDelta(t, line[last]-signal[last], hist[last], 1e-9)
	})

	t.Run("histogram defined only when both inputs are", func(t *testing.T) {
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = float64(i)
		}
		line, _, hist := macdSeries(closes, 12, 26, 9)
		// MACD line appears at the slow EMA warm-up, the histogram 8 rows later.
		assert.False(t, math.IsNaN(line[25]))
		assert.True(t, math.IsNaN(hist[32]))
		assert.False(t, math.IsNaN(hist[33]))
	})
}

func TestStochRSISeries(t *testing.T) {
	closes := make([]float64, 120)
	price := 100.0
	for i := range closes {
		// Oscillating walk keeps the RSI range non-degenerate.
		if i%5 < 3 {
			price += 1.0 + float64(i%3)
		} else {
			price -= 1.5
		}
		closes[i] = price
	}

	raw, k, d := stochRSISeries(closes, 14, 14, 3, 3)

	last := len(closes) - 1
	require.False(t, math.IsNaN(raw[last]))
	require.False(t, math.IsNaN(k[last]))
	require.False(t, math.IsNaN(d[last]))

	for i := range closes {
		if !math.IsNaN(raw[i]) {
			assert.GreaterOrEqual(t, raw[i], 0.0)
			assert.LessOrEqual(t, raw[i], 1.0)
		}
	}

	// %K is the 3-period SMA of the raw series.
	assert.InDelta(t, (raw[last]+raw[last-1]+raw[last-2])/3, k[last], 1e-9)
	// %D is the 3-period SMA of %K.
	assert.InDelta(t, (k[last]+k[last-1]+k[last-2])/3, d[last], 1e-9)

	t.Run("flat rsi range maps to zero", func(t *testing.T) {
		flat := make([]float64, 60)
		for i := range flat {
			flat[i] = 100.0
		}
		raw, _, _ := stochRSISeries(flat, 14, 14, 3, 3)
		assert.InDelta(t, 0.0, raw[len(flat)-1], 1e-9)
	})
}

func TestRelativeVolumeSeries(t *testing.T) {
	volumes := []float64{1, 1, 1, 2}
	out := relativeVolumeSeries(volumes, 2)

	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.0, out[1], 1e-9)
	assert.InDelta(t, 2.0/1.5, out[3], 1e-9)
}
