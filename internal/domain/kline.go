package domain

import "time"

// Kline represents a single candlestick data point.
type Kline struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Kline interval (e.g., "15m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this kline is the final one for the interval
}

// CandleIndicators is an immutable snapshot of a candle and the technical
// indicators computed at its close.
type CandleIndicators struct {
	Symbol    string
	Timestamp time.Time
	Index     CandleIndex

	// Candlestick
	Open  float64
	High  float64
	Low   float64
	Close float64

	// Trend
	EMA50 float64

	// MACD
	MACDLine   float64
	MACDSignal float64
	MACDHist   float64

	// Stochastic RSI
	StochRSI  float64
	StochRSIK float64
	StochRSID float64

	// Relative Strength Index
	RSI float64

	// Average True Range
	ATR float64

	// Relative Volume (volume vs. its 20-period SMA)
	RelativeVolume float64
}
