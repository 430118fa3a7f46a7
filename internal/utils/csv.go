package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"futuresbot/internal/domain"
)

// WriteKlinesToCSV dumps raw candles to a CSV file, one row per kline.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"})

	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			formatFloat(k.Open),
			formatFloat(k.High),
			formatFloat(k.Low),
			formatFloat(k.Close),
			formatFloat(k.Volume),
		})
	}
	return writer.Error()
}

// WriteIndicatorsToCSV dumps a computed indicator table to a CSV file, one row
// per candle, in the same column order the engine evaluates them.
func WriteIndicatorsToCSV(rows []*domain.CandleIndicators, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"timestamp", "symbol", "open", "high", "low", "close",
		"ema50", "macd_line", "macd_signal", "macd_hist",
		"rsi", "stoch_rsi", "stoch_rsi_k", "stoch_rsi_d",
		"atr", "relative_volume",
	})

	for _, r := range rows {
		writer.Write([]string{
			r.Timestamp.Format(time.RFC3339),
			r.Symbol,
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			formatFloat(r.EMA50),
			formatFloat(r.MACDLine),
			formatFloat(r.MACDSignal),
			formatFloat(r.MACDHist),
			formatFloat(r.RSI),
			formatFloat(r.StochRSI),
			formatFloat(r.StochRSIK),
			formatFloat(r.StochRSID),
			formatFloat(r.ATR),
			formatFloat(r.RelativeVolume),
		})
	}
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
