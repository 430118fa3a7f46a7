package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"futuresbot/config"
	"futuresbot/internal/adapters/binancefutures"
	"futuresbot/internal/adapters/logger"
	"futuresbot/internal/indicators"
	"futuresbot/internal/utils"
)

// Fetches historical candles for a currency and dumps them to CSV, optionally
// together with the computed indicator table. Useful for eyeballing signal
// behavior outside the live engine.
func main() {
	currency := flag.String("currency", "ETH/USDT", "currency pair in BASE/QUOTE form")
	timeframe := flag.String("timeframe", "15m", "candle interval")
	limit := flag.Int("limit", 500, "number of candles to fetch")
	withIndicators := flag.Bool("indicators", false, "also export the computed indicator table")
	outDir := flag.String("out", "data", "output directory")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogJSON)
	ctx := context.Background()

	// 3. Initialize Exchange Gateway
	gateway, err := binancefutures.New(binancefutures.Config{
		APIKey:        cfg.APIKey,
		SecretKey:     cfg.SecretKey,
		UseTestnet:    cfg.IsTestnet,
		Logger:        appLogger,
		QuoteCurrency: cfg.QuoteCurrency,
		TakerFee:      cfg.TakerFeeRate,
		RetryMinDelay: cfg.RetryMinDelay,
		RetryMaxDelay: cfg.RetryMaxDelay,
		MaxAttempts:   cfg.RetryMaxAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance futures gateway")
		log.Fatalf("FATAL: Failed to initialize Binance futures gateway: %v", err)
	}

	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"currency": *currency, "timeframe": *timeframe, "limit": *limit,
	})
	klines, err := gateway.FetchOHLCV(ctx, *currency, *timeframe, *limit)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(klines)})

	stamp := time.Now().Format("20060102_150405")
	base := sanitize(*currency)
	klinesFile := fmt.Sprintf("%s/%s_%s_%s_klines.csv", *outDir, base, *timeframe, stamp)
	if err := utils.WriteKlinesToCSV(klines, klinesFile); err != nil {
		appLogger.Error(ctx, err, "Error writing klines CSV")
		log.Fatalf("Error writing klines CSV: %v", err)
	}
	appLogger.Info(ctx, "Klines saved", map[string]interface{}{"filename": klinesFile})

	if !*withIndicators {
		return
	}

	provider, err := indicators.NewProvider(gateway, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize indicator provider")
		log.Fatalf("FATAL: Failed to initialize indicator provider: %v", err)
	}
	table, err := provider.GetTechnicalAnalysis(ctx, *currency, *timeframe)
	if err != nil {
		appLogger.Error(ctx, err, "Error computing indicators")
		log.Fatalf("Error computing indicators: %v", err)
	}
	indicatorsFile := fmt.Sprintf("%s/%s_%s_%s_indicators.csv", *outDir, base, *timeframe, stamp)
	if err := utils.WriteIndicatorsToCSV(table, indicatorsFile); err != nil {
		appLogger.Error(ctx, err, "Error writing indicators CSV")
		log.Fatalf("Error writing indicators CSV: %v", err)
	}
	appLogger.Info(ctx, "Indicators saved", map[string]interface{}{"filename": indicatorsFile, "rows": len(table)})
}

func sanitize(currency string) string {
	out := make([]rune, 0, len(currency))
	for _, r := range currency {
		if r == '/' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}
