package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"futuresbot/config"
	"futuresbot/internal/adapters/binancefutures"
	"futuresbot/internal/adapters/logger"
	"futuresbot/internal/adapters/sqlite"
	"futuresbot/internal/adapters/telegram"
	"futuresbot/internal/app"
	"futuresbot/internal/domain"
	"futuresbot/internal/indicators"
	"futuresbot/internal/ledger"
	"futuresbot/internal/risk"
	"futuresbot/internal/signal"
	"futuresbot/internal/trade"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogJSON)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Seed tracked currencies that are not persisted yet
	trackedRepo := repo.TrackedCurrencies()
	existing, err := trackedRepo.FindAll(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load tracked currencies")
		log.Fatalf("FATAL: Failed to load tracked currencies: %v", err)
	}
	known := make(map[string]bool, len(existing))
	for _, tc := range existing {
		known[tc.Currency] = true
	}
	for _, currency := range cfg.BootstrapCurrencies {
		if known[currency] {
			continue
		}
		tc := &domain.TrackedCurrency{Currency: currency, AutoTradeEnabled: cfg.AutoTradeOnBootstrap}
		if err := trackedRepo.Upsert(ctx, tc); err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to seed tracked currency", map[string]interface{}{"currency": currency})
			log.Fatalf("FATAL: Failed to seed tracked currency %s: %v", currency, err)
		}
		appLogger.Info(ctx, "Tracked currency seeded", map[string]interface{}{
			"currency": currency, "autoTrade": cfg.AutoTradeOnBootstrap,
		})
	}

	// 5. Initialize Exchange Gateway (Binance Futures Adapter)
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
	appLogger.Info(ctx, "Binance futures gateway initialized", map[string]interface{}{"testnet": cfg.IsTestnet})

	// 6. Initialize Pipeline Services
	provider, err := indicators.NewProvider(gateway, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize indicator provider")
		log.Fatalf("FATAL: Failed to initialize indicator provider: %v", err)
	}

	evaluator, err := signal.NewEvaluator(appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal evaluator")
		log.Fatalf("FATAL: Failed to initialize signal evaluator: %v", err)
	}

	sizer, err := risk.NewSizer(risk.SizerConfig{MaintenanceMarginRate: cfg.MaintenanceMarginRate})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize position sizer")
		log.Fatalf("FATAL: Failed to initialize position sizer: %v", err)
	}

	ledgerSvc, err := ledger.NewService(repo.MarketSignals(), appLogger, cfg.RetentionDays)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal ledger")
		log.Fatalf("FATAL: Failed to initialize signal ledger: %v", err)
	}

	trader, err := trade.NewManager(
		gateway,
		provider,
		sizer,
		repo.RiskSettings(),
		repo.Parametrizations(),
		trackedRepo,
		appLogger,
		trade.Config{
			OrderPollInterval:    cfg.OrderPollInterval,
			OrderPollMaxAttempts: cfg.OrderPollMaxAttempts,
		},
	)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade manager")
		log.Fatalf("FATAL: Failed to initialize trade manager: %v", err)
	}
	appLogger.Info(ctx, "Pipeline services initialized")

	// 7. Initialize Telegram Notifier
	notifier, err := telegram.New(telegram.Config{
		BotToken:          cfg.TelegramBotToken,
		Logger:            appLogger,
		SignalsChatID:     cfg.TelegramSignalsChatID,
		TradesChatID:      cfg.TelegramTradesChatID,
		FatalErrorsChatID: cfg.TelegramFatalErrorsChatID,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Telegram notifier")
		log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
	}

	// 8. Initialize Engine
	engine, err := app.NewEngine(
		app.Config{
			Timeframe:    cfg.Timeframe,
			TickInterval: cfg.TickInterval,
			MetricsAddr:  cfg.MetricsAddr,
		},
		appLogger,
		provider,
		evaluator,
		ledgerSvc,
		trader,
		notifier,
		trackedRepo,
		repo.Parametrizations(),
	)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize engine")
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}
	appLogger.Info(ctx, "Engine initialized")

	// 9. Start the Engine
	if err := engine.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Engine exited with error")
		log.Fatalf("FATAL: Engine exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
