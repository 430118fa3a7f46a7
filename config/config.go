package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"futuresbot/internal/adapters/logger"
	"futuresbot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// QuoteCurrency is the settlement asset every tracked pair trades against.
	QuoteCurrency string

	// Scheduler
	Timeframe    string
	TickInterval time.Duration

	// Tracked currencies seeded into the repository on startup, e.g.
	// "ETH/USDT,BTC/USDT". Currencies already persisted are left untouched.
	BootstrapCurrencies []string
	// AutoTradeOnBootstrap sets the auto-trade flag on seeded currencies.
	AutoTradeOnBootstrap bool

	// Risk and sizing
	RetentionDays         int
	MaintenanceMarginRate float64
	TakerFeeRate          float64

	// Order polling
	OrderPollInterval    time.Duration
	OrderPollMaxAttempts int

	// Exchange retry settings
	RetryMinDelay    time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int

	// Database
	DBPath string

	// Logging
	LogLevel zerolog.Level
	LogJSON  bool

	// Telegram
	TelegramBotToken          string
	TelegramSignalsChatID     int64
	TelegramTradesChatID      int64
	TelegramFatalErrorsChatID int64

	// Metrics. Empty disables the Prometheus listener.
	MetricsAddr string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	cfg.QuoteCurrency = getEnv("QUOTE_CURRENCY", "USDT")
	if cfg.QuoteCurrency == "" {
		errs = append(errs, "QUOTE_CURRENCY must be set")
	}

	// Scheduler
	cfg.Timeframe = getEnv("TIMEFRAME", domain.DefaultTimeframe)
	if cfg.Timeframe == "" {
		errs = append(errs, "TIMEFRAME must be set")
	}

	tickSeconds, err := getEnvAsIntRequired("TICK_INTERVAL_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TICK_INTERVAL_SECONDS: %v", err))
	} else if tickSeconds <= 0 {
		errs = append(errs, "TICK_INTERVAL_SECONDS must be positive")
	}
	cfg.TickInterval = time.Duration(tickSeconds) * time.Second

	currencies := getEnv("TRACKED_CURRENCIES", "ETH/USDT")
	for _, c := range strings.Split(currencies, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			errs = append(errs, fmt.Sprintf("tracked currency %q must be in BASE/QUOTE form", c))
			continue
		}
		cfg.BootstrapCurrencies = append(cfg.BootstrapCurrencies, c)
	}
	cfg.AutoTradeOnBootstrap = getEnvAsBool("AUTO_TRADE", false)

	// Risk and sizing
	cfg.RetentionDays, err = getEnvAsIntRequired("SIGNAL_RETENTION_DAYS", domain.DefaultMarketSignalRetentionDays)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIGNAL_RETENTION_DAYS: %v", err))
	} else if cfg.RetentionDays <= 0 {
		errs = append(errs, "SIGNAL_RETENTION_DAYS must be positive")
	}

	cfg.MaintenanceMarginRate, err = getEnvAsFloatRequired("MAINTENANCE_MARGIN_RATE", domain.DefaultMaintenanceMarginRate)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAINTENANCE_MARGIN_RATE: %v", err))
	} else if cfg.MaintenanceMarginRate < 0 || cfg.MaintenanceMarginRate >= 1 {
		errs = append(errs, "MAINTENANCE_MARGIN_RATE must be in [0, 1)")
	}

	cfg.TakerFeeRate, err = getEnvAsFloatRequired("TAKER_FEE_RATE", domain.DefaultTakerFeeRate)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKER_FEE_RATE: %v", err))
	} else if cfg.TakerFeeRate < 0 || cfg.TakerFeeRate >= 1 {
		errs = append(errs, "TAKER_FEE_RATE must be in [0, 1)")
	}

	// Order polling
	pollMillis := getEnvAsInt("ORDER_POLL_INTERVAL_MS", 500)
	if pollMillis <= 0 {
		errs = append(errs, "ORDER_POLL_INTERVAL_MS must be positive")
	}
	cfg.OrderPollInterval = time.Duration(pollMillis) * time.Millisecond

	cfg.OrderPollMaxAttempts = getEnvAsInt("ORDER_POLL_MAX_ATTEMPTS", 20)
	if cfg.OrderPollMaxAttempts <= 0 {
		errs = append(errs, "ORDER_POLL_MAX_ATTEMPTS must be positive")
	}

	// Exchange retry settings
	retryMinMillis := getEnvAsInt("RETRY_MIN_DELAY_MS", 250)
	retryMaxMillis := getEnvAsInt("RETRY_MAX_DELAY_MS", 5000)
	if retryMinMillis <= 0 || retryMaxMillis < retryMinMillis {
		errs = append(errs, "retry delays must be positive and RETRY_MAX_DELAY_MS >= RETRY_MIN_DELAY_MS")
	}
	cfg.RetryMinDelay = time.Duration(retryMinMillis) * time.Millisecond
	cfg.RetryMaxDelay = time.Duration(retryMaxMillis) * time.Millisecond

	cfg.RetryMaxAttempts = getEnvAsInt("RETRY_MAX_ATTEMPTS", 4)
	if cfg.RetryMaxAttempts < 0 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS cannot be negative")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/futuresbot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogJSON = getEnvAsBool("LOG_JSON", true)

	// Telegram. Optional: with no token the notifier only logs.
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramSignalsChatID, err = getEnvAsInt64("TELEGRAM_SIGNALS_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_SIGNALS_CHAT_ID: %v", err))
	}
	cfg.TelegramTradesChatID, err = getEnvAsInt64("TELEGRAM_TRADES_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_TRADES_CHAT_ID: %v", err))
	}
	cfg.TelegramFatalErrorsChatID, err = getEnvAsInt64("TELEGRAM_FATAL_ERRORS_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_FATAL_ERRORS_CHAT_ID: %v", err))
	}

	// Metrics
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
