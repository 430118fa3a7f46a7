package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository owns the SQLite connection and schema. The per-concern
// repositories (signals, risk, parametrization, tracked currencies) are views
// over this shared handle.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/futures_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the scheduler and admin reads.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS market_signal (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		crypto_currency TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		entry_price REAL DEFAULT NULL,
		break_even_price REAL DEFAULT NULL,
		sl_percent REAL DEFAULT NULL,
		tp_percent REAL DEFAULT NULL,
		sl_price REAL DEFAULT NULL,
		tp_price REAL DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS risk_management (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		percent_value REAL NOT NULL,
		concurrent_trades INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS signal_parametrization (
		crypto_currency TEXT PRIMARY KEY,
		long_entry_oversold REAL NOT NULL,
		short_entry_overbought REAL NOT NULL,
		atr_sl_mult REAL NOT NULL,
		atr_tp_mult REAL NOT NULL,
		double_confirm_trend INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS tracked_currency (
		crypto_currency TEXT PRIMARY KEY,
		auto_trade_enabled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_market_signal_key_ts
		ON market_signal (crypto_currency, timeframe, signal_type, timestamp);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on error.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error(ctx, rbErr, "Transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarketSignals returns the market-signal view of the repository.
func (r *Repository) MarketSignals() *MarketSignalRepository {
	return &MarketSignalRepository{base: r}
}

// RiskSettings returns the risk-management view of the repository.
func (r *Repository) RiskSettings() *RiskManagementRepository {
	return &RiskManagementRepository{base: r}
}

// Parametrizations returns the signal-parametrization view of the repository.
func (r *Repository) Parametrizations() *SignalParametrizationRepository {
	return &SignalParametrizationRepository{base: r}
}

// TrackedCurrencies returns the tracked-currency view of the repository.
func (r *Repository) TrackedCurrencies() *TrackedCurrencyRepository {
	return &TrackedCurrencyRepository{base: r}
}

// --- MarketSignalRepository ---

// MarketSignalRepository implements ports.MarketSignalRepository.
type MarketSignalRepository struct {
	base *Repository
}

const insertSignalQuery = `
	INSERT INTO market_signal (id, timestamp, crypto_currency, timeframe, signal_type,
	                           entry_price, break_even_price, sl_percent, tp_percent, sl_price, tp_price)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSignalColumns = `
	SELECT id, timestamp, crypto_currency, timeframe, signal_type,
	       COALESCE(entry_price, 0), COALESCE(break_even_price, 0),
	       COALESCE(sl_percent, 0), COALESCE(tp_percent, 0),
	       COALESCE(sl_price, 0), COALESCE(tp_price, 0)
	FROM market_signal`

// Insert saves a new signal row.
func (r *MarketSignalRepository) Insert(ctx context.Context, signal *domain.MarketSignal) error {
	_, err := r.base.db.ExecContext(ctx, insertSignalQuery, signalArgs(signal)...)
	if err != nil {
		return fmt.Errorf("failed to insert market signal for %s: %w", signal.Currency, err)
	}
	r.base.logger.Debug(ctx, "Market signal inserted", map[string]interface{}{
		"id": signal.ID, "currency": signal.Currency, "type": string(signal.Type),
	})
	return nil
}

func signalArgs(signal *domain.MarketSignal) []interface{} {
	return []interface{}{
		signal.ID, signal.Timestamp.UTC(), signal.Currency, signal.Timeframe, string(signal.Type),
		signal.EntryPrice, signal.BreakEvenPrice, signal.StopLossPercent, signal.TakeProfitPercent,
		signal.StopLossPrice, signal.TakeProfitPrice,
	}
}

// sideTypes maps a position side to its two signal type tags.
func sideTypes(side domain.PositionSide) (string, string) {
	if side == domain.Long {
		return string(domain.SignalLongEntry), string(domain.SignalLongExit)
	}
	return string(domain.SignalShortEntry), string(domain.SignalShortExit)
}

// FindLast retrieves the most recent signal for (currency, timeframe, side),
// or nil when none exists.
func (r *MarketSignalRepository) FindLast(ctx context.Context, currency, timeframe string, side domain.PositionSide) (*domain.MarketSignal, error) {
	const query = selectSignalColumns + `
	WHERE crypto_currency = ? AND timeframe = ? AND signal_type IN (?, ?)
	ORDER BY timestamp DESC, rowid DESC
	LIMIT 1`

	entryType, exitType := sideTypes(side)
	row := r.base.db.QueryRowContext(ctx, query, currency, timeframe, entryType, exitType)
	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just no history yet
		}
		return nil, fmt.Errorf("failed to query last signal for %s %s %s: %w", currency, timeframe, side, err)
	}
	return sig, nil
}

// FindAll retrieves the filtered signal history for a currency, newest first.
func (r *MarketSignalRepository) FindAll(ctx context.Context, currency string, filter ports.MarketSignalFilter) ([]*domain.MarketSignal, error) {
	query := selectSignalColumns + ` WHERE crypto_currency = ?`
	args := []interface{}{currency}

	if filter.Timeframe != "" {
		query += ` AND timeframe = ?`
		args = append(args, filter.Timeframe)
	}
	if filter.Side != "" {
		entryType, exitType := sideTypes(filter.Side)
		query += ` AND signal_type IN (?, ?)`
		args = append(args, entryType, exitType)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`

	rows, err := r.base.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for %s: %w", currency, err)
	}
	defer rows.Close()

	signals := make([]*domain.MarketSignal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal during FindAll: %w", err)
		}
		signals = append(signals, sig)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

// DeleteOlderThan removes signals for (currency, timeframe) with a timestamp
// at or before the cutoff.
func (r *MarketSignalRepository) DeleteOlderThan(ctx context.Context, currency, timeframe string, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM market_signal WHERE crypto_currency = ? AND timeframe = ? AND timestamp <= ?`

	result, err := r.base.db.ExecContext(ctx, query, currency, timeframe, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale signals for %s %s: %w", currency, timeframe, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for signal prune: %w", err)
	}
	if deleted > 0 {
		r.base.logger.Debug(ctx, "Stale signals pruned", map[string]interface{}{
			"currency": currency, "timeframe": timeframe, "deleted": deleted,
		})
	}
	return deleted, nil
}

// RecordBatch inserts the given signals and prunes rows at or before the
// cutoff for (currency, timeframe) within a single transaction.
func (r *MarketSignalRepository) RecordBatch(ctx context.Context, signals []*domain.MarketSignal, currency, timeframe string, cutoff time.Time) error {
	const pruneQuery = `DELETE FROM market_signal WHERE crypto_currency = ? AND timeframe = ? AND timestamp <= ?`

	return r.base.withTx(ctx, func(tx *sql.Tx) error {
		for _, sig := range signals {
			if _, err := tx.ExecContext(ctx, insertSignalQuery, signalArgs(sig)...); err != nil {
				return fmt.Errorf("failed to insert market signal %s for %s: %w", sig.ID, sig.Currency, err)
			}
		}
		if _, err := tx.ExecContext(ctx, pruneQuery, currency, timeframe, cutoff.UTC()); err != nil {
			return fmt.Errorf("failed to prune stale signals for %s %s: %w", currency, timeframe, err)
		}
		return nil
	})
}

// --- RiskManagementRepository ---

// RiskManagementRepository implements ports.RiskManagementRepository over the
// single persisted risk row.
type RiskManagementRepository struct {
	base *Repository
}

// Get returns the persisted risk setting, or the defaults when no row exists.
func (r *RiskManagementRepository) Get(ctx context.Context) (*domain.RiskManagementSetting, error) {
	const query = `SELECT percent_value, concurrent_trades FROM risk_management WHERE id = 1`

	setting := &domain.RiskManagementSetting{}
	err := r.base.db.QueryRowContext(ctx, query).Scan(&setting.PercentValue, &setting.NumberOfConcurrentTrades)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultRiskManagementSetting(), nil
		}
		return nil, fmt.Errorf("failed to query risk management setting: %w", err)
	}
	return setting, nil
}

// Update writes the risk setting, creating the row when absent.
func (r *RiskManagementRepository) Update(ctx context.Context, setting *domain.RiskManagementSetting) error {
	const query = `
	INSERT INTO risk_management (id, percent_value, concurrent_trades)
	VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET percent_value = excluded.percent_value,
	                              concurrent_trades = excluded.concurrent_trades`

	_, err := r.base.db.ExecContext(ctx, query, setting.PercentValue, setting.NumberOfConcurrentTrades)
	if err != nil {
		return fmt.Errorf("failed to update risk management setting: %w", err)
	}
	r.base.logger.Debug(ctx, "Risk management setting updated", map[string]interface{}{
		"percentValue": setting.PercentValue, "concurrentTrades": setting.NumberOfConcurrentTrades,
	})
	return nil
}

// --- SignalParametrizationRepository ---

// SignalParametrizationRepository implements
// ports.SignalParametrizationRepository.
type SignalParametrizationRepository struct {
	base *Repository
}

// FindByCurrency returns the persisted parametrization for the currency, or
// the defaults when no row exists.
func (r *SignalParametrizationRepository) FindByCurrency(ctx context.Context, currency string) (*domain.SignalParametrization, error) {
	const query = `
	SELECT crypto_currency, long_entry_oversold, short_entry_overbought,
	       atr_sl_mult, atr_tp_mult, double_confirm_trend
	FROM signal_parametrization
	WHERE crypto_currency = ?`

	params := &domain.SignalParametrization{}
	var doubleConfirm int
	err := r.base.db.QueryRowContext(ctx, query, currency).Scan(
		&params.Currency, &params.LongEntryOversoldThreshold, &params.ShortEntryOverboughtThreshold,
		&params.ATRStopLossMult, &params.ATRTakeProfitMult, &doubleConfirm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSignalParametrization(currency), nil
		}
		return nil, fmt.Errorf("failed to query parametrization for %s: %w", currency, err)
	}
	params.DoubleConfirmTrend = doubleConfirm != 0
	return params, nil
}

// SaveOrUpdate writes the parametrization, creating the row when absent.
func (r *SignalParametrizationRepository) SaveOrUpdate(ctx context.Context, params *domain.SignalParametrization) error {
	const query = `
	INSERT INTO signal_parametrization (crypto_currency, long_entry_oversold, short_entry_overbought,
	                                    atr_sl_mult, atr_tp_mult, double_confirm_trend)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(crypto_currency) DO UPDATE SET
		long_entry_oversold = excluded.long_entry_oversold,
		short_entry_overbought = excluded.short_entry_overbought,
		atr_sl_mult = excluded.atr_sl_mult,
		atr_tp_mult = excluded.atr_tp_mult,
		double_confirm_trend = excluded.double_confirm_trend`

	doubleConfirm := 0
	if params.DoubleConfirmTrend {
		doubleConfirm = 1
	}
	_, err := r.base.db.ExecContext(ctx, query,
		params.Currency, params.LongEntryOversoldThreshold, params.ShortEntryOverboughtThreshold,
		params.ATRStopLossMult, params.ATRTakeProfitMult, doubleConfirm)
	if err != nil {
		return fmt.Errorf("failed to save parametrization for %s: %w", params.Currency, err)
	}
	r.base.logger.Debug(ctx, "Signal parametrization saved", map[string]interface{}{"currency": params.Currency})
	return nil
}

// --- TrackedCurrencyRepository ---

// TrackedCurrencyRepository implements ports.TrackedCurrencyRepository.
type TrackedCurrencyRepository struct {
	base *Repository
}

// FindAll returns all tracked currencies ordered by currency code.
func (r *TrackedCurrencyRepository) FindAll(ctx context.Context) ([]*domain.TrackedCurrency, error) {
	const query = `SELECT crypto_currency, auto_trade_enabled FROM tracked_currency ORDER BY crypto_currency`

	rows, err := r.base.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked currencies: %w", err)
	}
	defer rows.Close()

	tracked := make([]*domain.TrackedCurrency, 0)
	for rows.Next() {
		tc := &domain.TrackedCurrency{}
		var autoTrade int
		if err := rows.Scan(&tc.Currency, &autoTrade); err != nil {
			return nil, fmt.Errorf("failed to scan tracked currency: %w", err)
		}
		tc.AutoTradeEnabled = autoTrade != 0
		tracked = append(tracked, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked currency rows: %w", err)
	}
	return tracked, nil
}

// IsAutoTradeEnabled reports whether auto-trading is on for the currency.
// Unknown currencies are not auto-traded.
func (r *TrackedCurrencyRepository) IsAutoTradeEnabled(ctx context.Context, currency string) (bool, error) {
	const query = `SELECT auto_trade_enabled FROM tracked_currency WHERE crypto_currency = ?`

	var autoTrade int
	err := r.base.db.QueryRowContext(ctx, query, currency).Scan(&autoTrade)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query auto-trade flag for %s: %w", currency, err)
	}
	return autoTrade != 0, nil
}

// Upsert adds or updates a tracked currency.
func (r *TrackedCurrencyRepository) Upsert(ctx context.Context, tracked *domain.TrackedCurrency) error {
	const query = `
	INSERT INTO tracked_currency (crypto_currency, auto_trade_enabled)
	VALUES (?, ?)
	ON CONFLICT(crypto_currency) DO UPDATE SET auto_trade_enabled = excluded.auto_trade_enabled`

	autoTrade := 0
	if tracked.AutoTradeEnabled {
		autoTrade = 1
	}
	_, err := r.base.db.ExecContext(ctx, query, tracked.Currency, autoTrade)
	if err != nil {
		return fmt.Errorf("failed to upsert tracked currency %s: %w", tracked.Currency, err)
	}
	r.base.logger.Debug(ctx, "Tracked currency upserted", map[string]interface{}{
		"currency": tracked.Currency, "autoTrade": tracked.AutoTradeEnabled,
	})
	return nil
}

// Remove deletes a tracked currency.
func (r *TrackedCurrencyRepository) Remove(ctx context.Context, currency string) error {
	const query = `DELETE FROM tracked_currency WHERE crypto_currency = ?`

	result, err := r.base.db.ExecContext(ctx, query, currency)
	if err != nil {
		return fmt.Errorf("failed to remove tracked currency %s: %w", currency, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for tracked currency removal: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tracked currency %s not found for removal: %w", currency, ports.ErrNotFound)
	}
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSignal scans a row into a domain.MarketSignal struct.
func scanSignal(s scanner) (*domain.MarketSignal, error) {
	sig := &domain.MarketSignal{}
	var signalType string
	err := s.Scan(
		&sig.ID, &sig.Timestamp, &sig.Currency, &sig.Timeframe, &signalType,
		&sig.EntryPrice, &sig.BreakEvenPrice, &sig.StopLossPercent, &sig.TakeProfitPercent,
		&sig.StopLossPrice, &sig.TakeProfitPrice)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	sig.Type = domain.SignalType(signalType)
	return sig, nil
}
