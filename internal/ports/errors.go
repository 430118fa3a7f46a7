package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderNotFound        = errors.New("order not found on the exchange")
	ErrOrderNotFilled       = errors.New("order reached a terminal state without filling")
	ErrPositionNotFound     = errors.New("position not found on the exchange")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrMarketConfigMissing  = errors.New("market config not available for symbol")

	// Indicator Provider Errors
	ErrInsufficientCandles = errors.New("not enough candles to compute indicators")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
	ErrDeleteFailed = errors.New("database delete failed")
)

// IsRetryable reports whether an error belongs to the transient
// infrastructure class that may be retried with backoff. Authentication and
// malformed-request errors are never retryable.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrExchangeUnavailable):
		return true
	default:
		return false
	}
}
