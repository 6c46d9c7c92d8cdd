package config

import (
	"errors"
	"time"
)

// Sentinel errors for internal use.
var (
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrInvalidMnemonic      = errors.New("invalid mnemonic")
	ErrMnemonicFileNotSet   = errors.New("mnemonic file path not configured")
	ErrKeyDerivation        = errors.New("key derivation failed")
	ErrChainClientRateLimit = errors.New("chain client rate limit exceeded")
	ErrChainClientUnavail   = errors.New("chain client unavailable")
	ErrBroadcastFailed      = errors.New("transaction broadcast failed")
	ErrInsufficientFunds    = errors.New("insufficient funds in facilitator wallet")
)

// Error codes — shared with HTTP callers via API responses.
const (
	ErrorInvalidConfig    = "ERROR_INVALID_CONFIG"
	ErrorInvalidMnemonic  = "ERROR_INVALID_MNEMONIC"
	ErrorKeyDerivation    = "ERROR_KEY_DERIVATION"
	ErrorChainUnavailable = "ERROR_CHAIN_UNAVAILABLE"
	ErrorBroadcastFailed  = "ERROR_BROADCAST_FAILED"
	ErrorDatabase         = "ERROR_DATABASE"
	ErrorUnauthorized     = "ERROR_UNAUTHORIZED"
)

// transientError wraps an error that is safe to retry, optionally carrying
// a server-suggested delay before the next attempt (e.g. from a Retry-After
// header). Chain Client reads use this to distinguish retryable transport
// failures from permanent validation failures; broadcasts never wrap one —
// settlement never retries per spec.
type transientError struct {
	err        error
	retryAfter time.Duration
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// NewTransientError marks err as safe to retry with no suggested delay.
func NewTransientError(err error) error {
	return &transientError{err: err}
}

// NewTransientErrorWithRetry marks err as safe to retry after the given delay.
func NewTransientErrorWithRetry(err error, retryAfter time.Duration) error {
	return &transientError{err: err, retryAfter: retryAfter}
}

// IsTransient reports whether err (or anything it wraps) was marked transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	return errors.As(err, &te)
}

// GetRetryAfter returns the suggested retry delay carried by a transient
// error, or 0 if err is not transient or carries no suggestion.
func GetRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	var te *transientError
	if errors.As(err, &te) {
		return te.retryAfter
	}
	return 0
}
