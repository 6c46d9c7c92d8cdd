package ledgerengine

import "errors"

// ErrUnexpectedValidation marks a Chain Client failure that does not carry
// its own invalid reason, mapped to unexpected_utxo_validation_error.
var ErrUnexpectedValidation = errors.New("unexpected utxo validation error")

// ErrLockTimeout marks a debit call that could not acquire its per-UTXO
// lock within DebitLockTimeout — the lock is held by another in-flight
// debit against the same coin for longer than the configured budget.
var ErrLockTimeout = errors.New("timed out waiting for utxo lock")
