package ledger

import "errors"

var (
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrCorruptEntry     = errors.New("ledger entry failed to decode")
)
