package wallet

import "errors"

// ErrInvalidMnemonic marks a mnemonic that failed BIP-39 checksum
// validation or word-count validation. Key derivation failures proper use
// config.ErrKeyDerivation instead, since those cross into the facilitator's
// closed reason-code set.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")
