package config

import "time"

// CanonicalNet is the CAIP-2 network id this facilitator serves natively.
// Every other bip122:* id is a foreign network and never matches it.
const CanonicalNet = "bip122:000000000000000000651ef99cb9fcbe"

// LegacyNetworkAlias is the pre-CAIP-2 network tag treated as an alias for CanonicalNet.
const LegacyNetworkAlias = "bch"

// AnyUTXOSentinel is the authorization.txid value meaning "select any eligible UTXO".
const AnyUTXOSentinel = "*"

// Supported scheme and protocol version, as advertised by listSupportedKinds.
const (
	SchemeUTXO     = "utxo"
	ProtocolVersion = 2
)

// BIP-44 Derivation Path (legacy P2PKH; BCH has no segwit concept)
const (
	BIP44Purpose    = 44  // m/44'/coin'/0'/0/N
	BCHCoinType     = 145 // SLIP-44 mainnet coin type for Bitcoin Cash
	BCHTestCoinType = 1   // SLIP-44 shared testnet coin type
)

// Invalid/error reasons (closed set per the external interface contract).
const (
	ReasonMissingAuthorization            = "missing_authorization"
	ReasonInvalidNetwork                  = "invalid_network"
	ReasonInvalidScheme                   = "invalid_scheme"
	ReasonInvalidPayload                  = "invalid_payload"
	ReasonInvalidSignature                = "invalid_exact_bch_payload_signature"
	ReasonNoUTXOFoundForAddress           = "no_utxo_found_for_address"
	ReasonUTXONotFound                    = "utxo_not_found"
	ReasonInvalidReceiverAddress          = "invalid_receiver_address"
	ReasonInsufficientUTXOBalance         = "insufficient_utxo_balance"
	ReasonInsufficientFunds               = "insufficient_funds"
	ReasonInvalidTransactionState         = "invalid_transaction_state"
	ReasonInvalidPayment                  = "invalid_payment"
	ReasonInvalidUTXO                     = "invalid_utxo"
	ReasonUnexpectedUTXOValidationError   = "unexpected_utxo_validation_error"
	ReasonUnexpectedVerifyError           = "unexpected_verify_error"
	ReasonUnexpectedSettleError           = "unexpected_settle_error"
)

// API type values accepted for API_TYPE.
const (
	APITypeConsumer = "consumer-api"
	APITypeREST     = "rest-api"
)

// Server
const (
	DefaultServerPort  = 4345
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ServerIdleTimeout  = 120 * time.Second
	ShutdownGracePeriod = 10 * time.Second
)

// Logging
const (
	DefaultLogDir  = "./logs"
	LogFilePattern = "bchfacilitator-%s-%s.log" // %s = YYYY-MM-DD, %s = level
	LogMaxAgeDays  = 30
)

// Database
const (
	DefaultDBPath = "./data/bchfacilitator.sqlite"
	DBWALMode     = true
	DBBusyTimeout = 5000 // milliseconds
)

// Chain Client
const (
	DefaultChainRequestTimeout = 15 * time.Second
	ChainClientMaxRetries      = 3
	ChainClientRetryBaseDelay  = 500 * time.Millisecond
	ChainClientRateLimitRPS    = 10
	ChainReadCoalesceWindow    = 2 * time.Second
)

// Keyed lock map
const (
	DebitLockTimeout = 10 * time.Second
)

// Facilitator's own wallet (settlement transactions it broadcasts). Fee and
// coin selection are deliberately simple here — neither is in scope for the
// core ledger, so the wallet just needs to produce a valid, broadcastable
// transaction, not an optimal one.
const (
	WalletAddressIndex = 0 // facilitator uses a single derived address

	// BCHSighashForkID is the SIGHASH_FORKID bit BCH ORs into the sighash
	// type to select the BIP-143-style (replay-protected) sighash
	// algorithm instead of legacy Bitcoin sighash.
	BCHSighashForkID = 0x40

	BCHDustThresholdSats  = 546
	BCHFeeRateSatPerByte  = 2
	BCHTxOverheadBytes    = 10
	BCHP2PKHInputBytes    = 148
	BCHP2PKHOutputBytes   = 34
)
