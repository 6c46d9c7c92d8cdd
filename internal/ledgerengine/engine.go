// Package ledgerengine is the UTXO-backed debit ledger: the state machine
// that decides when an authorization is accepted, tracks remaining balance
// across concurrent calls against the same coin, and retires a UTXO once
// its balance is exhausted.
package ledgerengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/ledger"
	"github.com/nexpay/bchfacilitator/internal/models"
)

// ChainValidation is the Chain Client's answer to "is this UTXO real and
// does it pay our server address".
type ChainValidation struct {
	IsValid         bool
	InvalidReason   string
	UTXOAmountSat   int64
	ReceiverAddress string
}

// ChainClient is the subset of the external Chain Client the engine needs.
// Accepted as an interface so tests can stub it without a real node.
type ChainClient interface {
	ValidateUTXO(ctx context.Context, txid string, vout uint32) (ChainValidation, error)
}

// DebitResult is the uniform outcome of Debit.
type DebitResult struct {
	Valid                bool
	InvalidReason        string
	UTXOAmountSat        int64 // populated on insufficient_utxo_balance: the fresh UTXO's amount, or an existing entry's transaction value
	RemainingBalanceSat  int64
	Entry                *models.LedgerEntry
}

// Engine is the Ledger Engine: given an authorization and a cost, finds or
// creates the corresponding ledger entry, debits it, and keeps UtxoDB and
// AddressDB consistent.
type Engine struct {
	store  ledger.Store
	chain  ChainClient
	locks  *keyLock
}

// NewEngine builds an Engine over the given Store and Chain Client.
func NewEngine(store ledger.Store, chain ChainClient) *Engine {
	return &Engine{store: store, chain: chain, locks: newKeyLock()}
}

// Debit is the critical operation: see package doc and spec §4.4.
// optionalSelectedEntry is the Selector's pick for a check-my-tab call, or
// nil. It is ignored when the authorization pins a specific UTXO.
func (e *Engine) Debit(ctx context.Context, auth models.Authorization, cost int64, optionalSelectedEntry *models.LedgerEntry) (DebitResult, error) {
	if auth.From == "" {
		return DebitResult{InvalidReason: config.ReasonMissingAuthorization}, nil
	}

	isCheckMyTab := auth.Ref.IsAny()
	txid, vout := auth.Ref.TxID(), auth.Ref.Vout()

	if isCheckMyTab {
		if optionalSelectedEntry == nil {
			return DebitResult{InvalidReason: config.ReasonNoUTXOFoundForAddress}, nil
		}
		txid, vout = optionalSelectedEntry.TxID, optionalSelectedEntry.Vout
	}

	utxoID := fmt.Sprintf("%s:%d", txid, vout)

	var (
		result DebitResult
		opErr  error
	)
	lockErr := e.locks.withLock(ctx, utxoID, config.DebitLockTimeout, func() {
		result, opErr = e.debitLocked(ctx, utxoID, txid, vout, auth.From, cost, isCheckMyTab, optionalSelectedEntry)
	})
	if lockErr != nil {
		return DebitResult{}, fmt.Errorf("acquire lock for utxo %q: %w", utxoID, lockErr)
	}
	return result, opErr
}

func (e *Engine) debitLocked(ctx context.Context, utxoID, txid string, vout uint32, payerAddress string, cost int64, isCheckMyTab bool, selected *models.LedgerEntry) (DebitResult, error) {
	existing, err := e.store.GetUTXO(ctx, utxoID)
	if err != nil {
		return DebitResult{}, fmt.Errorf("lookup utxo %q: %w", utxoID, err)
	}

	if existing == nil {
		return e.branchA(ctx, utxoID, txid, vout, payerAddress, cost, isCheckMyTab, selected)
	}
	return e.branchB(ctx, utxoID, cost, *existing)
}

// branchA handles a utxoId not yet present in UtxoDB.
func (e *Engine) branchA(ctx context.Context, utxoID, txid string, vout uint32, payerAddress string, cost int64, isCheckMyTab bool, selected *models.LedgerEntry) (DebitResult, error) {
	if isCheckMyTab && selected != nil {
		repaired := *selected
		repaired.UTXOID = utxoID
		repaired.TxID = txid
		repaired.Vout = vout
		if err := e.store.PutUTXO(ctx, repaired); err != nil {
			return DebitResult{}, fmt.Errorf("repair utxo %q: %w", utxoID, err)
		}
		return e.branchB(ctx, utxoID, cost, repaired)
	}

	validation, err := e.chain.ValidateUTXO(ctx, txid, vout)
	if err != nil {
		slog.Warn("ledger engine: chain validation failed", "utxoId", utxoID, "error", err)
		return DebitResult{InvalidReason: config.ReasonUnexpectedUTXOValidationError}, nil
	}
	if !validation.IsValid {
		reason := validation.InvalidReason
		if reason == "" {
			reason = config.ReasonUTXONotFound
		}
		return DebitResult{InvalidReason: reason}, nil
	}

	remaining := validation.UTXOAmountSat - cost
	if remaining < 0 {
		return DebitResult{InvalidReason: config.ReasonInsufficientUTXOBalance, UTXOAmountSat: validation.UTXOAmountSat}, nil
	}

	now := time.Now().UTC()
	entry := models.LedgerEntry{
		UTXOID:              utxoID,
		TxID:                txid,
		Vout:                vout,
		PayerAddress:        payerAddress,
		ReceiverAddress:     validation.ReceiverAddress,
		TransactionValueSat: validation.UTXOAmountSat,
		RemainingBalanceSat: remaining,
		TotalDebitedSat:     cost,
		FirstSeen:           now,
		LastUpdated:         now,
		LastChecked:         now,
	}

	if err := e.store.PutUTXO(ctx, entry); err != nil {
		return DebitResult{}, fmt.Errorf("create utxo %q: %w", utxoID, err)
	}
	e.upsertAddressIndex(ctx, entry)

	return DebitResult{Valid: true, RemainingBalanceSat: remaining, Entry: &entry}, nil
}

// branchB handles a utxoId already present in UtxoDB.
func (e *Engine) branchB(ctx context.Context, utxoID string, cost int64, existing models.LedgerEntry) (DebitResult, error) {
	currentRemaining := existing.RemainingBalanceSat
	newRemaining := currentRemaining - cost
	if newRemaining < 0 {
		return DebitResult{
			InvalidReason:       config.ReasonInsufficientUTXOBalance,
			UTXOAmountSat:       existing.TransactionValueSat,
			RemainingBalanceSat: currentRemaining,
		}, nil
	}

	now := time.Now().UTC()
	updated := existing
	updated.RemainingBalanceSat = newRemaining
	updated.TotalDebitedSat += cost
	updated.LastUpdated = now
	updated.LastChecked = now

	if newRemaining == 0 {
		if err := e.store.DeleteUTXO(ctx, utxoID); err != nil {
			return DebitResult{}, fmt.Errorf("delete exhausted utxo %q: %w", utxoID, err)
		}
		e.removeFromAddressIndex(ctx, updated.PayerAddress, utxoID)
		return DebitResult{Valid: true, RemainingBalanceSat: 0, Entry: &updated}, nil
	}

	if err := e.store.PutUTXO(ctx, updated); err != nil {
		return DebitResult{}, fmt.Errorf("update utxo %q: %w", utxoID, err)
	}
	e.upsertAddressIndex(ctx, updated)

	return DebitResult{Valid: true, RemainingBalanceSat: newRemaining, Entry: &updated}, nil
}

// upsertAddressIndex applies the secondary-index failure policy: failures
// are logged and swallowed, never propagated. UtxoDB remains authoritative.
func (e *Engine) upsertAddressIndex(ctx context.Context, entry models.LedgerEntry) {
	if err := e.store.PutAddressEntry(ctx, entry.PayerAddress, entry); err != nil {
		slog.Warn("ledger engine: address index upsert failed",
			"utxoId", entry.UTXOID, "payerAddress", entry.PayerAddress, "error", err)
	}
}

func (e *Engine) removeFromAddressIndex(ctx context.Context, payerAddress, utxoID string) {
	if err := e.store.DeleteAddressEntry(ctx, payerAddress, utxoID); err != nil {
		slog.Warn("ledger engine: address index removal failed",
			"utxoId", utxoID, "payerAddress", payerAddress, "error", err)
	}
}
