// Package verify implements the Verification Pipeline: the sequence of
// checks (network, scheme, payload shape, signature, UTXO selection,
// ledger debit) that turns a payment payload and a price into a uniform
// VerifyResult.
package verify

import (
	"context"
	"log/slog"

	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/ledger"
	"github.com/nexpay/bchfacilitator/internal/ledgerengine"
	"github.com/nexpay/bchfacilitator/internal/models"
	"github.com/nexpay/bchfacilitator/internal/network"
	"github.com/nexpay/bchfacilitator/internal/selector"
	"github.com/nexpay/bchfacilitator/internal/signer"
)

// Pipeline wires together everything the Verification Pipeline reads from:
// the ledger store (for check-my-tab selection), the Ledger Engine (for
// debit), and the Signature Verifier.
type Pipeline struct {
	store    ledger.Store
	engine   *ledgerengine.Engine
	verifier signer.Verifier
}

// New builds a Verification Pipeline.
func New(store ledger.Store, engine *ledgerengine.Engine, verifier signer.Verifier) *Pipeline {
	return &Pipeline{store: store, engine: engine, verifier: verifier}
}

// Run executes verify(payload, requirements) → VerifyResult, short-circuiting
// on the first failed step.
func (p *Pipeline) Run(ctx context.Context, payload models.PaymentPayload, requirements models.PaymentRequirements) models.VerifyResult {
	if !network.SameNetwork(requirements.Network, payload.Network) {
		return invalid(config.ReasonInvalidNetwork, "")
	}

	if requirements.Scheme != config.SchemeUTXO || payload.Scheme != config.SchemeUTXO {
		return invalid(config.ReasonInvalidScheme, "")
	}

	if !payload.HasAuthorization || !payload.HasSignature {
		return invalid(config.ReasonInvalidPayload, "")
	}

	auth := payload.Authorization
	payer := auth.From

	message, err := auth.CanonicalMessage()
	if err != nil {
		slog.Error("verify: failed to build canonical message", "payer", payer, "error", err)
		return invalid(config.ReasonUnexpectedVerifyError, payer)
	}
	ok, err := p.verifier.Verify(auth.From, []byte(payload.Signature), message)
	if err != nil || !ok {
		return invalid(config.ReasonInvalidSignature, payer)
	}

	// The amount debited from the ledger and the amount this payment will
	// settle for on-chain must agree — the authorization's claimed value
	// always has to match what the server is actually charging.
	if auth.Value != requirements.Cost {
		return invalid(config.ReasonInvalidPayment, payer)
	}

	var selected *models.LedgerEntry
	if auth.Ref.IsAny() {
		selected = selector.Select(ctx, p.store, auth.From, requirements.PayTo, requirements.Cost)
		if selected == nil {
			return invalid(config.ReasonNoUTXOFoundForAddress, payer)
		}
	}

	result, err := p.engine.Debit(ctx, auth, requirements.Cost, selected)
	if err != nil {
		slog.Error("verify: unexpected debit error", "payer", payer, "error", err)
		return invalid(config.ReasonUnexpectedVerifyError, payer)
	}
	if !result.Valid {
		return invalid(result.InvalidReason, payer)
	}

	remaining := result.RemainingBalanceSat
	var summary *models.LedgerEntrySummary
	if result.Entry != nil {
		s := result.Entry.Summary()
		summary = &s
	}
	return models.VerifyResult{
		Valid:               true,
		Payer:               payer,
		RemainingBalanceSat: &remaining,
		LedgerEntry:         summary,
	}
}

func invalid(reason, payer string) models.VerifyResult {
	return models.VerifyResult{Valid: false, InvalidReason: reason, Payer: payer}
}
