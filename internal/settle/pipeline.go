// Package settle implements the Settlement Pipeline: re-running
// verification, then instructing the facilitator's own wallet to pay the
// requirements' recipient out of the facilitator's own coins.
package settle

import (
	"context"
	"log/slog"

	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/models"
	"github.com/nexpay/bchfacilitator/internal/verify"
)

// Wallet is the subset of the facilitator's own wallet the Settlement
// Pipeline needs: its confirmed balance and the ability to pay out.
type Wallet interface {
	Balance(ctx context.Context) (int64, error)
	Send(ctx context.Context, destAddress string, amountSat int64) (string, error)
}

// Pipeline wires the Verification Pipeline together with the facilitator's
// own wallet to implement settle(payload, requirements) → SettleResult.
type Pipeline struct {
	verifier *verify.Pipeline
	wallet   Wallet
}

// New builds a Settlement Pipeline.
func New(verifier *verify.Pipeline, wallet Wallet) *Pipeline {
	return &Pipeline{verifier: verifier, wallet: wallet}
}

// Run executes settle(payload, requirements) → SettleResult.
func (p *Pipeline) Run(ctx context.Context, payload models.PaymentPayload, requirements models.PaymentRequirements) models.SettleResult {
	verifyResult := p.verifier.Run(ctx, payload, requirements)
	if !verifyResult.Valid {
		return failed(verifyResult.InvalidReason, verifyResult.Payer)
	}
	payer := verifyResult.Payer

	balance, err := p.wallet.Balance(ctx)
	if err != nil {
		slog.Error("settle: unexpected wallet balance error", "payer", payer, "error", err)
		return failed(config.ReasonUnexpectedSettleError, payer)
	}
	amount := payload.Authorization.Value
	if balance < amount {
		return failed(config.ReasonInsufficientFunds, payer)
	}

	txid, err := p.wallet.Send(ctx, requirements.PayTo, amount)
	if err != nil {
		slog.Error("settle: unexpected wallet send error", "payer", payer, "error", err)
		return failed(config.ReasonUnexpectedSettleError, payer)
	}
	if txid == "" {
		return failed(config.ReasonInvalidTransactionState, payer)
	}

	return models.SettleResult{
		Success:             true,
		Transaction:         txid,
		Network:             config.CanonicalNet,
		Payer:               payer,
		RemainingBalanceSat: verifyResult.RemainingBalanceSat,
	}
}

func failed(reason, payer string) models.SettleResult {
	return models.SettleResult{
		Success:     false,
		ErrorReason: reason,
		Transaction: "",
		Network:     config.CanonicalNet,
		Payer:       payer,
	}
}
