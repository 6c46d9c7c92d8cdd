package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/models"
	"github.com/nexpay/bchfacilitator/internal/settle"
	"github.com/nexpay/bchfacilitator/internal/verify"
)

// paymentRequest is the x402-style envelope both /verify and /settle accept:
// the client's signed payload alongside the requirements it claims to satisfy.
type paymentRequest struct {
	PaymentPayload      json.RawMessage `json:"paymentPayload"`
	PaymentRequirements json.RawMessage `json:"paymentRequirements"`
}

type ledgerEntryResponse struct {
	UTXOID              string    `json:"utxoId"`
	TransactionValueSat int64     `json:"transactionValueSat"`
	TotalDebitedSat     int64     `json:"totalDebitedSat"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

type verifyResponse struct {
	IsValid             bool                 `json:"isValid"`
	InvalidReason       string               `json:"invalidReason,omitempty"`
	Payer               string               `json:"payer,omitempty"`
	RemainingBalanceSat *int64               `json:"remainingBalanceSat,omitempty"`
	LedgerEntry         *ledgerEntryResponse `json:"ledgerEntry,omitempty"`
}

type settleResponse struct {
	Success             bool   `json:"success"`
	ErrorReason         string `json:"errorReason,omitempty"`
	Transaction         string `json:"transaction,omitempty"`
	Network             string `json:"network"`
	Payer               string `json:"payer,omitempty"`
	RemainingBalanceSat *int64 `json:"remainingBalanceSat,omitempty"`
}

func toVerifyResponse(r models.VerifyResult) verifyResponse {
	resp := verifyResponse{
		IsValid:             r.Valid,
		InvalidReason:       r.InvalidReason,
		Payer:               r.Payer,
		RemainingBalanceSat: r.RemainingBalanceSat,
	}
	if r.LedgerEntry != nil {
		resp.LedgerEntry = &ledgerEntryResponse{
			UTXOID:              r.LedgerEntry.UTXOID,
			TransactionValueSat: r.LedgerEntry.TransactionValueSat,
			TotalDebitedSat:     r.LedgerEntry.TotalDebitedSat,
			LastUpdated:         r.LedgerEntry.LastUpdated,
		}
	}
	return resp
}

func toSettleResponse(r models.SettleResult) settleResponse {
	return settleResponse{
		Success:             r.Success,
		ErrorReason:         r.ErrorReason,
		Transaction:         r.Transaction,
		Network:             r.Network,
		Payer:               r.Payer,
		RemainingBalanceSat: r.RemainingBalanceSat,
	}
}

func decodePaymentRequest(r *http.Request) (models.PaymentPayload, models.PaymentRequirements, error) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.PaymentPayload{}, models.PaymentRequirements{}, err
	}

	payload, err := models.ParsePaymentPayload(req.PaymentPayload)
	if err != nil {
		return models.PaymentPayload{}, models.PaymentRequirements{}, err
	}

	requirements, err := models.ParsePaymentRequirements(req.PaymentRequirements)
	if err != nil {
		return models.PaymentPayload{}, models.PaymentRequirements{}, err
	}

	return payload, requirements, nil
}

// VerifyPayment wraps the Verification Pipeline: parses the wire envelope,
// runs verify(payload, requirements), and reports the uniform result.
func VerifyPayment(pipeline *verify.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, requirements, err := decodePaymentRequest(r)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}

		result := pipeline.Run(r.Context(), payload, requirements)

		// An invalid payment is a normal outcome reported with 200 — only a
		// pipeline-internal failure is a transport-level error.
		status := http.StatusOK
		if result.InvalidReason == config.ReasonUnexpectedVerifyError {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, toVerifyResponse(result))
	}
}

// SettlePayment wraps the Settlement Pipeline: parses the wire envelope,
// runs settle(payload, requirements), and reports the uniform result.
func SettlePayment(pipeline *settle.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, requirements, err := decodePaymentRequest(r)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}

		result := pipeline.Run(r.Context(), payload, requirements)

		status := http.StatusOK
		if result.ErrorReason == config.ReasonUnexpectedSettleError {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, toSettleResponse(result))
	}
}
