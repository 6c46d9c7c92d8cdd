package models

import (
	"encoding/json"
	"fmt"
)

// PaymentPayload is the normalized form of the v1/v2 wire payload. Parsing
// never fails on a merely incomplete payload (missing authorization or
// signature) — HasAuthorization/HasSignature record that instead, so the
// Verification Pipeline can produce a uniform invalid_payload result
// regardless of which piece was missing.
type PaymentPayload struct {
	Scheme           string
	Network          string
	Signature        string
	HasSignature     bool
	Authorization    Authorization
	HasAuthorization bool
}

type rawAuthorization struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Value  json.RawMessage `json:"value"`
	TxID   string          `json:"txid"`
	Vout   *uint32         `json:"vout"`
	Amount json.RawMessage `json:"amount"`
}

type rawPaymentPayloadBody struct {
	Signature     string            `json:"signature"`
	Authorization *rawAuthorization `json:"authorization"`
}

type rawPaymentPayload struct {
	Scheme   string `json:"scheme"`
	Network  string `json:"network"`
	Accepted *struct {
		Scheme  string `json:"scheme"`
		Network string `json:"network"`
	} `json:"accepted"`
	Payload rawPaymentPayloadBody `json:"payload"`
}

// ParsePaymentPayload normalizes a v1 ({scheme,network,payload}) or v2
// ({accepted:{scheme,network},payload}) payload into a PaymentPayload.
func ParsePaymentPayload(data []byte) (PaymentPayload, error) {
	var raw rawPaymentPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return PaymentPayload{}, fmt.Errorf("parse payment payload: %w", err)
	}

	out := PaymentPayload{}
	if raw.Accepted != nil {
		out.Scheme = raw.Accepted.Scheme
		out.Network = raw.Accepted.Network
	} else {
		out.Scheme = raw.Scheme
		out.Network = raw.Network
	}

	if raw.Payload.Signature != "" {
		out.Signature = raw.Payload.Signature
		out.HasSignature = true
	}

	if raw.Payload.Authorization != nil {
		auth, err := normalizeAuthorization(raw.Payload.Authorization)
		if err != nil {
			return PaymentPayload{}, err
		}
		out.Authorization = auth
		out.HasAuthorization = true
	}

	return out, nil
}

func normalizeAuthorization(raw *rawAuthorization) (Authorization, error) {
	value, _, err := parseAmount(raw.Value)
	if err != nil {
		return Authorization{}, fmt.Errorf("authorization.value: %w", err)
	}

	amount, _, err := parseAmount(raw.Amount)
	if err != nil {
		return Authorization{}, fmt.Errorf("authorization.amount: %w", err)
	}

	var ref AuthorizationRef
	if raw.TxID == "*" {
		ref = AnyForAddressRef()
	} else {
		var vout uint32
		if raw.Vout != nil {
			vout = *raw.Vout
		}
		ref = SpecificRef(raw.TxID, vout)
	}

	return Authorization{
		From:   raw.From,
		To:     raw.To,
		Value:  value,
		Ref:    ref,
		Amount: amount,
	}, nil
}
