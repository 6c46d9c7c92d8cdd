package models

import (
	"encoding/json"
	"fmt"
)

// PaymentRequirements is the normalized form of the server-declared price.
type PaymentRequirements struct {
	Scheme  string
	Network string
	PayTo   string
	Cost    int64
}

type rawPaymentRequirements struct {
	Scheme            string          `json:"scheme"`
	Network           string          `json:"network"`
	PayTo             string          `json:"payTo"`
	Amount            json.RawMessage `json:"amount"`
	MinAmountRequired json.RawMessage `json:"minAmountRequired"`
	MaxAmountRequired json.RawMessage `json:"maxAmountRequired"`
}

// ParsePaymentRequirements normalizes requirements, taking cost from the
// first present of amount, minAmountRequired, maxAmountRequired.
func ParsePaymentRequirements(data []byte) (PaymentRequirements, error) {
	var raw rawPaymentRequirements
	if err := json.Unmarshal(data, &raw); err != nil {
		return PaymentRequirements{}, fmt.Errorf("parse payment requirements: %w", err)
	}

	cost, err := firstAmount(raw.Amount, raw.MinAmountRequired, raw.MaxAmountRequired)
	if err != nil {
		return PaymentRequirements{}, err
	}

	return PaymentRequirements{
		Scheme:  raw.Scheme,
		Network: raw.Network,
		PayTo:   raw.PayTo,
		Cost:    cost,
	}, nil
}

func firstAmount(candidates ...json.RawMessage) (int64, error) {
	for _, c := range candidates {
		v, present, err := parseAmount(c)
		if err != nil {
			return 0, fmt.Errorf("cost field: %w", err)
		}
		if present {
			return v, nil
		}
	}
	return 0, nil
}
