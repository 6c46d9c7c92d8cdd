package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// parseAmount decodes a monetary field that may arrive as a JSON integer or
// as a numeric string. raw being empty/absent/null yields (0, false, nil).
// Amounts never pass through floating-point.
func parseAmount(raw json.RawMessage) (int64, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseInt(asString, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse amount string %q: %w", asString, err)
		}
		return v, true, nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		v, err := asNumber.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("parse amount number %q: %w", asNumber, err)
		}
		return v, true, nil
	}

	return 0, false, fmt.Errorf("amount must be an integer or a numeric string, got %s", raw)
}
