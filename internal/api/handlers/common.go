// Package handlers implements the thin HTTP translation layer over the
// core's three public operations: listSupportedKinds, verifyPayment, and
// settlePayment.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nexpay/bchfacilitator/internal/config"
)

// APIError is the standard error response shape.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail carries an error code and a human-readable message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorDetail{Code: code, Message: message},
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, config.ReasonInvalidPayload, message)
}
