package handlers

import (
	"net/http"

	"github.com/nexpay/bchfacilitator/internal/config"
)

// Health reports basic liveness and the facilitator's own network/API mode,
// so a caller can tell mainnet from testnet without reading requirements.
func Health(cfg *config.Config, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"network": cfg.Network,
			"apiType": cfg.APIType,
		})
	}
}
