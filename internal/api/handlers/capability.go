package handlers

import (
	"net/http"

	"github.com/nexpay/bchfacilitator/internal/capability"
)

// ListSupportedKinds reports the facilitator's static scheme/network
// capability advertisement.
func ListSupportedKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, capability.ListSupportedKinds())
}
