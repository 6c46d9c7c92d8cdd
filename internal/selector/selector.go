// Package selector implements "check-my-tab" resolution: picking a usable
// UTXO from a payer's existing ledger entries when the authorization does
// not pin a specific one.
package selector

import (
	"context"
	"log/slog"
	"sort"

	"github.com/nexpay/bchfacilitator/internal/ledger"
	"github.com/nexpay/bchfacilitator/internal/models"
)

// Select returns the oldest eligible entry for payerAddress paying payTo
// with at least requiredValue remaining, or nil if none qualifies. FIFO by
// firstSeen bounds how many open tabs a payer can accumulate before the
// oldest one drains. A store read failure is advisory — it returns nil, not
// an error.
func Select(ctx context.Context, store ledger.Store, payerAddress, payTo string, requiredValue int64) *models.LedgerEntry {
	entries, err := store.GetAddressEntries(ctx, payerAddress)
	if err != nil {
		slog.Warn("selector: address index read failed, treating as empty",
			"payerAddress", payerAddress, "error", err)
		return nil
	}

	eligible := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.ReceiverAddress == payTo && e.RemainingBalanceSat >= requiredValue {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].FirstSeen.Before(eligible[j].FirstSeen)
	})

	selected := eligible[0]
	return &selected
}
