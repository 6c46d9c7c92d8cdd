// Package ledger persists LedgerEntry records behind the two logical
// namespaces named in the external interface: UtxoDB (keyed by utxoId) and
// AddressDB (keyed by payer address, holding that payer's open entries).
package ledger

import (
	"context"

	"github.com/nexpay/bchfacilitator/internal/models"
)

// Store is the Ledger Store contract: at-least key-by-key atomic
// get/put/delete over both namespaces. A missing key is reported as
// (nil, nil), not an error — only store-level failures (I/O, corruption)
// return a non-nil error.
type Store interface {
	// GetUTXO reads UtxoDB[utxoID]. Returns (nil, nil) if absent.
	GetUTXO(ctx context.Context, utxoID string) (*models.LedgerEntry, error)
	// PutUTXO writes UtxoDB[entry.UTXOID].
	PutUTXO(ctx context.Context, entry models.LedgerEntry) error
	// DeleteUTXO removes UtxoDB[utxoID]. Deleting an absent key is a no-op.
	DeleteUTXO(ctx context.Context, utxoID string) error

	// GetAddressEntries reads AddressDB[payerAddress]. Returns an empty
	// slice, not an error, if the address has no open entries.
	GetAddressEntries(ctx context.Context, payerAddress string) ([]models.LedgerEntry, error)
	// PutAddressEntry upserts one entry into AddressDB[payerAddress].
	PutAddressEntry(ctx context.Context, payerAddress string, entry models.LedgerEntry) error
	// DeleteAddressEntry removes one entry from AddressDB[payerAddress],
	// deleting the address key entirely once its list becomes empty.
	DeleteAddressEntry(ctx context.Context, payerAddress, utxoID string) error

	// RebuildAddressIndex repopulates AddressDB by scanning all of UtxoDB,
	// for use at startup after secondary-index drift.
	RebuildAddressIndex(ctx context.Context) error
}
