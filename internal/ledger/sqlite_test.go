package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexpay/bchfacilitator/internal/models"
)

func testEntry(utxoID, payer string, remaining int64) models.LedgerEntry {
	now := time.Now().UTC()
	return models.LedgerEntry{
		UTXOID:              utxoID,
		TxID:                "tx1",
		Vout:                0,
		PayerAddress:        payer,
		ReceiverAddress:     "S",
		TransactionValueSat: 2000,
		RemainingBalanceSat: remaining,
		TotalDebitedSat:     2000 - remaining,
		FirstSeen:           now,
		LastUpdated:         now,
		LastChecked:         now,
	}
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected database file to be created")
	}

	var mode string
	if err := store.conn.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestSQLiteStore_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if err := store.runMigrations(); err != nil {
		t.Fatalf("second runMigrations() error = %v", err)
	}

	var count int
	if err := store.conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 migration record, got %d", count)
	}
}

func TestSQLiteStore_PutGetDeleteUTXO(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := testEntry("tx1:0", "A", 1000)

	if got, err := store.GetUTXO(ctx, entry.UTXOID); err != nil || got != nil {
		t.Fatalf("GetUTXO() before put = %v, %v, want nil, nil", got, err)
	}

	if err := store.PutUTXO(ctx, entry); err != nil {
		t.Fatalf("PutUTXO() error = %v", err)
	}

	got, err := store.GetUTXO(ctx, entry.UTXOID)
	if err != nil {
		t.Fatalf("GetUTXO() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetUTXO() returned nil after put")
	}
	if got.RemainingBalanceSat != 1000 || got.TransactionValueSat != 2000 {
		t.Errorf("GetUTXO() = %+v, unexpected monetary fields", got)
	}

	if err := store.DeleteUTXO(ctx, entry.UTXOID); err != nil {
		t.Fatalf("DeleteUTXO() error = %v", err)
	}
	if got, err := store.GetUTXO(ctx, entry.UTXOID); err != nil || got != nil {
		t.Fatalf("GetUTXO() after delete = %v, %v, want nil, nil", got, err)
	}
}

func TestSQLiteStore_AddressIndex(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	e1 := testEntry("tx1:0", "A", 500)
	e2 := testEntry("tx2:0", "A", 1500)

	if err := store.PutAddressEntry(ctx, "A", e1); err != nil {
		t.Fatalf("PutAddressEntry() error = %v", err)
	}
	if err := store.PutAddressEntry(ctx, "A", e2); err != nil {
		t.Fatalf("PutAddressEntry() error = %v", err)
	}

	entries, err := store.GetAddressEntries(ctx, "A")
	if err != nil {
		t.Fatalf("GetAddressEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("GetAddressEntries() returned %d entries, want 2", len(entries))
	}

	if err := store.DeleteAddressEntry(ctx, "A", e1.UTXOID); err != nil {
		t.Fatalf("DeleteAddressEntry() error = %v", err)
	}
	entries, err = store.GetAddressEntries(ctx, "A")
	if err != nil {
		t.Fatalf("GetAddressEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("GetAddressEntries() after delete returned %d entries, want 1", len(entries))
	}
}

func TestSQLiteStore_RebuildAddressIndex(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	e1 := testEntry("tx1:0", "A", 500)
	e2 := testEntry("tx2:0", "B", 1500)

	if err := store.PutUTXO(ctx, e1); err != nil {
		t.Fatalf("PutUTXO() error = %v", err)
	}
	if err := store.PutUTXO(ctx, e2); err != nil {
		t.Fatalf("PutUTXO() error = %v", err)
	}

	// Simulate secondary-index drift: nothing was written to address_index.
	entries, err := store.GetAddressEntries(ctx, "A")
	if err != nil {
		t.Fatalf("GetAddressEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected drifted (empty) address index before rebuild, got %d entries", len(entries))
	}

	if err := store.RebuildAddressIndex(ctx); err != nil {
		t.Fatalf("RebuildAddressIndex() error = %v", err)
	}

	entriesA, err := store.GetAddressEntries(ctx, "A")
	if err != nil {
		t.Fatalf("GetAddressEntries(A) error = %v", err)
	}
	if len(entriesA) != 1 {
		t.Errorf("GetAddressEntries(A) after rebuild = %d entries, want 1", len(entriesA))
	}

	entriesB, err := store.GetAddressEntries(ctx, "B")
	if err != nil {
		t.Fatalf("GetAddressEntries(B) error = %v", err)
	}
	if len(entriesB) != 1 {
		t.Errorf("GetAddressEntries(B) after rebuild = %d entries, want 1", len(entriesB))
	}
}
