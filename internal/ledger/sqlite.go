package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nexpay/bchfacilitator/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the production Store adapter: a WAL-mode SQLite database
// with utxo_ledger standing in for UtxoDB and address_index for AddressDB.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) a SQLite-backed Store and
// applies pending migrations.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger store directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger store %q: %w", path, err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping ledger store: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	store := &SQLiteStore{conn: conn, path: path}
	if err := store.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run ledger store migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	slog.Info("closing ledger store", "path", s.path)
	return s.conn.Close()
}

func (s *SQLiteStore) runMigrations() error {
	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d", &version); err != nil {
			slog.Warn("skipping migration with unparseable version", "file", entry.Name())
			continue
		}

		var count int
		if err := s.conn.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("check migration status for version %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		slog.Info("applying ledger store migration", "version", version, "file", entry.Name())

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", entry.Name(), err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}

	return nil
}

const timeLayout = time.RFC3339Nano

func (s *SQLiteStore) GetUTXO(ctx context.Context, utxoID string) (*models.LedgerEntry, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT utxo_id, txid, vout, payer_address, receiver_address,
		       transaction_value_sat, remaining_balance_sat, total_debited_sat,
		       first_seen, last_updated, last_checked
		FROM utxo_ledger WHERE utxo_id = ?`, utxoID)

	entry, err := scanLedgerEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get utxo %q: %w", utxoID, err)
	}
	return &entry, nil
}

func (s *SQLiteStore) PutUTXO(ctx context.Context, entry models.LedgerEntry) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO utxo_ledger (
			utxo_id, txid, vout, payer_address, receiver_address,
			transaction_value_sat, remaining_balance_sat, total_debited_sat,
			first_seen, last_updated, last_checked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(utxo_id) DO UPDATE SET
			payer_address = excluded.payer_address,
			receiver_address = excluded.receiver_address,
			transaction_value_sat = excluded.transaction_value_sat,
			remaining_balance_sat = excluded.remaining_balance_sat,
			total_debited_sat = excluded.total_debited_sat,
			last_updated = excluded.last_updated,
			last_checked = excluded.last_checked`,
		entry.UTXOID, entry.TxID, entry.Vout, entry.PayerAddress, entry.ReceiverAddress,
		entry.TransactionValueSat, entry.RemainingBalanceSat, entry.TotalDebitedSat,
		entry.FirstSeen.Format(timeLayout), entry.LastUpdated.Format(timeLayout), entry.LastChecked.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("put utxo %q: %w", entry.UTXOID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteUTXO(ctx context.Context, utxoID string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM utxo_ledger WHERE utxo_id = ?", utxoID); err != nil {
		return fmt.Errorf("delete utxo %q: %w", utxoID, err)
	}
	return nil
}

func (s *SQLiteStore) GetAddressEntries(ctx context.Context, payerAddress string) ([]models.LedgerEntry, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT utxo_id, txid, vout, payer_address, receiver_address,
		       transaction_value_sat, remaining_balance_sat, total_debited_sat,
		       first_seen, last_updated, last_checked
		FROM address_index WHERE payer_address = ?`, payerAddress)
	if err != nil {
		return nil, fmt.Errorf("get address entries for %q: %w", payerAddress, err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan address entry for %q: %w", payerAddress, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address entries for %q: %w", payerAddress, err)
	}
	return entries, nil
}

func (s *SQLiteStore) PutAddressEntry(ctx context.Context, payerAddress string, entry models.LedgerEntry) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO address_index (
			payer_address, utxo_id, txid, vout, receiver_address,
			transaction_value_sat, remaining_balance_sat, total_debited_sat,
			first_seen, last_updated, last_checked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(payer_address, utxo_id) DO UPDATE SET
			receiver_address = excluded.receiver_address,
			transaction_value_sat = excluded.transaction_value_sat,
			remaining_balance_sat = excluded.remaining_balance_sat,
			total_debited_sat = excluded.total_debited_sat,
			last_updated = excluded.last_updated,
			last_checked = excluded.last_checked`,
		payerAddress, entry.UTXOID, entry.TxID, entry.Vout, entry.ReceiverAddress,
		entry.TransactionValueSat, entry.RemainingBalanceSat, entry.TotalDebitedSat,
		entry.FirstSeen.Format(timeLayout), entry.LastUpdated.Format(timeLayout), entry.LastChecked.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("put address entry %q/%q: %w", payerAddress, entry.UTXOID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAddressEntry(ctx context.Context, payerAddress, utxoID string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM address_index WHERE payer_address = ? AND utxo_id = ?", payerAddress, utxoID); err != nil {
		return fmt.Errorf("delete address entry %q/%q: %w", payerAddress, utxoID, err)
	}
	return nil
}

// RebuildAddressIndex scans utxo_ledger and repopulates address_index from
// scratch, recovering from the drift the secondary-index failure policy
// permits.
func (s *SQLiteStore) RebuildAddressIndex(ctx context.Context) error {
	slog.Info("rebuilding ledger address index")

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM address_index"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear address index: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO address_index (
			payer_address, utxo_id, txid, vout, receiver_address,
			transaction_value_sat, remaining_balance_sat, total_debited_sat,
			first_seen, last_updated, last_checked
		)
		SELECT payer_address, utxo_id, txid, vout, receiver_address,
		       transaction_value_sat, remaining_balance_sat, total_debited_sat,
		       first_seen, last_updated, last_checked
		FROM utxo_ledger`); err != nil {
		tx.Rollback()
		return fmt.Errorf("repopulate address index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM address_index").Scan(&count); err == nil {
		slog.Info("ledger address index rebuilt", "entries", count)
	}
	return nil
}

func scanLedgerEntry(scan func(dest ...any) error) (models.LedgerEntry, error) {
	var (
		e                                     models.LedgerEntry
		firstSeen, lastUpdated, lastChecked string
	)
	err := scan(
		&e.UTXOID, &e.TxID, &e.Vout, &e.PayerAddress, &e.ReceiverAddress,
		&e.TransactionValueSat, &e.RemainingBalanceSat, &e.TotalDebitedSat,
		&firstSeen, &lastUpdated, &lastChecked,
	)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	e.FirstSeen, err = time.Parse(timeLayout, firstSeen)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("%w: first_seen %q: %v", ErrCorruptEntry, firstSeen, err)
	}
	e.LastUpdated, err = time.Parse(timeLayout, lastUpdated)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("%w: last_updated %q: %v", ErrCorruptEntry, lastUpdated, err)
	}
	e.LastChecked, err = time.Parse(timeLayout, lastChecked)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("%w: last_checked %q: %v", ErrCorruptEntry, lastChecked, err)
	}
	return e, nil
}
