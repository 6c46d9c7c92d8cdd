package ledger

import (
	"context"
	"sync"

	"github.com/nexpay/bchfacilitator/internal/models"
)

// MemStore is an in-memory Store, used by the core's own unit tests and by
// deployments that accept losing the ledger on restart.
type MemStore struct {
	mu        sync.RWMutex
	utxos     map[string]models.LedgerEntry
	addresses map[string]map[string]models.LedgerEntry // payerAddress -> utxoID -> entry
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		utxos:     make(map[string]models.LedgerEntry),
		addresses: make(map[string]map[string]models.LedgerEntry),
	}
}

func (s *MemStore) GetUTXO(_ context.Context, utxoID string) (*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.utxos[utxoID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *MemStore) PutUTXO(_ context.Context, entry models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos[entry.UTXOID] = entry
	return nil
}

func (s *MemStore) DeleteUTXO(_ context.Context, utxoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.utxos, utxoID)
	return nil
}

func (s *MemStore) GetAddressEntries(_ context.Context, payerAddress string) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUTXO, ok := s.addresses[payerAddress]
	if !ok {
		return []models.LedgerEntry{}, nil
	}

	entries := make([]models.LedgerEntry, 0, len(byUTXO))
	for _, e := range byUTXO {
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *MemStore) PutAddressEntry(_ context.Context, payerAddress string, entry models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUTXO, ok := s.addresses[payerAddress]
	if !ok {
		byUTXO = make(map[string]models.LedgerEntry)
		s.addresses[payerAddress] = byUTXO
	}
	byUTXO[entry.UTXOID] = entry
	return nil
}

func (s *MemStore) DeleteAddressEntry(_ context.Context, payerAddress, utxoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUTXO, ok := s.addresses[payerAddress]
	if !ok {
		return nil
	}
	delete(byUTXO, utxoID)
	if len(byUTXO) == 0 {
		delete(s.addresses, payerAddress)
	}
	return nil
}

func (s *MemStore) RebuildAddressIndex(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addresses = make(map[string]map[string]models.LedgerEntry)
	for _, entry := range s.utxos {
		byUTXO, ok := s.addresses[entry.PayerAddress]
		if !ok {
			byUTXO = make(map[string]models.LedgerEntry)
			s.addresses[entry.PayerAddress] = byUTXO
		}
		byUTXO[entry.UTXOID] = entry
	}
	return nil
}
