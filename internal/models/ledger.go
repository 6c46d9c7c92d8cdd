package models

import "time"

// LedgerEntry is the persisted record tracking how much of one UTXO remains
// debitable. Stored under utxoId = txid + ":" + vout in UtxoDB, and mirrored
// into AddressDB[payerAddress] as a secondary index.
type LedgerEntry struct {
	UTXOID              string
	TxID                string
	Vout                uint32
	PayerAddress         string
	ReceiverAddress      string
	TransactionValueSat  int64
	RemainingBalanceSat  int64
	TotalDebitedSat      int64
	FirstSeen            time.Time
	LastUpdated          time.Time
	LastChecked          time.Time
}

// LedgerEntrySummary is the trimmed view of a LedgerEntry returned in a
// VerifyResult.
type LedgerEntrySummary struct {
	UTXOID              string
	TransactionValueSat int64
	TotalDebitedSat     int64
	LastUpdated         time.Time
}

func (e LedgerEntry) Summary() LedgerEntrySummary {
	return LedgerEntrySummary{
		UTXOID:              e.UTXOID,
		TransactionValueSat: e.TransactionValueSat,
		TotalDebitedSat:     e.TotalDebitedSat,
		LastUpdated:         e.LastUpdated,
	}
}
