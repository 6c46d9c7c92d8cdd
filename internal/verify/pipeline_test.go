package verify

import (
	"context"
	"testing"
	"time"

	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/ledger"
	"github.com/nexpay/bchfacilitator/internal/ledgerengine"
	"github.com/nexpay/bchfacilitator/internal/models"
)

type stubChain struct {
	validations map[string]ledgerengine.ChainValidation
	calls       int
}

func (s *stubChain) ValidateUTXO(_ context.Context, txid string, vout uint32) (ledgerengine.ChainValidation, error) {
	s.calls++
	key := txid + ":" + itoa(vout)
	v, ok := s.validations[key]
	if !ok {
		return ledgerengine.ChainValidation{IsValid: false, InvalidReason: config.ReasonUTXONotFound}, nil
	}
	return v, nil
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	digits := ""
	for v > 0 {
		digits = string(rune('0'+v%10)) + digits
		v /= 10
	}
	return digits
}

type stubVerifier struct {
	result bool
	err    error
	calls  int
}

func (s *stubVerifier) Verify(_ string, _, _ []byte) (bool, error) {
	s.calls++
	return s.result, s.err
}

func newAuthPayload(network, scheme string, auth models.Authorization) models.PaymentPayload {
	return models.PaymentPayload{
		Scheme:           scheme,
		Network:          network,
		Signature:        "sig",
		HasSignature:     true,
		Authorization:    auth,
		HasAuthorization: true,
	}
}

func TestPipeline_NetworkMismatchShortCircuits(t *testing.T) {
	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{}}
	ver := &stubVerifier{result: true}
	engine := ledgerengine.NewEngine(ledger.NewMemStore(), chain)
	p := New(ledger.NewMemStore(), engine, ver)

	payload := newAuthPayload("btc", config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 1000, Ref: models.SpecificRef("tx1", 0),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: "bch", PayTo: "S", Cost: 1000}

	result := p.Run(context.Background(), payload, reqs)
	if result.Valid {
		t.Fatal("Run() valid, want invalid_network")
	}
	if result.InvalidReason != config.ReasonInvalidNetwork {
		t.Errorf("InvalidReason = %q, want %q", result.InvalidReason, config.ReasonInvalidNetwork)
	}
	if result.Payer != "" {
		t.Errorf("Payer = %q, want empty on network mismatch", result.Payer)
	}
	if chain.calls != 0 {
		t.Errorf("chain calls = %d, want 0 (short-circuited before any chain I/O)", chain.calls)
	}
	if ver.calls != 0 {
		t.Errorf("verifier calls = %d, want 0 (short-circuited before signature check)", ver.calls)
	}
}

func TestPipeline_NewUTXOSufficientFunds(t *testing.T) {
	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{
		"tx1:0": {IsValid: true, UTXOAmountSat: 2000, ReceiverAddress: "S"},
	}}
	ver := &stubVerifier{result: true}
	store := ledger.NewMemStore()
	engine := ledgerengine.NewEngine(store, chain)
	p := New(store, engine, ver)

	payload := newAuthPayload(config.CanonicalNet, config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 1000, Ref: models.SpecificRef("tx1", 0),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: config.CanonicalNet, PayTo: "S", Cost: 1000}

	result := p.Run(context.Background(), payload, reqs)
	if !result.Valid {
		t.Fatalf("Run() invalid, reason = %q", result.InvalidReason)
	}
	if result.Payer != "A" {
		t.Errorf("Payer = %q, want A", result.Payer)
	}
	if result.RemainingBalanceSat == nil || *result.RemainingBalanceSat != 1000 {
		t.Errorf("RemainingBalanceSat = %v, want 1000", result.RemainingBalanceSat)
	}
}

func TestPipeline_SignatureFailureNeverTouchesLedger(t *testing.T) {
	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{
		"tx1:0": {IsValid: true, UTXOAmountSat: 2000, ReceiverAddress: "S"},
	}}
	ver := &stubVerifier{result: false}
	store := ledger.NewMemStore()
	engine := ledgerengine.NewEngine(store, chain)
	p := New(store, engine, ver)

	payload := newAuthPayload(config.CanonicalNet, config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 1000, Ref: models.SpecificRef("tx1", 0),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: config.CanonicalNet, PayTo: "S", Cost: 1000}

	result := p.Run(context.Background(), payload, reqs)
	if result.Valid {
		t.Fatal("Run() valid, want invalid_exact_bch_payload_signature")
	}
	if result.InvalidReason != config.ReasonInvalidSignature {
		t.Errorf("InvalidReason = %q, want %q", result.InvalidReason, config.ReasonInvalidSignature)
	}
	if chain.calls != 0 {
		t.Errorf("chain calls = %d, want 0 (signature checked before chain validation)", chain.calls)
	}
}

func TestPipeline_CheckMyTabSelectsOldestEligibleEntry(t *testing.T) {
	store := ledger.NewMemStore()
	ctx := context.Background()
	older := models.LedgerEntry{
		UTXOID: "tx-old:0", TxID: "tx-old", Vout: 0, PayerAddress: "A", ReceiverAddress: "S",
		TransactionValueSat: 1500, RemainingBalanceSat: 1500, FirstSeen: time.Unix(1000, 0),
	}
	newer := models.LedgerEntry{
		UTXOID: "tx-new:0", TxID: "tx-new", Vout: 0, PayerAddress: "A", ReceiverAddress: "S",
		TransactionValueSat: 2000, RemainingBalanceSat: 2000, FirstSeen: time.Unix(2000, 0),
	}
	// Both entries are eligible; debiting the newer one would leave 1000.
	for _, e := range []models.LedgerEntry{newer, older} {
		_ = store.PutUTXO(ctx, e)
		_ = store.PutAddressEntry(ctx, "A", e)
	}

	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{}}
	ver := &stubVerifier{result: true}
	engine := ledgerengine.NewEngine(store, chain)
	p := New(store, engine, ver)

	payload := newAuthPayload(config.CanonicalNet, config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 1000, Ref: models.AnyForAddressRef(),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: config.CanonicalNet, PayTo: "S", Cost: 1000}

	result := p.Run(ctx, payload, reqs)
	if !result.Valid {
		t.Fatalf("Run() invalid, reason = %q", result.InvalidReason)
	}
	if *result.RemainingBalanceSat != 500 {
		t.Errorf("RemainingBalanceSat = %d, want 500", *result.RemainingBalanceSat)
	}
}

func TestPipeline_CheckMyTabNoEligibleEntry(t *testing.T) {
	store := ledger.NewMemStore()
	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{}}
	ver := &stubVerifier{result: true}
	engine := ledgerengine.NewEngine(store, chain)
	p := New(store, engine, ver)

	payload := newAuthPayload(config.CanonicalNet, config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 1000, Ref: models.AnyForAddressRef(),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: config.CanonicalNet, PayTo: "S", Cost: 1000}

	result := p.Run(context.Background(), payload, reqs)
	if result.Valid {
		t.Fatal("Run() valid, want no_utxo_found_for_address")
	}
	if result.InvalidReason != config.ReasonNoUTXOFoundForAddress {
		t.Errorf("InvalidReason = %q, want %q", result.InvalidReason, config.ReasonNoUTXOFoundForAddress)
	}
}

func TestPipeline_IdempotenceOnExhaustedUTXO(t *testing.T) {
	store := ledger.NewMemStore()
	ctx := context.Background()
	_ = store.PutUTXO(ctx, models.LedgerEntry{
		UTXOID: "tx1:0", TxID: "tx1", Vout: 0, PayerAddress: "A", ReceiverAddress: "S",
		TransactionValueSat: 1000, RemainingBalanceSat: 0,
	})

	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{}}
	ver := &stubVerifier{result: true}
	engine := ledgerengine.NewEngine(store, chain)
	p := New(store, engine, ver)

	payload := newAuthPayload(config.CanonicalNet, config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 1000, Ref: models.SpecificRef("tx1", 0),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: config.CanonicalNet, PayTo: "S", Cost: 1000}

	result := p.Run(ctx, payload, reqs)
	if result.Valid {
		t.Fatal("Run() valid, want insufficient_utxo_balance against an already-exhausted utxo")
	}
	if result.InvalidReason != config.ReasonInsufficientUTXOBalance {
		t.Errorf("InvalidReason = %q, want %q", result.InvalidReason, config.ReasonInsufficientUTXOBalance)
	}
}

func TestPipeline_AuthorizationValueMustMatchCost(t *testing.T) {
	chain := &stubChain{validations: map[string]ledgerengine.ChainValidation{
		"tx1:0": {IsValid: true, UTXOAmountSat: 2000, ReceiverAddress: "S"},
	}}
	ver := &stubVerifier{result: true}
	store := ledger.NewMemStore()
	engine := ledgerengine.NewEngine(store, chain)
	p := New(store, engine, ver)

	payload := newAuthPayload(config.CanonicalNet, config.SchemeUTXO, models.Authorization{
		From: "A", To: "S", Value: 500, Ref: models.SpecificRef("tx1", 0),
	})
	reqs := models.PaymentRequirements{Scheme: config.SchemeUTXO, Network: config.CanonicalNet, PayTo: "S", Cost: 1000}

	result := p.Run(context.Background(), payload, reqs)
	if result.Valid {
		t.Fatal("Run() valid, want invalid_payment for a value/cost mismatch")
	}
	if result.InvalidReason != config.ReasonInvalidPayment {
		t.Errorf("InvalidReason = %q, want %q", result.InvalidReason, config.ReasonInvalidPayment)
	}
	if chain.calls != 0 {
		t.Errorf("chain calls = %d, want 0 (cost mismatch caught before chain validation)", chain.calls)
	}
}
