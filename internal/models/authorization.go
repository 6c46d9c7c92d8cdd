package models

import (
	"encoding/json"
	"strconv"
)

// authRefKind distinguishes a pinned UTXO reference from the "select any
// eligible UTXO for this payer" sentinel. Per the design note on the
// txid: "*" sentinel, the literal string never travels past this package.
type authRefKind int

const (
	refKindSpecific authRefKind = iota
	refKindAny
)

// AuthorizationRef is the normalized form of authorization.txid/vout: either
// a specific (txid, vout) pair or "any UTXO the selector can find".
type AuthorizationRef struct {
	kind authRefKind
	txid string
	vout uint32
}

// SpecificRef builds a reference pinned to one UTXO.
func SpecificRef(txid string, vout uint32) AuthorizationRef {
	return AuthorizationRef{kind: refKindSpecific, txid: txid, vout: vout}
}

// AnyForAddressRef builds the "check-my-tab" reference.
func AnyForAddressRef() AuthorizationRef {
	return AuthorizationRef{kind: refKindAny}
}

// IsAny reports whether this reference requires selector resolution.
func (r AuthorizationRef) IsAny() bool { return r.kind == refKindAny }

// TxID returns the pinned transaction id. Meaningless when IsAny is true.
func (r AuthorizationRef) TxID() string { return r.txid }

// Vout returns the pinned output index. Meaningless when IsAny is true.
func (r AuthorizationRef) Vout() uint32 { return r.vout }

// wireTxID reconstructs the on-wire txid value, including the "*" sentinel
// for a check-my-tab reference. The signature is computed over this exact
// representation, so the sentinel must survive round-tripping through the
// normalized AuthorizationRef.
func (r AuthorizationRef) wireTxID() string {
	if r.kind == refKindAny {
		return "*"
	}
	return r.txid
}

// Authorization is the normalized, non-persisted payment claim presented by
// a paying client.
type Authorization struct {
	From   string
	To     string
	Value  int64
	Ref    AuthorizationRef
	Amount int64
}

// canonicalAuthMessage is the fixed-field-order shape the signature is
// computed over. Field order here IS the wire contract — json.Marshal
// preserves struct declaration order, which is what makes this
// deterministic across implementations reading the same fields.
type canonicalAuthMessage struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	TxID  string `json:"txid"`
	Vout  uint32 `json:"vout"`
}

// CanonicalMessage is the deterministic serialization of this authorization
// that the Signature Verifier checks the signature against, per the
// "txid: *" sentinel surviving into the signed message even though it never
// otherwise leaves AuthorizationRef.
func (a Authorization) CanonicalMessage() ([]byte, error) {
	msg := canonicalAuthMessage{
		From:  a.From,
		To:    a.To,
		Value: strconv.FormatInt(a.Value, 10),
		TxID:  a.Ref.wireTxID(),
		Vout:  a.Ref.Vout(),
	}
	return json.Marshal(msg)
}
