// Package signer implements the Signature Verifier external collaborator:
// given an address, a signature, and a message, it reports whether the
// address's key produced that signature over that message.
package signer

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Verifier is the contract the Verification Pipeline calls into: given an
// address, a signature, and a message, return whether the address's key
// produced that signature. Implementations may return an error for
// malformed input; the pipeline treats any error the same as a false
// result.
type Verifier interface {
	Verify(address string, signature, message []byte) (bool, error)
}

// Secp256k1Verifier checks a base64-encoded, recoverable compact ECDSA
// signature (the 65-byte encoding of Bitcoin's signmessage/verifymessage)
// against the P2PKH address recovered from it. The digest is the plain
// double-SHA256 of the message bytes; no "Bitcoin Signed Message" prefix is
// applied before hashing.
type Secp256k1Verifier struct {
	netParams *chaincfg.Params
}

// NewSecp256k1Verifier builds a verifier that recovers addresses for the
// given network (mainnet vs. testnet address version bytes differ).
func NewSecp256k1Verifier(netParams *chaincfg.Params) *Secp256k1Verifier {
	return &Secp256k1Verifier{netParams: netParams}
}

// Verify reports whether signature, over the double-SHA256 digest of
// message, recovers to a public key whose P2PKH address equals address.
// signature is expected base64-encoded, 65 raw bytes (1-byte recovery
// header + 32-byte r + 32-byte s). A malformed or unrecoverable signature
// is reported as an error; address is only compared as a string against the
// recovered address, so an address that does not decode yields false with
// no error.
func (v *Secp256k1Verifier) Verify(address string, signature, message []byte) (bool, error) {
	sigBytes, err := decodeSignature(signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}

	digest := doubleSHA256(message)

	pubKey, _, err := ecdsa.RecoverCompact(sigBytes, digest)
	if err != nil {
		return false, fmt.Errorf("recover public key: %w", err)
	}

	recoveredAddr, err := addressFromPubKey(pubKey, v.netParams)
	if err != nil {
		return false, fmt.Errorf("derive address from recovered key: %w", err)
	}

	return recoveredAddr == address, nil
}

// decodeSignature accepts a base64-encoded compact signature, the form
// signmessage-style tooling emits. A raw (already-binary) 65-byte
// signature is also accepted, so callers forwarding bytes straight off the
// wire without knowing their encoding still verify correctly.
func decodeSignature(signature []byte) ([]byte, error) {
	if len(signature) == 65 {
		return signature, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(string(signature))
	if err != nil {
		return nil, fmt.Errorf("not a 65-byte compact signature or valid base64: %w", err)
	}
	if len(decoded) != 65 {
		return nil, fmt.Errorf("decoded signature is %d bytes, want 65", len(decoded))
	}
	return decoded, nil
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

func addressFromPubKey(pubKey *btcec.PublicKey, netParams *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), netParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}
