// Package network resolves legacy and CAIP-2 network tags to the
// facilitator's single canonical network.
package network

import "github.com/nexpay/bchfacilitator/internal/config"

// Canonicalize maps net to CANONICAL_NET when it is empty, the legacy "bch"
// alias, or already CANONICAL_NET. Every other bip122:* id (and anything
// else) passes through unchanged.
func Canonicalize(net string) string {
	if net == "" {
		return config.CanonicalNet
	}
	if net == config.LegacyNetworkAlias {
		return config.CanonicalNet
	}
	return net
}

// SameNetwork reports whether a and b both canonicalize to CANONICAL_NET.
// Two foreign networks that are textually identical never match — this
// facilitator serves only its native chain.
func SameNetwork(a, b string) bool {
	return Canonicalize(a) == config.CanonicalNet && Canonicalize(b) == config.CanonicalNet
}
