package network

import (
	"testing"

	"github.com/nexpay/bchfacilitator/internal/config"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", config.CanonicalNet},
		{"legacy alias", "bch", config.CanonicalNet},
		{"already canonical", config.CanonicalNet, config.CanonicalNet},
		{"foreign bip122", "bip122:000000000019d6689c085ae165831e93", "bip122:000000000019d6689c085ae165831e93"},
		{"unrelated string", "btc", "btc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonicalize(tt.in); got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{"", "bch", config.CanonicalNet, "btc", "bip122:foo"}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestSameNetwork(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"both empty", "", "", true},
		{"legacy vs canonical", "bch", config.CanonicalNet, true},
		{"legacy vs empty", "bch", "", true},
		{"canonical vs canonical", config.CanonicalNet, config.CanonicalNet, true},
		{"foreign vs canonical", "btc", config.CanonicalNet, false},
		{"foreign vs same foreign", "btc", "btc", false},
		{"foreign bip122 vs canonical", "bip122:000000000019d6689c085ae165831e93", config.CanonicalNet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameNetwork(tt.a, tt.b); got != tt.want {
				t.Errorf("SameNetwork(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSameNetwork_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"bch", config.CanonicalNet},
		{"btc", config.CanonicalNet},
		{"", "bch"},
		{"foo", "bar"},
	}
	for _, p := range pairs {
		if SameNetwork(p[0], p[1]) != SameNetwork(p[1], p[0]) {
			t.Errorf("SameNetwork(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestSameNetwork_ReflexiveIffCanonical(t *testing.T) {
	inputs := []string{"", "bch", config.CanonicalNet, "btc", "bip122:foo"}
	for _, in := range inputs {
		want := Canonicalize(in) == config.CanonicalNet
		if got := SameNetwork(in, in); got != want {
			t.Errorf("SameNetwork(%q, %q) = %v, want %v (canonicalize==%q)", in, in, got, want, Canonicalize(in))
		}
	}
}
