package capability

import (
	"testing"

	"github.com/nexpay/bchfacilitator/internal/config"
)

func TestListSupportedKinds(t *testing.T) {
	caps := ListSupportedKinds()

	if len(caps.Kinds) != 1 {
		t.Fatalf("expected exactly one supported kind, got %d", len(caps.Kinds))
	}

	kind := caps.Kinds[0]
	if kind.ProtocolVersion != 2 {
		t.Errorf("protocolVersion = %d, want 2", kind.ProtocolVersion)
	}
	if kind.Scheme != "utxo" {
		t.Errorf("scheme = %q, want %q", kind.Scheme, "utxo")
	}
	if kind.Network != config.CanonicalNet {
		t.Errorf("network = %q, want %q", kind.Network, config.CanonicalNet)
	}

	if len(caps.Extensions) != 0 {
		t.Errorf("expected empty extensions, got %v", caps.Extensions)
	}

	ns, ok := caps.SignerNamespaces["bip122:*"]
	if !ok {
		t.Fatal("expected signerNamespaces to contain \"bip122:*\"")
	}
	if len(ns) != 0 {
		t.Errorf("expected empty namespace list, got %v", ns)
	}
}

func TestListSupportedKinds_Stable(t *testing.T) {
	first := ListSupportedKinds()
	second := ListSupportedKinds()

	if first.Kinds[0] != second.Kinds[0] {
		t.Error("ListSupportedKinds should return a stable constant record")
	}
}
