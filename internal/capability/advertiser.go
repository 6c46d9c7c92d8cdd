// Package capability advertises the facilitator's static, unchanging set of
// supported schemes, networks, and signer namespaces.
package capability

import (
	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/models"
)

// ListSupportedKinds returns the constant capability record. This facilitator
// supports exactly one scheme/network combination.
func ListSupportedKinds() models.Capabilities {
	return models.Capabilities{
		Kinds: []models.SupportedKind{
			{
				ProtocolVersion: config.ProtocolVersion,
				Scheme:          config.SchemeUTXO,
				Network:         config.CanonicalNet,
			},
		},
		Extensions: []string{},
		SignerNamespaces: map[string][]string{
			"bip122:*": {},
		},
	}
}
