package models

// SupportedKind describes one scheme/network combination the facilitator
// accepts.
type SupportedKind struct {
	ProtocolVersion int    `json:"x402Version"`
	Scheme          string `json:"scheme"`
	Network         string `json:"network"`
}

// Capabilities is the static capability advertisement returned by
// listSupportedKinds.
type Capabilities struct {
	Kinds            []SupportedKind     `json:"kinds"`
	Extensions       []string            `json:"extensions"`
	SignerNamespaces map[string][]string `json:"signerNamespaces"`
}
