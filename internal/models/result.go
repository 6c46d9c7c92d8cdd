package models

// VerifyResult is the uniform outcome of the Verification Pipeline.
type VerifyResult struct {
	Valid               bool
	InvalidReason       string
	Payer               string
	RemainingBalanceSat *int64
	LedgerEntry         *LedgerEntrySummary
}

// SettleResult is the uniform outcome of the Settlement Pipeline.
type SettleResult struct {
	Success             bool
	ErrorReason         string
	Transaction         string
	Network             string
	Payer               string
	RemainingBalanceSat *int64
}
