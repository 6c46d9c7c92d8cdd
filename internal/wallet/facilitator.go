package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nexpay/bchfacilitator/internal/chain"
	"github.com/nexpay/bchfacilitator/internal/config"
)

// ChainSource is the subset of the Chain Client the facilitator's wallet
// needs: listing its own spendable coins and broadcasting what it signs.
type ChainSource interface {
	ListUTXOs(ctx context.Context, address string) ([]chain.UTXO, error)
	Send(ctx context.Context, rawHex string) (string, error)
}

// Facilitator is the facilitator's own wallet: a single derived BCH
// address funding settlement payouts. Initialization (resolving that
// address from the mnemonic) is lazy and idempotent, guarded by initOnce,
// matching the "shared resource, idempotent init" requirement for anything
// the verify/settle pipelines touch concurrently.
type Facilitator struct {
	keys    *KeyService
	chain   ChainSource
	network string

	initOnce sync.Once
	initErr  error
	address  string
}

// NewFacilitator builds a facilitator wallet. It does not touch the
// mnemonic file or the network until first use.
func NewFacilitator(keys *KeyService, chainSource ChainSource, network string) *Facilitator {
	return &Facilitator{keys: keys, chain: chainSource, network: network}
}

// ensureInitialized resolves the facilitator's address exactly once.
func (f *Facilitator) ensureInitialized(ctx context.Context) error {
	f.initOnce.Do(func() {
		addr, err := f.keys.Address(ctx, config.WalletAddressIndex)
		if err != nil {
			f.initErr = fmt.Errorf("initialize facilitator wallet: %w", err)
			return
		}
		f.address = addr
		slog.Info("facilitator wallet initialized", "address", addr, "network", f.network)
	})
	return f.initErr
}

// Balance returns the facilitator's confirmed on-chain balance in satoshis.
func (f *Facilitator) Balance(ctx context.Context) (int64, error) {
	if err := f.ensureInitialized(ctx); err != nil {
		return 0, err
	}
	utxos, err := f.chain.ListUTXOs(ctx, f.address)
	if err != nil {
		return 0, fmt.Errorf("list facilitator utxos: %w", err)
	}
	var total int64
	for _, u := range utxos {
		total += u.Value
	}
	return total, nil
}

// Send builds, signs, and broadcasts a transaction paying amountSat to
// destAddress from the facilitator's own coins, returning the broadcast
// transaction id. It never retries — a failed broadcast surfaces directly.
func (f *Facilitator) Send(ctx context.Context, destAddress string, amountSat int64) (string, error) {
	if err := f.ensureInitialized(ctx); err != nil {
		return "", err
	}

	utxos, err := f.chain.ListUTXOs(ctx, f.address)
	if err != nil {
		return "", fmt.Errorf("list facilitator utxos: %w", err)
	}
	spendable := make([]SpendableUTXO, len(utxos))
	for i, u := range utxos {
		spendable[i] = SpendableUTXO{TxID: u.TxID, Vout: u.Vout, Value: u.Value}
	}

	net := NetworkParams(f.network)
	built, err := BuildPayout(BuildParams{
		UTXOs:         spendable,
		DestAddress:   destAddress,
		DestAmountSat: amountSat,
		ChangeAddress: f.address,
		NetParams:     net,
	})
	if err != nil {
		return "", fmt.Errorf("build payout: %w", err)
	}

	privKey, err := f.keys.DeriveBCHPrivateKey(ctx, config.WalletAddressIndex)
	if err != nil {
		return "", fmt.Errorf("derive signing key: %w", err)
	}
	if err := SignTx(built, privKey); err != nil {
		return "", fmt.Errorf("sign payout: %w", err)
	}

	rawHex, err := SerializeTx(built.Tx)
	if err != nil {
		return "", fmt.Errorf("serialize payout: %w", err)
	}

	txid, err := f.chain.Send(ctx, rawHex)
	if err != nil {
		return "", fmt.Errorf("broadcast payout: %w", err)
	}
	if txid == "" {
		return "", config.ErrBroadcastFailed
	}

	slog.Info("facilitator payout sent", "destAddress", destAddress, "amountSat", amountSat, "txid", txid)
	return txid, nil
}
