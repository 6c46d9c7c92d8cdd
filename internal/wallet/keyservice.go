package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/nexpay/bchfacilitator/internal/config"
)

// KeyService derives the facilitator's BCH signing key on demand from the
// mnemonic file. The mnemonic is read fresh each time rather than cached,
// to minimize how long the seed spends resident in memory.
type KeyService struct {
	mnemonicFilePath string
	network          string
}

// NewKeyService creates a key derivation service.
func NewKeyService(mnemonicFilePath, network string) *KeyService {
	slog.Info("key service created", "network", network, "mnemonicFileConfigured", mnemonicFilePath != "")
	return &KeyService{mnemonicFilePath: mnemonicFilePath, network: network}
}

// DeriveBCHPrivateKey derives the facilitator's private key at index.
// The caller MUST zero the returned key after use.
func (ks *KeyService) DeriveBCHPrivateKey(ctx context.Context, index uint32) (*btcec.PrivateKey, error) {
	if ks.mnemonicFilePath == "" {
		return nil, config.ErrMnemonicFileNotSet
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before key derivation: %w", err)
	}

	mnemonic, err := readMnemonicFromFile(ks.mnemonicFilePath)
	if err != nil {
		return nil, fmt.Errorf("read mnemonic: %w", err)
	}
	seed, err := mnemonicToSeed(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("mnemonic to seed: %w", err)
	}

	net := NetworkParams(ks.network)
	masterKey, err := deriveMasterKey(seed, net)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	privKey, err := DeriveBCHPrivateKey(masterKey, index, net)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %s", config.ErrKeyDerivation, index, err)
	}

	slog.Debug("BCH private key derived", "index", index)
	return privKey, nil
}

// Address returns the facilitator's address at index, without exposing the key.
func (ks *KeyService) Address(ctx context.Context, index uint32) (string, error) {
	privKey, err := ks.DeriveBCHPrivateKey(ctx, index)
	if err != nil {
		return "", err
	}
	defer privKey.Zero()
	return addressFromPrivKey(privKey, NetworkParams(ks.network))
}
