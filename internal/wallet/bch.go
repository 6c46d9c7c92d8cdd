package wallet

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/nexpay/bchfacilitator/internal/config"
)

// NetworkParams returns the chaincfg.Params for the given network mode.
func NetworkParams(network string) *chaincfg.Params {
	switch network {
	case "testnet":
		return &chaincfg.TestNet3Params
	default:
		return &chaincfg.MainNetParams
	}
}

// validateMnemonic validates a BIP-39 mnemonic phrase (must be 24 words).
func validateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return fmt.Errorf("validate mnemonic: %w", ErrInvalidMnemonic)
	}

	words := strings.Fields(mnemonic)
	if len(words) != 24 {
		return fmt.Errorf("expected 24-word mnemonic, got %d words: %w", len(words), ErrInvalidMnemonic)
	}

	slog.Debug("mnemonic validated", "wordCount", len(words))
	return nil
}

// mnemonicToSeed converts a BIP-39 mnemonic to a 64-byte seed (empty passphrase).
func mnemonicToSeed(mnemonic string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("mnemonic to seed: %w", err)
	}

	slog.Debug("seed derived from mnemonic", "seedLen", len(seed))
	return seed, nil
}

// readMnemonicFromFile reads the facilitator's mnemonic from a file, trims
// whitespace, and validates it.
func readMnemonicFromFile(path string) (string, error) {
	slog.Info("reading mnemonic from file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read mnemonic file %q: %w", path, err)
	}

	mnemonic := strings.TrimSpace(string(data))
	if mnemonic == "" {
		return "", fmt.Errorf("mnemonic file %q is empty: %w", path, ErrInvalidMnemonic)
	}

	if err := validateMnemonic(mnemonic); err != nil {
		return "", fmt.Errorf("mnemonic file %q: %w", path, err)
	}

	slog.Info("mnemonic read and validated from file")
	return mnemonic, nil
}

// deriveMasterKey derives the BIP-32 master extended key the facilitator's
// single BCH signing key descends from.
func deriveMasterKey(seed []byte, net *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	masterKey, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	slog.Debug("master key derived", "network", net.Name)
	return masterKey, nil
}

// DeriveBCHAddress derives a legacy P2PKH address at the given index.
// Path: m/44'/145'/0'/0/N (mainnet) or m/44'/1'/0'/0/N (testnet) per BIP-44/SLIP-44.
// BCH has no segwit, so the address form is base58check P2PKH, unlike the
// bech32 P2WPKH form used on BTC.
func DeriveBCHAddress(masterKey *hdkeychain.ExtendedKey, index uint32, net *chaincfg.Params) (string, error) {
	privKey, err := deriveBCHPrivKeyAtIndex(masterKey, index, net)
	if err != nil {
		return "", err
	}
	defer privKey.Zero()

	return addressFromPrivKey(privKey, net)
}

// DeriveBCHPrivateKey derives the private key at the given index without
// encoding its address. Callers must zero the key after use.
func DeriveBCHPrivateKey(masterKey *hdkeychain.ExtendedKey, index uint32, net *chaincfg.Params) (*btcec.PrivateKey, error) {
	return deriveBCHPrivKeyAtIndex(masterKey, index, net)
}

func deriveBCHPrivKeyAtIndex(masterKey *hdkeychain.ExtendedKey, index uint32, net *chaincfg.Params) (*btcec.PrivateKey, error) {
	coinType := uint32(config.BCHCoinType)
	if net == &chaincfg.TestNet3Params {
		coinType = uint32(config.BCHTestCoinType)
	}

	// m/44'
	purpose, err := masterKey.Derive(hdkeychain.HardenedKeyStart + uint32(config.BIP44Purpose))
	if err != nil {
		return nil, fmt.Errorf("derive BCH purpose key: %w", err)
	}

	// m/44'/coin'
	coin, err := purpose.Derive(hdkeychain.HardenedKeyStart + coinType)
	if err != nil {
		return nil, fmt.Errorf("derive BCH coin key: %w", err)
	}

	// m/44'/coin'/0'
	account, err := coin.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, fmt.Errorf("derive BCH account key: %w", err)
	}

	// m/44'/coin'/0'/0
	change, err := account.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("derive BCH change key: %w", err)
	}

	// m/44'/coin'/0'/0/N
	child, err := change.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("derive BCH child key at index %d: %w", index, err)
	}

	privKey, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract BCH private key at index %d: %w", index, err)
	}

	return privKey, nil
}

// addressFromPrivKey encodes the legacy base58check P2PKH address for a private key.
func addressFromPrivKey(privKey *btcec.PrivateKey, net *chaincfg.Params) (string, error) {
	pubKeyHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, net)
	if err != nil {
		return "", fmt.Errorf("create BCH P2PKH address: %w", err)
	}

	slog.Debug("derived BCH address",
		"address", addr.EncodeAddress(),
		"network", net.Name,
	)

	return addr.EncodeAddress(), nil
}
