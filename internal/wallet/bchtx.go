package wallet

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/nexpay/bchfacilitator/internal/config"
)

// SpendableUTXO is one of the facilitator's own confirmed outputs, together
// with the data needed to sign it.
type SpendableUTXO struct {
	TxID  string
	Vout  uint32
	Value int64
}

// BuildParams describes a single-recipient BCH payout plus change back to
// the facilitator's own address.
type BuildParams struct {
	UTXOs         []SpendableUTXO
	DestAddress   string
	DestAmountSat int64
	ChangeAddress string
	NetParams     *chaincfg.Params
}

// BuiltTx is an unsigned transaction together with the data SignTx needs.
type BuiltTx struct {
	Tx         *wire.MsgTx
	UTXOs      []SpendableUTXO
	PKScript   []byte // the facilitator's own pkScript, shared by every input
	FeeSats    int64
	ChangeSats int64
}

// estimateTxBytes is a flat, non-optimizing size estimate — coin selection
// and fee estimation are explicitly out of scope for the facilitator's own
// wallet; this only needs to produce a transaction that relays.
func estimateTxBytes(numInputs, numOutputs int) int {
	return config.BCHTxOverheadBytes +
		numInputs*config.BCHP2PKHInputBytes +
		numOutputs*config.BCHP2PKHOutputBytes
}

// selectUTXOs greedily accumulates UTXOs (in the order given) until their
// sum covers amount plus a worst-case fee for the accumulated input count.
func selectUTXOs(utxos []SpendableUTXO, amount int64) ([]SpendableUTXO, int64, error) {
	var selected []SpendableUTXO
	var total int64
	for _, u := range utxos {
		selected = append(selected, u)
		total += u.Value
		fee := int64(estimateTxBytes(len(selected), 2)) * config.BCHFeeRateSatPerByte
		if total >= amount+fee {
			return selected, fee, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: have %d sat across %d utxos, need %d sat plus fee", config.ErrInsufficientFunds, total, len(utxos), amount)
}

// BuildPayout selects inputs from params.UTXOs and builds an unsigned
// transaction paying params.DestAmountSat to params.DestAddress, with any
// remainder returned to params.ChangeAddress (dropped if it is dust).
func BuildPayout(params BuildParams) (*BuiltTx, error) {
	destAddr, err := btcutil.DecodeAddress(params.DestAddress, params.NetParams)
	if err != nil {
		return nil, fmt.Errorf("decode destination address %q: %w", params.DestAddress, err)
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return nil, fmt.Errorf("create destination script: %w", err)
	}
	changeScript, err := PKScriptFromAddress(params.ChangeAddress, params.NetParams)
	if err != nil {
		return nil, fmt.Errorf("create change script: %w", err)
	}

	selected, fee, err := selectUTXOs(params.UTXOs, params.DestAmountSat)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, u := range selected {
		total += u.Value
	}
	change := total - params.DestAmountSat - fee

	msgTx := wire.NewMsgTx(wire.TxVersion)
	for _, u := range selected {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("parse utxo txid %q: %w", u.TxID, err)
		}
		txIn := wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil)
		txIn.Sequence = wire.MaxTxInSequenceNum
		msgTx.AddTxIn(txIn)
	}

	msgTx.AddTxOut(wire.NewTxOut(params.DestAmountSat, destScript))
	if change >= config.BCHDustThresholdSats {
		msgTx.AddTxOut(wire.NewTxOut(change, changeScript))
	} else if change > 0 {
		// Below dust: fold it into the fee rather than create an
		// unspendable output.
		fee += change
		change = 0
	}

	slog.Info("bch payout built", "inputCount", len(selected), "destAmountSat", params.DestAmountSat, "feeSats", fee, "changeSats", change)

	return &BuiltTx{Tx: msgTx, UTXOs: selected, PKScript: changeScript, FeeSats: fee, ChangeSats: change}, nil
}

// sighashForkIDType is SIGHASH_ALL with the BCH replay-protection bit set.
// BCH's forkid sighash preimage is the BIP-143 algorithm; the fork id itself
// is 0, so only the low byte of the hash type differs from legacy Bitcoin.
const sighashForkIDType = txscript.SigHashAll | config.BCHSighashForkID

// SignTx signs every input of built with privKey using the BIP-143-style
// (SIGHASH_FORKID) preimage algorithm BCH requires for replay protection.
// The private key is zeroed once signing completes.
func SignTx(built *BuiltTx, privKey *btcec.PrivateKey) error {
	defer privKey.Zero()

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for _, u := range built.UTXOs {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return fmt.Errorf("parse utxo txid %q: %w", u.TxID, err)
		}
		prevOutFetcher.AddPrevOut(wire.OutPoint{Hash: *hash, Index: u.Vout}, &wire.TxOut{Value: u.Value, PkScript: built.PKScript})
	}
	sigHashes := txscript.NewTxSigHashes(built.Tx, prevOutFetcher)

	for i, u := range built.UTXOs {
		// RawTxInWitnessSignature computes the BIP-143 preimage and signs
		// it; BCH adopted this exact preimage for SIGHASH_FORKID, so it
		// applies unchanged to BCH's legacy (non-segwit) inputs.
		sig, err := txscript.RawTxInWitnessSignature(built.Tx, sigHashes, i, u.Value, built.PKScript, sighashForkIDType, privKey)
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}

		sigScript, err := txscript.NewScriptBuilder().
			AddData(sig).
			AddData(privKey.PubKey().SerializeCompressed()).
			Script()
		if err != nil {
			return fmt.Errorf("build sigScript for input %d: %w", i, err)
		}
		built.Tx.TxIn[i].SignatureScript = sigScript
	}

	return nil
}

// SerializeTx serializes a signed transaction to hex for broadcast.
func SerializeTx(msgTx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := msgTx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// PKScriptFromAddress reconstructs the pkScript for an address; Esplora
// UTXO endpoints don't return scriptPubKey directly.
func PKScriptFromAddress(address string, netParams *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(address, netParams)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	pkScript, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, fmt.Errorf("create pkScript for %q: %w", address, err)
	}
	return pkScript, nil
}
