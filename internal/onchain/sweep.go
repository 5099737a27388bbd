package onchain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"lnbank/pkg/logger"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"
)

// UTXO is one spendable output held by the hot wallet, as reported by the
// node's UTXO source.
type UTXO struct {
	TxHash    string
	Vout      uint32
	Value     int64
	Confirmed bool
}

// dustLimit is the minimum output value considered worth creating, mirrors
// LND's own dust threshold.
const dustLimit = 546

// selectCoins picks confirmed UTXOs covering amount plus the fee implied by
// feeRate (sat/vbyte), accumulating until the target is met. Any leftover
// below dustLimit is folded into the fee rather than returned as change.
func selectCoins(utxos []UTXO, amount btcutil.Amount, feeRate int64) ([]UTXO, btcutil.Amount, btcutil.Amount, error) {
	var selected []UTXO
	var totalInput btcutil.Amount
	const numOutputs = 2 // recipient + change, assumed until proven otherwise

	for _, u := range utxos {
		if !u.Confirmed {
			continue
		}

		selected = append(selected, u)
		totalInput += btcutil.Amount(u.Value)

		txSize := int64((len(selected) * 68) + (numOutputs * 31) + 11)
		fee := btcutil.Amount(txSize * feeRate)
		totalNeeded := amount + fee

		if totalInput >= totalNeeded {
			change := totalInput - totalNeeded
			if change < dustLimit {
				change = 0
			}
			return selected, totalInput, change, nil
		}
	}

	return nil, 0, 0, fmt.Errorf("%w: have %d sats, need %d sats", ErrInsufficientFunds, totalInput, amount)
}

// SweepTx assembles an unsigned withdrawal transaction moving amount (in
// sats) from the hot wallet's UTXO set to a cold-storage address, with any
// leftover returned to changeAddress.
func SweepTx(network string, utxos []UTXO, coldAddress string, changeAddress string, amount btcutil.Amount, feeRateSatPerVByte int64) (*wire.MsgTx, []UTXO, error) {
	params, err := networkParams(network)
	if err != nil {
		return nil, nil, err
	}

	valid, err := ValidateAddress(coldAddress, network)
	if err != nil {
		return nil, nil, err
	}
	if !valid {
		return nil, nil, fmt.Errorf("onchain: invalid cold storage address %q", coldAddress)
	}

	if amount <= 0 {
		return nil, nil, fmt.Errorf("onchain: sweep amount must be positive, got %d", amount)
	}
	if feeRateSatPerVByte <= 0 {
		return nil, nil, fmt.Errorf("onchain: fee rate must be positive, got %d", feeRateSatPerVByte)
	}

	selected, _, change, err := selectCoins(utxos, amount, feeRateSatPerVByte)
	if err != nil {
		return nil, nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)

	for _, u := range selected {
		txHash, err := chainhash.NewHashFromStr(u.TxHash)
		if err != nil {
			return nil, nil, fmt.Errorf("onchain: invalid utxo tx hash %q: %w", u.TxHash, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHash, u.Vout), nil, nil))
	}

	toAddr, err := btcutil.DecodeAddress(coldAddress, params)
	if err != nil {
		return nil, nil, fmt.Errorf("onchain: failed to decode cold storage address: %w", err)
	}
	coldScript, err := txscript.PayToAddrScript(toAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("onchain: failed to build cold storage output script: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(int64(amount), coldScript))

	if change > dustLimit {
		changeAddr, err := btcutil.DecodeAddress(changeAddress, params)
		if err != nil {
			return nil, nil, fmt.Errorf("onchain: failed to decode change address: %w", err)
		}
		changeScript, err := txscript.PayToAddrScript(changeAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("onchain: failed to build change output script: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	}

	logger.Info("onchain: assembled sweep transaction",
		zap.Int("inputs", len(selected)),
		zap.Int64("amount_sats", int64(amount)),
		zap.Int64("change_sats", int64(change)))

	return tx, selected, nil
}

// SignSweepTx attaches P2WPKH witnesses to every input of tx, using wif as
// the single signing key (the hot wallet holds one key for all its UTXOs).
func SignSweepTx(network string, tx *wire.MsgTx, utxos []UTXO, wif string, publicKey []byte) (*wire.MsgTx, error) {
	params, err := networkParams(network)
	if err != nil {
		return nil, err
	}

	privKeyWif, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("onchain: failed to decode signing key: %w", err)
	}
	privKey := privKeyWif.PrivKey

	witnessPubKeyHash := btcutil.Hash160(publicKey)
	witnessAddr, err := btcutil.NewAddressWitnessPubKeyHash(witnessPubKeyHash, params)
	if err != nil {
		return nil, fmt.Errorf("onchain: failed to derive witness address: %w", err)
	}
	witnessScript, err := txscript.PayToAddrScript(witnessAddr)
	if err != nil {
		return nil, fmt.Errorf("onchain: failed to build witness script: %w", err)
	}

	sigHashes := txscript.NewTxSigHashes(tx, nil)
	for i, txIn := range tx.TxIn {
		utxo := utxos[i]
		signature, err := txscript.RawTxInWitnessSignature(
			tx, sigHashes, i, utxo.Value, witnessScript, txscript.SigHashAll, privKey)
		if err != nil {
			return nil, fmt.Errorf("onchain: failed to sign input %d: %w", i, err)
		}
		txIn.Witness = wire.TxWitness{signature, publicKey}
	}

	return tx, nil
}

// SerializeTx returns the raw hex encoding of a signed transaction, ready
// for broadcast via the node's on-chain connector.
func SerializeTx(signedTx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := signedTx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("onchain: failed to serialize sweep transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
