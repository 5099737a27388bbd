// Package onchain generates cold-storage sweep addresses and assembles
// withdrawal transactions for moving excess venue/hot-wallet BTC balance
// into the insurance fund's cold storage.
package onchain

import (
	"errors"
	"fmt"

	"lnbank/pkg/logger"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"
)

// ColdAddress is a freshly derived insurance-fund sweep destination.
type ColdAddress struct {
	PrivateKey string // WIF format; the operator moves this to offline storage
	PublicKey  []byte // compressed public key (33 bytes)
	Address    string // bc1q.../tb1q... SegWit address
	Network    string
}

func networkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	default:
		return nil, fmt.Errorf("onchain: invalid network %q, must be mainnet or testnet", network)
	}
}

// GenerateColdAddress derives a new SegWit (P2WPKH) address to serve as an
// insurance-fund cold-storage sweep destination. The returned private key
// never touches the hot path — callers persist it to an offline keystore
// and discard it from memory immediately after.
func GenerateColdAddress(network string) (*ColdAddress, error) {
	params, err := networkParams(network)
	if err != nil {
		return nil, err
	}

	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		logger.Error("onchain: failed to generate cold address private key", zap.Error(err))
		return nil, err
	}
	publicKey := privKey.PubKey()

	pubKeyHash := btcutil.Hash160(publicKey.SerializeCompressed())
	address, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
	if err != nil {
		logger.Error("onchain: failed to derive cold address", zap.Error(err))
		return nil, err
	}

	wif, err := btcutil.NewWIF(privKey, params, true)
	if err != nil {
		return nil, err
	}

	logger.Info("onchain: generated cold storage address",
		zap.String("address", address.EncodeAddress()),
		zap.String("network", network))

	return &ColdAddress{
		PrivateKey: wif.String(),
		PublicKey:  publicKey.SerializeCompressed(),
		Address:    address.EncodeAddress(),
		Network:    network,
	}, nil
}

// ValidateAddress checks that address is a well-formed, network-matching
// Bitcoin address, used before accepting it as a sweep destination.
func ValidateAddress(address string, network string) (bool, error) {
	params, err := networkParams(network)
	if err != nil {
		return false, err
	}

	btcAddress, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		logger.Warn("onchain: invalid address", zap.String("address", address), zap.Error(err))
		return false, nil
	}
	if !btcAddress.IsForNet(params) {
		logger.Warn("onchain: address network mismatch",
			zap.String("address", address), zap.String("expected_network", network))
		return false, nil
	}
	return true, nil
}

var ErrInsufficientFunds = errors.New("onchain: insufficient confirmed funds for sweep")

// dustLimit is the smallest change output worth creating; anything below it
// gets folded into the transaction fee instead.
const dustLimit = btcutil.Amount(546)

// UTXO is a spendable wallet output, as reported by the node's wallet
// balance/list-unspent RPCs.
type UTXO struct {
	TxHash    string
	Vout      uint32
	Value     int64
	Confirmed bool
}

// estimatedVSize roughly approximates a P2WPKH transaction's virtual size
// in vbytes, enough to size a fee without needing to build the transaction
// first.
func estimatedVSize(numInputs, numOutputs int) int64 {
	const overhead = 11
	const inputVSize = 68
	const outputVSize = 31
	return overhead + int64(numInputs)*inputVSize + int64(numOutputs)*outputVSize
}

// selectCoins greedily accumulates confirmed UTXOs until their total covers
// amount plus the estimated network fee at feeRateSatVb, folding any
// resulting change below dustLimit into the fee rather than creating a
// sub-dust output.
func selectCoins(utxos []UTXO, amount btcutil.Amount, feeRateSatVb int64) (selected []UTXO, totalInput btcutil.Amount, change btcutil.Amount, err error) {
	for _, u := range utxos {
		if !u.Confirmed {
			continue
		}
		selected = append(selected, u)
		totalInput += btcutil.Amount(u.Value)

		fee := btcutil.Amount(feeRateSatVb * estimatedVSize(len(selected), 2))
		if totalInput >= amount+fee {
			change = totalInput - amount - fee
			if change < dustLimit {
				change = 0
			}
			return selected, totalInput, change, nil
		}
	}
	return nil, 0, 0, fmt.Errorf("%w: need %d sats, have %d confirmed across %d inputs",
		ErrInsufficientFunds, amount, totalInput, len(selected))
}

// SweepTx assembles (but does not sign or broadcast) a transaction spending
// utxos to destAddress, returning any change to changeAddress. The caller
// is responsible for signing with the cold vault's key and broadcasting
// through the node.
func SweepTx(network string, utxos []UTXO, destAddress, changeAddress string, amountSats int64, feeRateSatVb int64) (*wire.MsgTx, []UTXO, error) {
	if amountSats <= 0 {
		return nil, nil, fmt.Errorf("onchain: sweep amount must be positive, got %d", amountSats)
	}
	if feeRateSatVb <= 0 {
		return nil, nil, fmt.Errorf("onchain: fee rate must be positive, got %d", feeRateSatVb)
	}

	params, err := networkParams(network)
	if err != nil {
		return nil, nil, err
	}

	destAddr, err := btcutil.DecodeAddress(destAddress, params)
	if err != nil {
		return nil, nil, fmt.Errorf("onchain: invalid destination address: %w", err)
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("onchain: failed to build destination script: %w", err)
	}

	selected, _, change, err := selectCoins(utxos, btcutil.Amount(amountSats), feeRateSatVb)
	if err != nil {
		return nil, nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, u := range selected {
		hash, err := chainhash.NewHashFromStr(u.TxHash)
		if err != nil {
			return nil, nil, fmt.Errorf("onchain: invalid utxo txid %q: %w", u.TxHash, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(amountSats, destScript))

	if change > 0 {
		changeAddr, err := btcutil.DecodeAddress(changeAddress, params)
		if err != nil {
			return nil, nil, fmt.Errorf("onchain: invalid change address: %w", err)
		}
		changeScript, err := txscript.PayToAddrScript(changeAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("onchain: failed to build change script: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	}

	logger.Info("onchain: assembled sweep transaction",
		zap.Int("inputs", len(selected)),
		zap.Int64("amount_sats", amountSats),
		zap.String("change", change.String()),
	)
	return tx, selected, nil
}
