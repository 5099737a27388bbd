package bank

import (
	"lnbank/internal/ledger"

	"github.com/shopspring/decimal"
)

// FlatFee returns bps basis points of amountSat, in satoshis. Used for
// both the internal-transfer fee (internal_tx_fee) and the external
// transaction's bank revenue cut (external_tx_fee) — the two policy knobs
// share the same shape, distinguished only by which bps value is passed.
func FlatFee(amountSat int64, bps int64) int64 {
	if bps <= 0 {
		return 0
	}
	return amountSat * bps / 10_000
}

// minExternalFeeSat is the floor on the Lightning network fee reserve held
// back from an external payment, so a tiny payment still carries a
// meaningful margin against routing fees.
const minExternalFeeSat = 10

// ExternalFeeCap bounds the Lightning network fee margin reserved for an
// outbound external payment of amountSat satoshis: marginBps basis points
// of the payment, floored at minExternalFeeSat.
func ExternalFeeCap(amountSat int64, marginBps int64) int64 {
	fee := amountSat * marginBps / 10_000
	if fee < minExternalFeeSat {
		return minExternalFeeSat
	}
	return fee
}

// satsToBTC converts a satoshi amount to the whole-BTC decimal
// denomination internal/ledger.Account balances are carried in.
func satsToBTC(sats int64) decimal.Decimal {
	return decimal.NewFromInt(sats).DivRound(decimal.NewFromInt(ledger.SatsPerBTC), ledger.RateDP)
}
