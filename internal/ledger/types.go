// Package ledger implements the bank's double-entry account graph: currencies,
// fixed-point money and rates, accounts, and the single in-memory Ledger that
// the Bank Engine owns exclusively.
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateDP is the number of fractional decimal digits carried by exchange rates.
const RateDP = 16

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

// Currency identifies one of the bank's supported units of account.
type Currency string

const (
	BTC Currency = "BTC"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	KKP Currency = "KKP"
)

func (c Currency) String() string { return string(c) }

// ParseCurrency parses a currency code case-insensitively.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(s) {
	case "BTC":
		return BTC, nil
	case "USD":
		return USD, nil
	case "EUR":
		return EUR, nil
	case "GBP":
		return GBP, nil
	case "KKP":
		return KKP, nil
	default:
		return "", fmt.Errorf("unknown currency %q", s)
	}
}

// Denom identifies the smallest indivisible unit of a currency and how many
// of them make up one whole unit.
type Denom struct {
	Name      string
	UnitsPerWhole int64
}

// DenomOf returns the canonical smallest-unit denomination for a currency.
func DenomOf(c Currency) Denom {
	switch c {
	case BTC:
		return Denom{Name: "sat", UnitsPerWhole: SatsPerBTC}
	case USD, EUR:
		return Denom{Name: "milli-cent", UnitsPerWhole: 100_000}
	case GBP:
		return Denom{Name: "milli-pence", UnitsPerWhole: 100_000}
	case KKP:
		return Denom{Name: "karma", UnitsPerWhole: 1}
	default:
		return Denom{Name: "unit", UnitsPerWhole: 1}
	}
}

// Symbol returns the inverse-perpetual instrument that prices this currency
// against BTC on the hedging venue. BTC and KKP have no corresponding
// tradable symbol.
func (c Currency) Symbol() (string, error) {
	switch c {
	case USD:
		return "BTCUSD.PERP", nil
	case EUR:
		return "BTCEUR.PERP", nil
	case GBP:
		return "BTCGBP.PERP", nil
	default:
		return "", fmt.Errorf("currency %s has no hedging symbol", c)
	}
}

// AccountType distinguishes the bank's own ledger accounts from the
// counterparty side of the world (Lightning network, hedging venue).
type AccountType string

const (
	Internal AccountType = "Internal"
	External AccountType = "External"
)

// AccountClass distinguishes spendable cash balances from fee accrual.
type AccountClass string

const (
	Cash AccountClass = "Cash"
	Fees AccountClass = "Fee"
)

// TxType records whether a transaction crossed the Internal/External
// boundary.
type TxType string

const (
	TxInternal TxType = "Internal"
	TxExternal TxType = "External"
)

// Zero is the canonical zero-value decimal used throughout the ledger so
// every balance starts from an identical, unambiguous representation.
var Zero = decimal.Zero
