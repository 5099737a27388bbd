package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a currency-tagged fixed-point amount. All ledger arithmetic goes
// through decimal.Decimal; float64 never appears on this path.
type Money struct {
	Currency Currency
	Amount   decimal.Decimal
}

// NewMoney constructs a Money value.
func NewMoney(currency Currency, amount decimal.Decimal) Money {
	return Money{Currency: currency, Amount: amount}
}

// Add returns m+other. Panics if currencies differ, mirroring the ledger's
// refusal to silently mix units.
func (m Money) Add(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("ledger: cannot add %s to %s", other.Currency, m.Currency))
	}
	return Money{Currency: m.Currency, Amount: m.Amount.Add(other.Amount)}
}

// Sub returns m-other. Panics if currencies differ.
func (m Money) Sub(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("ledger: cannot subtract %s from %s", other.Currency, m.Currency))
	}
	return Money{Currency: m.Currency, Amount: m.Amount.Sub(other.Amount)}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Currency: m.Currency, Amount: m.Amount.Neg()}
}

// IsNegative reports whether the amount is strictly below zero.
func (m Money) IsNegative() bool {
	return m.Amount.Sign() < 0
}

// Rate is a fixed-point exchange rate between two currencies, carried at
// RateDP digits of precision, e.g. BTC->USD sats-per-dollar equivalent.
type Rate struct {
	From  Currency
	To    Currency
	Value decimal.Decimal
}

// NewRate constructs a Rate rounded to RateDP places.
func NewRate(from, to Currency, value decimal.Decimal) Rate {
	return Rate{From: from, To: to, Value: value.Round(RateDP)}
}

// Inverse returns the reciprocal rate with From/To swapped, truncated
// toward zero to RateDP places.
func (r Rate) Inverse() Rate {
	if r.Value.IsZero() {
		return Rate{From: r.To, To: r.From, Value: decimal.Zero}
	}
	inverse, _ := decimal.NewFromInt(1).QuoRem(r.Value, RateDP)
	return Rate{From: r.To, To: r.From, Value: inverse}
}

// Exchange converts m into the target currency using this rate, flipping to
// the inverse rate automatically when the rate's orientation doesn't match
// the requested conversion direction, and always rounding the result toward
// zero (truncation), never away from it — the bank never manufactures value
// on a currency conversion.
func (r Rate) Exchange(m Money, target Currency) (Money, error) {
	if m.Currency == target {
		return m, nil
	}
	rate := r
	switch {
	case r.From == m.Currency && r.To == target:
		// already oriented correctly
	case r.From == target && r.To == m.Currency:
		rate = r.Inverse()
	default:
		return Money{}, fmt.Errorf("ledger: rate %s/%s cannot convert %s to %s", r.From, r.To, m.Currency, target)
	}
	converted := m.Amount.Mul(rate.Value).Truncate(RateDP)
	return Money{Currency: target, Amount: converted}, nil
}
