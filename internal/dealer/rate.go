package dealer

import (
	"lnbank/internal/ledger"

	"github.com/shopspring/decimal"
)

// The bank's 0.5% margin on every quote: a haircut applied when quoting a
// BTC->fiat rate directly, or folded into the divisor when quoting the
// fiat->BTC inverse.
var (
	sellBTCSpread = decimal.NewFromFloat(0.995)
	buyBTCSpread  = decimal.NewFromFloat(1.005)
)

// getRate derives an exchange rate for a from->to conversion from the
// ladder for conv's symbol, looking up the book side conv.Side selects.
// Exactly one of amount or value should be non-nil: amount is expressed in
// the From currency, value in the Fiat currency. Returns false when the
// symbol has no ladder yet or the requested size exceeds the book's
// quoted depth.
func getRate(ladder quoteLadder, conv ledger.ConversionInfo, amount, value *decimal.Decimal) (decimal.Decimal, bool) {
	if amount == nil && value == nil {
		return decimal.Decimal{}, false
	}

	side := ladder.ask
	if conv.Side == ledger.Bid {
		side = ladder.bid
	}
	if len(side) == 0 {
		return decimal.Decimal{}, false
	}

	var resolvedValue decimal.Decimal
	if value != nil {
		resolvedValue = value.RoundCeil(0)
	} else {
		bestPrice := decimal.NewFromInt(1)
		if conv.From != conv.Fiat {
			top, ok := topOfBook(side)
			if !ok {
				return decimal.Decimal{}, false
			}
			bestPrice = top
		}
		resolvedValue = roundAwayFromZero(amount.Mul(bestPrice))
	}

	lookupQty := resolvedValue.IntPart()
	price, ok := bestBucket(side, lookupQty)
	if !ok {
		return decimal.Decimal{}, false
	}

	if conv.From == ledger.BTC {
		return price.Mul(sellBTCSpread), true
	}
	return decimal.NewFromInt(1).DivRound(price.Mul(buyBTCSpread), ledger.RateDP), true
}

// roundAwayFromZero rounds d to zero decimal places, always away from zero
// (any fractional part raises the magnitude), matching the reference engine's value-normalization before a
// bucket lookup.
func roundAwayFromZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() >= 0 {
		return d.RoundCeil(0)
	}
	return d.RoundFloor(0)
}
