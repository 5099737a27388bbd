package dealer

import (
	"context"

	"lnbank/internal/ledger"
	"lnbank/internal/messages"
	"lnbank/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// calcNumContractsForValue converts a fiat exposure value into the number
// of 1-unit contracts needed to hedge it, rounding away from zero above
// zero and toward zero at or below it, so a fractional contract is kept on
// a positive value and dropped on a negative one.
func calcNumContractsForValue(value decimal.Decimal) decimal.Decimal {
	if value.Sign() > 0 {
		return value.RoundCeil(0)
	}
	return value.Truncate(0)
}

// CheckRisk compares the bank's required hedge (derived from its
// per-currency exposure) against the position currently held on the
// venue, placing an order through orderPlacer when the drift exceeds the
// currency's configured risk tolerance.
func (e *Engine) CheckRisk(ctx context.Context, bankState messages.DealerBankStateUpdate) {
	e.mu.Lock()
	e.lastBankState = &bankState
	e.mu.Unlock()

	for currencyCode, exposure := range bankState.ExposureByCurrency {
		currency, err := ledger.ParseCurrency(currencyCode)
		if err != nil || currency == ledger.BTC {
			continue
		}

		symbol, err := currency.Symbol()
		if err != nil {
			continue
		}

		requiredContracts := calcNumContractsForValue(exposure).Neg()

		currentlyHeld := decimal.Zero
		if pos, ok := e.venueClient.Position(symbol); ok {
			currentlyHeld = pos
		}

		delta := requiredContracts.Sub(currentlyHeld)

		tolerance, ok := e.cfg.RiskTolerances[currency]
		if !ok {
			continue
		}
		if delta.Abs().LessThan(decimal.NewFromInt(tolerance)) {
			continue
		}

		// Negative delta means the bank is short of its required hedge and
		// needs to sell more (Ask); positive means it needs to buy more (Bid).
		side := ledger.Ask
		if delta.Sign() > 0 {
			side = ledger.Bid
		}

		if e.orderPlacer == nil {
			logger.Warn("dealer: risk out of tolerance but no order placer configured",
				zap.String("symbol", symbol), zap.String("delta", delta.String()))
			continue
		}

		quantity := delta.Abs().IntPart()
		if err := e.orderPlacer.PlaceOrder(ctx, symbol, side, quantity); err != nil {
			logger.Error("dealer: failed to place hedging order",
				zap.String("symbol", symbol), zap.Int64("quantity", quantity), zap.Error(err))
		}
	}
}
