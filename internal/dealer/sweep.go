package dealer

import (
	"context"

	"lnbank/internal/messages"
	"lnbank/pkg/logger"

	"go.uber.org/zap"
)

// SweepExcessFunds requests a withdrawal invoice from the Bank when the
// venue's idle SAT cash balance exceeds the configured threshold, so it
// can be swept into cold storage rather than sitting as counterparty risk
// on the hedging venue.
func (e *Engine) SweepExcessFunds(ctx context.Context) {
	balance, ok := e.venueClient.Balance("SAT")
	if !ok {
		return
	}
	if !balance.GreaterThan(e.cfg.ExcessSatThreshold) {
		return
	}

	amountSat := balance.IntPart()
	logger.Info("dealer: sweeping excess venue funds", zap.Int64("amount_sat", amountSat))

	e.publish(messages.DealerCreateInvoiceRequest{
		AmountSat: amountSat,
		Memo:      "dealer excess funds sweep",
	})
}
