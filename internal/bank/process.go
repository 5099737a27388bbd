package bank

import (
	"context"

	"lnbank/internal/messages"
)

// ProcessMessage dispatches one inbound message to its handler. Messages
// this engine doesn't own are ignored, mirroring the reference engine's
// catch-all match arm — each of Bank and Dealer only acts on the variants
// addressed to it, even though both read the same bus.
func (e *Engine) ProcessMessage(ctx context.Context, msg messages.Message) {
	switch m := messages.Deref(msg).(type) {
	case messages.ApiInvoiceRequest:
		e.handleInvoiceRequest(ctx, m)
	case messages.DealerInvoiceRate:
		e.handleDealerInvoiceRate(ctx, m)
	case messages.DepositSettled:
		e.handleDeposit(ctx, m)
	case messages.ApiPaymentRequest:
		e.handlePaymentRequest(ctx, m)
	case messages.ApiSwapRequest:
		e.handleSwapRequest(m)
	case messages.ApiSwapResponse:
		e.handleSwapResponse(ctx, m)
	case messages.ApiGetBalances:
		e.handleGetBalances(m)
	case messages.DealerHealth:
		e.handleDealerHealth(m)
	case messages.DealerCreateInvoiceRequest:
		e.handleDealerCreateInvoiceRequest(ctx, m)
	}
}
