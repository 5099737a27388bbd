package dealer

import (
	"context"
	"fmt"

	"lnbank/internal/ledger"
	"lnbank/internal/messages"

	"github.com/shopspring/decimal"
)

// ProcessMessage dispatches one inbound message to the matching handler,
// publishing zero or more responses through e.publish. Unrecognized
// message types are ignored, mirroring the reference engine's catch-all
// match arm.
func (e *Engine) ProcessMessage(msg messages.Message) {
	switch m := messages.Deref(msg).(type) {
	case messages.ApiSwapRequest:
		e.handleSwapRequest(m)
	case messages.ApiQuoteRequest:
		e.handleQuoteRequest(m)
	case messages.ApiAvailableCurrenciesRequest:
		e.handleAvailableCurrenciesRequest()
	case messages.DealerInvoiceRequest:
		e.handleInvoiceRequest(m)
	case messages.DealerBankStateUpdate:
		e.CheckRisk(context.Background(), m)
	}
}

func (e *Engine) handleSwapRequest(req messages.ApiSwapRequest) {
	e.mu.Lock()
	e.gcExpiredQuotes(nowMicros())
	e.mu.Unlock()

	resp := messages.ApiSwapResponse{UID: req.UID, Success: true}

	if req.QuoteID == nil {
		conv := ledger.NewConversionInfo(ledger.Currency(req.From), ledger.Currency(req.To))
		rate, ok := e.rateFor(conv, &req.Amount, nil)
		if !ok {
			resp.Success = false
			resp.Error = "currency not available"
		} else {
			resp.Rate = rate
		}
	} else {
		e.mu.Lock()
		record, found := e.guaranteedQuotes[*req.QuoteID]
		var invalid error
		if found {
			invalid = validateQuote(record, req)
			if invalid == nil {
				delete(e.guaranteedQuotes, *req.QuoteID)
			}
		}
		e.mu.Unlock()

		if !found {
			resp.Success = false
			resp.Error = "invalid or expired quote id"
		} else if invalid != nil {
			resp.Success = false
			resp.Error = "invalid quote id"
		} else {
			resp.Rate = record.rate
		}
	}

	e.publish(resp)
}

// validateQuote rejects a swap that doesn't match the quote it claims to
// redeem: a stale uid, amount, or currency pair is a sign of tampering or
// of the caller reusing a quote id it was never issued.
func validateQuote(record quoteRecord, req messages.ApiSwapRequest) error {
	if record.uid != req.UID || record.from != req.From || record.to != req.To || !record.amount.Equal(req.Amount) {
		return fmt.Errorf("dealer: quote does not match swap request")
	}
	return nil
}

func (e *Engine) handleQuoteRequest(req messages.ApiQuoteRequest) {
	conv := ledger.NewConversionInfo(ledger.Currency(req.From), ledger.Currency(req.To))
	rate, ok := e.rateFor(conv, req.Amount, req.Value)
	resp := messages.ApiQuoteResponse{UID: req.UID}

	if !ok {
		e.publish(resp)
		return
	}
	resp.Rate = rate

	if req.Guaranteed {
		now := nowMicros()
		id := nextQuoteID(now)
		amount := decimal.Zero
		if req.Amount != nil {
			amount = *req.Amount
		}
		record := quoteRecord{
			uid: req.UID, from: req.From, to: req.To,
			amount: amount, rate: rate, createdAtMicros: now,
		}
		e.mu.Lock()
		e.gcExpiredQuotes(now)
		e.guaranteedQuotes[id] = record
		e.mu.Unlock()

		resp.QuoteID = &id
		resp.ValidUntilUnixMs = int64(now/1000) + quoteTTL.Milliseconds()
	}

	e.publish(resp)
}

func (e *Engine) handleAvailableCurrenciesRequest() {
	e.publish(messages.ApiAvailableCurrenciesResponse{Currencies: e.tradableFiatCurrencies()})
}

// tradableFiatCurrencies returns every fiat currency the venue currently
// lists a BTC-quoted symbol for, plus BTC itself.
func (e *Engine) tradableFiatCurrencies() []string {
	seen := map[string]bool{}
	var currencies []string
	for symbol := range e.venueClient.TradableSymbols() {
		base, quote, ok := splitSymbol(symbol)
		if !ok || base != "BTC" {
			continue
		}
		if !seen[quote] {
			seen[quote] = true
			currencies = append(currencies, quote)
		}
	}
	return append(currencies, "BTC")
}

func (e *Engine) handleInvoiceRequest(req messages.DealerInvoiceRequest) {
	currency, err := ledger.ParseCurrency(req.Currency)
	if err != nil || currency == ledger.BTC {
		e.publish(messages.DealerInvoiceRate{UID: req.UID})
		return
	}

	conv := ledger.NewConversionInfo(ledger.BTC, currency)
	value := decimal.NewFromInt(req.AmountSat).Div(decimal.NewFromInt(ledger.SatsPerBTC))
	rate, ok := e.rateFor(conv, nil, &value)
	if !ok {
		e.publish(messages.DealerInvoiceRate{UID: req.UID})
		return
	}
	e.publish(messages.DealerInvoiceRate{UID: req.UID, Rate: &rate})
}
