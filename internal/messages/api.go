package messages

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ApiInvoiceRequest asks the Bank Engine to mint a Lightning invoice,
// optionally earmarked to auto-swap into a target currency on settlement.
type ApiInvoiceRequest struct {
	UID                   uint64  `json:"uid"`
	AmountSat             int64   `json:"amount_sat"`
	Memo                  string  `json:"memo"`
	Currency              string  `json:"currency"`
	TargetAccountCurrency *string `json:"target_account_currency,omitempty"`
}

func (ApiInvoiceRequest) isMessage()    {}
func (ApiInvoiceRequest) Kind() string  { return "Api.InvoiceRequest" }
func (m ApiInvoiceRequest) Validate() error {
	if m.AmountSat <= 0 {
		return fmt.Errorf("messages: invoice amount must be positive")
	}
	if len(m.Memo) > 1024 {
		return fmt.Errorf("messages: memo exceeds 1024 characters")
	}
	return nil
}

// ApiInvoiceResponse carries the minted BOLT-11 payment request back to the
// caller, or an Error when the requested account or currency could not be
// resolved (PaymentRequest is empty in that case).
type ApiInvoiceResponse struct {
	UID            uint64           `json:"uid"`
	PaymentRequest string           `json:"payment_request,omitempty"`
	PaymentHash    string           `json:"payment_hash,omitempty"`
	AccountID      string           `json:"account_id,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	Error          string           `json:"error,omitempty"`
}

func (ApiInvoiceResponse) isMessage()   {}
func (ApiInvoiceResponse) Kind() string { return "Api.InvoiceResponse" }
func (m ApiInvoiceResponse) Validate() error {
	if m.Error == "" && m.PaymentRequest == "" {
		return fmt.Errorf("messages: empty payment request")
	}
	return nil
}

// ApiPaymentRequest asks the Bank Engine to pay an external (or internal,
// self-payment rejected) Lightning invoice on behalf of a user.
type ApiPaymentRequest struct {
	UID            uint64 `json:"uid"`
	PaymentRequest string `json:"payment_request"`
	MaxFeeRatio    string `json:"max_fee_ratio"`
}

func (ApiPaymentRequest) isMessage()   {}
func (ApiPaymentRequest) Kind() string { return "Api.PaymentRequest" }
func (m ApiPaymentRequest) Validate() error {
	if len(m.PaymentRequest) > 1024 {
		return fmt.Errorf("messages: invoice exceeds 1024 characters")
	}
	if m.PaymentRequest == "" {
		return fmt.Errorf("messages: empty payment request")
	}
	return nil
}

// ApiPaymentResponse reports the outcome of an ApiPaymentRequest.
type ApiPaymentResponse struct {
	UID         uint64 `json:"uid"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	FeeSat      int64  `json:"fee_sat,omitempty"`
	PaymentHash string `json:"payment_hash,omitempty"`
}

func (ApiPaymentResponse) isMessage()      {}
func (ApiPaymentResponse) Kind() string    { return "Api.PaymentResponse" }
func (ApiPaymentResponse) Validate() error { return nil }

// ApiSwapRequest converts from one currency to another for uid, optionally
// locking in a previously issued guaranteed quote.
type ApiSwapRequest struct {
	UID      uint64          `json:"uid"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Amount   decimal.Decimal `json:"amount"`
	QuoteID  *uint64         `json:"quote_id,omitempty"`
}

func (ApiSwapRequest) isMessage()   {}
func (ApiSwapRequest) Kind() string { return "Api.SwapRequest" }
func (m ApiSwapRequest) Validate() error {
	if m.Amount.Sign() <= 0 {
		return fmt.Errorf("messages: swap amount must be positive")
	}
	if m.From == m.To {
		return fmt.Errorf("messages: cannot swap a currency into itself")
	}
	return nil
}

// ApiSwapResponse reports the outcome of an ApiSwapRequest.
type ApiSwapResponse struct {
	UID     uint64          `json:"uid"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Rate    decimal.Decimal `json:"rate,omitempty"`
}

func (ApiSwapResponse) isMessage()      {}
func (ApiSwapResponse) Kind() string    { return "Api.SwapResponse" }
func (ApiSwapResponse) Validate() error { return nil }

// ApiQuoteRequest asks the Dealer for a rate, optionally guaranteed.
type ApiQuoteRequest struct {
	UID        uint64           `json:"uid"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	Guaranteed bool             `json:"guaranteed"`
}

func (ApiQuoteRequest) isMessage()   {}
func (ApiQuoteRequest) Kind() string { return "Api.QuoteRequest" }
func (m ApiQuoteRequest) Validate() error {
	if m.From == m.To {
		return fmt.Errorf("messages: cannot quote a currency against itself")
	}
	if m.Amount == nil && m.Value == nil {
		return fmt.Errorf("messages: quote requires amount or value")
	}
	return nil
}

// ApiQuoteResponse carries a dealer-derived rate, guaranteed for TTL if
// QuoteID is set.
type ApiQuoteResponse struct {
	UID       uint64          `json:"uid"`
	QuoteID   *uint64         `json:"quote_id,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	ValidUntilUnixMs int64    `json:"valid_until_unix_ms,omitempty"`
}

func (ApiQuoteResponse) isMessage()      {}
func (ApiQuoteResponse) Kind() string    { return "Api.QuoteResponse" }
func (ApiQuoteResponse) Validate() error { return nil }

// ApiGetBalances asks the Bank Engine for a user's full balance sheet.
type ApiGetBalances struct {
	UID uint64 `json:"uid"`
}

func (ApiGetBalances) isMessage()      {}
func (ApiGetBalances) Kind() string    { return "Api.GetBalances" }
func (ApiGetBalances) Validate() error { return nil }

// AccountBalance is one line of an ApiBalancesResponse.
type AccountBalance struct {
	AccountID string          `json:"account_id"`
	Currency  string          `json:"currency"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
}

// ApiBalancesResponse answers an ApiGetBalances request with a user's full
// balance sheet. The Dealer Engine has no handler for it; exposure reaches
// the Dealer through DealerBankStateUpdate.
type ApiBalancesResponse struct {
	UID      uint64           `json:"uid"`
	Accounts []AccountBalance `json:"accounts"`
}

func (ApiBalancesResponse) isMessage()      {}
func (ApiBalancesResponse) Kind() string    { return "Api.BalancesResponse" }
func (ApiBalancesResponse) Validate() error { return nil }

// ApiAvailableCurrenciesRequest asks the Dealer which fiat currencies are
// currently tradable (Health has reported Running and listed them).
type ApiAvailableCurrenciesRequest struct{}

func (ApiAvailableCurrenciesRequest) isMessage()      {}
func (ApiAvailableCurrenciesRequest) Kind() string    { return "Api.AvailableCurrenciesRequest" }
func (ApiAvailableCurrenciesRequest) Validate() error { return nil }

// ApiAvailableCurrenciesResponse answers an ApiAvailableCurrenciesRequest
// with every currency the Dealer can currently quote against BTC.
type ApiAvailableCurrenciesResponse struct {
	Currencies []string `json:"currencies"`
}

func (ApiAvailableCurrenciesResponse) isMessage()      {}
func (ApiAvailableCurrenciesResponse) Kind() string    { return "Api.AvailableCurrenciesResponse" }
func (ApiAvailableCurrenciesResponse) Validate() error { return nil }

func init() {
	register("Api.InvoiceRequest", func() Message { return &ApiInvoiceRequest{} })
	register("Api.InvoiceResponse", func() Message { return &ApiInvoiceResponse{} })
	register("Api.PaymentRequest", func() Message { return &ApiPaymentRequest{} })
	register("Api.PaymentResponse", func() Message { return &ApiPaymentResponse{} })
	register("Api.SwapRequest", func() Message { return &ApiSwapRequest{} })
	register("Api.SwapResponse", func() Message { return &ApiSwapResponse{} })
	register("Api.QuoteRequest", func() Message { return &ApiQuoteRequest{} })
	register("Api.QuoteResponse", func() Message { return &ApiQuoteResponse{} })
	register("Api.GetBalances", func() Message { return &ApiGetBalances{} })
	register("Api.BalancesResponse", func() Message { return &ApiBalancesResponse{} })
	register("Api.AvailableCurrenciesRequest", func() Message { return &ApiAvailableCurrenciesRequest{} })
	register("Api.AvailableCurrenciesResponse", func() Message { return &ApiAvailableCurrenciesResponse{} })
}
