package messages

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DealerHealth is published every 5s; the Bank refuses fiat operations
// until it sees Running with the currency it needs listed.
type DealerHealth struct {
	Status               string   `json:"status"`
	AvailableCurrencies  []string `json:"available_currencies"`
	TimestampUnixMs      int64    `json:"timestamp_unix_ms"`
}

func (DealerHealth) isMessage()      {}
func (DealerHealth) Kind() string    { return "Dealer.Health" }
func (DealerHealth) Validate() error { return nil }

// DealerBankStateUpdate reports the bank's aggregate per-currency exposure
// so the Dealer's hedging controller can compute required_contracts.
type DealerBankStateUpdate struct {
	ExposureByCurrency map[string]decimal.Decimal `json:"exposure_by_currency"`
}

func (DealerBankStateUpdate) isMessage()   {}
func (DealerBankStateUpdate) Kind() string { return "Dealer.BankStateUpdate" }
func (m DealerBankStateUpdate) Validate() error {
	if m.ExposureByCurrency == nil {
		return fmt.Errorf("messages: bank state update missing exposure map")
	}
	return nil
}

// DealerInvoiceRequest forwards an Api.InvoiceRequest for a fiat currency to
// the Dealer so it can annotate the eventual invoice with the rate to be
// used at settlement time.
type DealerInvoiceRequest struct {
	UID       uint64 `json:"uid"`
	Currency  string `json:"currency"`
	AmountSat int64  `json:"amount_sat"`
}

func (DealerInvoiceRequest) isMessage()   {}
func (DealerInvoiceRequest) Kind() string { return "Dealer.InvoiceRequest" }
func (m DealerInvoiceRequest) Validate() error {
	if m.AmountSat <= 0 {
		return fmt.Errorf("messages: invoice amount must be positive")
	}
	return nil
}

// DealerInvoiceRate answers a DealerInvoiceRequest. Rate is nil when
// Currency is BTC (no conversion needed).
type DealerInvoiceRate struct {
	UID  uint64           `json:"uid"`
	Rate *decimal.Decimal `json:"rate,omitempty"`
}

func (DealerInvoiceRate) isMessage()      {}
func (DealerInvoiceRate) Kind() string    { return "Dealer.InvoiceRate" }
func (DealerInvoiceRate) Validate() error { return nil }

// DealerCreateInvoiceRequest asks the Bank to mint an invoice on the
// dealer's behalf so venue SAT proceeds can be withdrawn and swept into the
// insurance fund during housekeeping.
type DealerCreateInvoiceRequest struct {
	AmountSat int64  `json:"amount_sat"`
	Memo      string `json:"memo"`
}

func (DealerCreateInvoiceRequest) isMessage()   {}
func (DealerCreateInvoiceRequest) Kind() string { return "Dealer.CreateInvoiceRequest" }
func (m DealerCreateInvoiceRequest) Validate() error {
	if m.AmountSat <= 0 {
		return fmt.Errorf("messages: invoice amount must be positive")
	}
	return nil
}

// DealerCreateInvoiceResponse answers a DealerCreateInvoiceRequest with the
// minted withdrawal invoice, so the dealer (or whatever operator tooling
// drives venue withdrawals) can pay it from the venue's SAT balance.
type DealerCreateInvoiceResponse struct {
	PaymentRequest string `json:"payment_request"`
	PaymentHash    string `json:"payment_hash"`
	Error          string `json:"error,omitempty"`
}

func (DealerCreateInvoiceResponse) isMessage()      {}
func (DealerCreateInvoiceResponse) Kind() string    { return "Dealer.CreateInvoiceResponse" }
func (DealerCreateInvoiceResponse) Validate() error { return nil }

func init() {
	register("Dealer.Health", func() Message { return &DealerHealth{} })
	register("Dealer.BankStateUpdate", func() Message { return &DealerBankStateUpdate{} })
	register("Dealer.InvoiceRequest", func() Message { return &DealerInvoiceRequest{} })
	register("Dealer.InvoiceRate", func() Message { return &DealerInvoiceRate{} })
	register("Dealer.CreateInvoiceRequest", func() Message { return &DealerCreateInvoiceRequest{} })
	register("Dealer.CreateInvoiceResponse", func() Message { return &DealerCreateInvoiceResponse{} })
}
