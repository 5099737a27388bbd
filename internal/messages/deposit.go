package messages

import "fmt"

// DepositSettled is raised by the Lightning adapter's settlement subscriber
// when an invoice the bank minted has been paid externally.
type DepositSettled struct {
	PaymentRequest string `json:"payment_request"`
	PaymentHash    string `json:"payment_hash"`
	AmountSat      int64  `json:"amount_sat"`
}

func (DepositSettled) isMessage()   {}
func (DepositSettled) Kind() string { return "Deposit.Settled" }
func (m DepositSettled) Validate() error {
	if m.PaymentHash == "" {
		return fmt.Errorf("messages: deposit missing payment hash")
	}
	if m.AmountSat <= 0 {
		return fmt.Errorf("messages: deposit amount must be positive")
	}
	return nil
}

func init() {
	register("Deposit.Settled", func() Message { return &DepositSettled{} })
}
