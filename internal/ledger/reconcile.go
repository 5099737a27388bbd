package ledger

import "github.com/shopspring/decimal"

// Severity classifies how a reconciliation violation should be handled by
// the caller.
type Severity string

const (
	// Fatal violations (BTC-denominated imbalances) mean the bank's
	// liabilities no longer match its custody and the process must stop
	// rather than keep serving requests against a ledger it can't trust.
	Fatal Severity = "Fatal"
	// Observability violations (fiat-denominated imbalances) are logged
	// for investigation but do not halt the bank; fiat settlement runs
	// on a slower, batched rail where small transient deltas are
	// expected between sweeps.
	Observability Severity = "Observability"
)

// ReconciliationViolation reports one currency whose internal and external
// balances don't sum to zero.
type ReconciliationViolation struct {
	Currency Currency
	Delta    decimal.Decimal
	Severity Severity
}

// Reconcile checks, for every currency, that the sum of all Internal
// balances plus the External balance is zero (double-entry: nothing is
// created or destroyed), and that no Internal Cash balance is negative.
// It returns one violation for each negative Internal Cash account and one
// for each currency whose total is non-zero.
func (l *Ledger) Reconcile() []ReconciliationViolation {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[Currency]decimal.Decimal)
	for _, c := range []Currency{BTC, USD, EUR, GBP, KKP} {
		totals[c] = decimal.Zero
	}

	var violations []ReconciliationViolation

	for _, user := range l.Users {
		for currency, acc := range user.Accounts {
			totals[currency] = totals[currency].Add(acc.Balance)
			if acc.Type == Internal && acc.Class == Cash && acc.Balance.Sign() < 0 {
				violations = append(violations, ReconciliationViolation{
					Currency: currency,
					Delta:    acc.Balance,
					Severity: severityFor(currency),
				})
			}
		}
	}
	totals[l.FeeAccount.Currency] = totals[l.FeeAccount.Currency].Add(l.FeeAccount.Balance)
	totals[l.InsuranceFund.Currency] = totals[l.InsuranceFund.Currency].Add(l.InsuranceFund.Balance)

	for currency, acc := range l.ExternalAccounts {
		totals[currency] = totals[currency].Add(acc.Balance)
	}
	for currency, acc := range l.ExternalFeeAccounts {
		totals[currency] = totals[currency].Add(acc.Balance)
	}

	for currency, total := range totals {
		if !total.IsZero() {
			violations = append(violations, ReconciliationViolation{
				Currency: currency,
				Delta:    total,
				Severity: severityFor(currency),
			})
		}
	}
	return violations
}

func severityFor(c Currency) Severity {
	if c == BTC {
		return Fatal
	}
	return Observability
}
