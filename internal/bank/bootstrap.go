package bank

import (
	"fmt"

	"lnbank/internal/database"
	"lnbank/internal/ledger"
)

// LoadAccounts restores a freshly constructed Ledger's account balances and
// identities from every row Store has persisted, so a restarted Bank Engine
// picks up exactly where the last one left off instead of serving a new
// user a zero balance. Must run before the engine starts processing
// messages.
//
// Internal/Fee, External/Cash, External/Fee and the insurance fund are
// singleton accounts NewLedger pre-creates with a fresh UUID every startup;
// this reconciles those in place by currency/class rather than duplicating
// them. Per-user Cash accounts are created on demand by
// UserAccount.DefaultCashAccount, which this mirrors for every persisted
// row so uid/currency pairs with a nonzero balance are live immediately.
func LoadAccounts(l *ledger.Ledger, rows []*database.AccountRow) error {
	for _, row := range rows {
		currency, err := ledger.ParseCurrency(row.Currency)
		if err != nil {
			return fmt.Errorf("bank: load accounts: %w", err)
		}

		if row.UID == 0 {
			acc, err := singletonAccount(l, currency, ledger.AccountType(row.Type), ledger.AccountClass(row.Class))
			if err != nil {
				return fmt.Errorf("bank: load accounts: %w", err)
			}
			acc.ID = row.ID
			acc.Balance = row.Balance
			continue
		}

		user := l.User(row.UID)
		acc := user.DefaultCashAccount(currency)
		acc.ID = row.ID
		acc.Balance = row.Balance
	}
	return nil
}

func singletonAccount(l *ledger.Ledger, currency ledger.Currency, accType ledger.AccountType, class ledger.AccountClass) (*ledger.Account, error) {
	switch {
	case accType == ledger.External && class == ledger.Cash:
		return l.ExternalAccounts[currency], nil
	case accType == ledger.External && class == ledger.Fees:
		return l.ExternalFeeAccounts[currency], nil
	case accType == ledger.Internal && class == ledger.Fees:
		return l.FeeAccount, nil
	case accType == ledger.Internal && class == ledger.Cash:
		return l.InsuranceFund, nil
	default:
		return nil, fmt.Errorf("unrecognized singleton account type=%s class=%s", accType, class)
	}
}
