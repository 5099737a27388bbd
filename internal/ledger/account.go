package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is one ledger entry: a balance in one currency, owned either by a
// bank user (Internal/Cash) or representing the boundary with the outside
// world (External) or fee accrual (Internal/Fee).
type Account struct {
	ID       uuid.UUID
	UID      uint64
	Currency Currency
	Type     AccountType
	Class    AccountClass
	Balance  decimal.Decimal
}

// NewAccount constructs a zero-balance account.
func NewAccount(id uuid.UUID, uid uint64, currency Currency, accType AccountType, class AccountClass) *Account {
	return &Account{
		ID:       id,
		UID:      uid,
		Currency: currency,
		Type:     accType,
		Class:    class,
		Balance:  decimal.Zero,
	}
}

// Money returns the account's current balance as a tagged Money value.
func (a *Account) Money() Money {
	return Money{Currency: a.Currency, Amount: a.Balance}
}

// UserAccount groups one bank user's per-currency Cash accounts.
type UserAccount struct {
	UID      uint64
	Accounts map[Currency]*Account
}

// NewUserAccount creates a user with an empty account set.
func NewUserAccount(uid uint64) *UserAccount {
	return &UserAccount{UID: uid, Accounts: make(map[Currency]*Account)}
}

// DefaultCashAccount returns the user's Cash account for currency, creating
// it on first use.
func (u *UserAccount) DefaultCashAccount(currency Currency) *Account {
	if acc, ok := u.Accounts[currency]; ok {
		return acc
	}
	acc := NewAccount(uuid.New(), u.UID, currency, Internal, Cash)
	u.Accounts[currency] = acc
	return acc
}
