package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is one committed double-entry movement between two accounts.
type Transaction struct {
	TxID             string
	Type             TxType
	OutboundAccount  uuid.UUID
	OutboundUID      uint64
	OutboundAmount   decimal.Decimal
	OutboundCurrency Currency
	InboundAccount   uuid.UUID
	InboundUID       uint64
	InboundAmount    decimal.Decimal
	InboundCurrency  Currency
	Rate             decimal.Decimal
	CreatedAt        time.Time
}

// Ledger is the bank's single in-memory double-entry account graph. It is
// owned exclusively by the Bank Engine goroutine; all access is serialized
// through its mutex so concurrent housekeeping reads (reconciliation,
// balance reporting) never race a transfer in flight.
type Ledger struct {
	mu sync.Mutex

	Users map[uint64]*UserAccount

	// ExternalAccounts holds the boundary-with-the-world balance per
	// currency: Lightning/on-chain liabilities on the BTC side, the
	// external settlement counterparties on the fiat side.
	ExternalAccounts map[Currency]*Account

	// ExternalFeeAccounts accrues the external (venue/network) fee
	// portion kept back from a payment, per currency.
	ExternalFeeAccounts map[Currency]*Account

	// FeeAccount accrues the bank's own internal fee revenue, in BTC.
	FeeAccount *Account

	// InsuranceFund is the bank's own risk buffer account, in BTC.
	InsuranceFund *Account

	seq int64
}

// NewLedger builds an empty ledger with external and external-fee accounts
// pre-created for every supported currency, plus the BTC fee and insurance
// accounts.
func NewLedger() *Ledger {
	l := &Ledger{
		Users:               make(map[uint64]*UserAccount),
		ExternalAccounts:    make(map[Currency]*Account),
		ExternalFeeAccounts: make(map[Currency]*Account),
	}
	for _, c := range []Currency{BTC, USD, EUR, GBP, KKP} {
		l.ExternalAccounts[c] = NewAccount(uuid.New(), 0, c, External, Cash)
		l.ExternalFeeAccounts[c] = NewAccount(uuid.New(), 0, c, External, Fees)
	}
	l.FeeAccount = NewAccount(uuid.New(), 0, BTC, Internal, Fees)
	l.InsuranceFund = NewAccount(uuid.New(), 0, BTC, Internal, Cash)
	return l
}

// User returns (creating if necessary) the UserAccount for uid.
func (l *Ledger) User(uid uint64) *UserAccount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userLocked(uid)
}

func (l *Ledger) userLocked(uid uint64) *UserAccount {
	u, ok := l.Users[uid]
	if !ok {
		u = NewUserAccount(uid)
		l.Users[uid] = u
	}
	return u
}

func (l *Ledger) nextTxID() string {
	l.seq++
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), l.seq)
}

// MakeTx moves amount (denominated in the outbound account's currency) from
// outbound to inbound, crediting the inbound account amount*rate in its own
// currency, and returns the committed Transaction record.
//
// The credited (inbound) side is always amount*rate — never re-derived from
// the outbound amount's string form. A prior revision of this logic
// persisted the inbound leg by re-parsing the outbound amount, which is
// only correct when rate==1; that bug is fixed here by construction: there
// is only one computed inboundAmount value, and it is both the balance
// mutation and the persisted record.
func (l *Ledger) MakeTx(outbound, inbound *Account, outboundUID, inboundUID uint64, amount decimal.Decimal, rate decimal.Decimal) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("ledger: transaction amount must be positive, got %s", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	inboundAmount := amount.Mul(rate).Truncate(RateDP)

	txType := TxInternal
	if outbound.Type == External || inbound.Type == External {
		txType = TxExternal
	}

	outbound.Balance = outbound.Balance.Sub(amount)
	inbound.Balance = inbound.Balance.Add(inboundAmount)

	tx := &Transaction{
		TxID:             l.nextTxID(),
		Type:             txType,
		OutboundAccount:  outbound.ID,
		OutboundUID:      outboundUID,
		OutboundAmount:   amount,
		OutboundCurrency: outbound.Currency,
		InboundAccount:   inbound.ID,
		InboundUID:       inboundUID,
		InboundAmount:    inboundAmount,
		InboundCurrency:  inbound.Currency,
		Rate:             rate,
		CreatedAt:        time.Now(),
	}
	return tx, nil
}

// FiatExposure sums every user's fiat (non-BTC) balances per currency: the
// bank's net liability that the Dealer's hedging controller must cover.
// BTC is excluded since the bank holds its own BTC liabilities directly,
// with no hedge to place against them.
func (l *Ledger) FiatExposure() map[Currency]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[Currency]decimal.Decimal)
	for _, user := range l.Users {
		for currency, acc := range user.Accounts {
			if currency == BTC {
				continue
			}
			totals[currency] = totals[currency].Add(acc.Balance)
		}
	}
	return totals
}
