package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRow is the persisted mirror of one internal/ledger.Account.
type AccountRow struct {
	ID        uuid.UUID
	UID       uint64
	Currency  string
	Type      string
	Class     string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// InvoiceRow is the persisted mirror of one Lightning invoice the bank has
// minted, including the optional target-currency auto-swap annotation.
type InvoiceRow struct {
	ID                    uuid.UUID
	UID                   uint64
	PaymentRequest        string
	PaymentHash           string
	AmountSat             int64
	Memo                  string
	Settled               bool
	TargetAccountCurrency *string
	CachedRate            *decimal.Decimal
	CreatedAt             time.Time
	SettledAt             *time.Time
}

// TransactionRow is the persisted mirror of one committed
// internal/ledger.Transaction.
type TransactionRow struct {
	TxID             string
	Type             string
	OutboundAccount  uuid.UUID
	OutboundUID      uint64
	OutboundAmount   decimal.Decimal
	OutboundCurrency string
	InboundAccount   uuid.UUID
	InboundUID       uint64
	InboundAmount    decimal.Decimal
	InboundCurrency  string
	Rate             decimal.Decimal
	CreatedAt        time.Time
}
