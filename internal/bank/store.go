package bank

import (
	"context"
	"errors"
	"time"

	"lnbank/internal/database"
	"lnbank/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the subset of internal/database the Bank Engine reads and
// writes through. Expressed as an interface, mirroring internal/dealer's
// VenueView, so the engine's accounting logic can be driven by a fake
// instead of a live Postgres instance.
type Store interface {
	// EnsureAccount persists acc's row if it does not already exist.
	// Idempotent: an existing row is left untouched.
	EnsureAccount(ctx context.Context, acc *ledger.Account) error
	ListAccounts(ctx context.Context, uid uint64) ([]*database.AccountRow, error)
	// ListAllAccounts returns every persisted account row, for loading the
	// full ledger into memory at startup.
	ListAllAccounts(ctx context.Context) ([]*database.AccountRow, error)

	CreateInvoice(ctx context.Context, inv *database.InvoiceRow) error
	GetInvoiceByPaymentHash(ctx context.Context, paymentHash string) (*database.InvoiceRow, error)

	// CommitTransfer persists one double-entry transfer atomically. See
	// database.TransactionRepository.CommitTransfer for the exact
	// contract: on error nothing is written, and the caller reverses any
	// in-memory mutation it already applied.
	CommitTransfer(ctx context.Context, tx *database.TransactionRow, outboundID uuid.UUID, outboundBalance decimal.Decimal, inboundID uuid.UUID, inboundBalance decimal.Decimal, settledInvoiceID *uuid.UUID) error
}

// RepoStore is the production Store backed by internal/database's three
// repositories.
type RepoStore struct {
	Accounts     *database.AccountRepository
	Invoices     *database.InvoiceRepository
	Transactions *database.TransactionRepository
}

// NewRepoStore wires a Store against an already-connected database.DB.
func NewRepoStore(db *database.DB) *RepoStore {
	accounts := database.NewAccountRepository(db)
	invoices := database.NewInvoiceRepository(db)
	return &RepoStore{
		Accounts:     accounts,
		Invoices:     invoices,
		Transactions: database.NewTransactionRepository(db, accounts, invoices),
	}
}

func (s *RepoStore) EnsureAccount(ctx context.Context, acc *ledger.Account) error {
	row := &database.AccountRow{
		ID:        acc.ID,
		UID:       acc.UID,
		Currency:  string(acc.Currency),
		Type:      string(acc.Type),
		Class:     string(acc.Class),
		Balance:   acc.Balance,
		CreatedAt: time.Now(),
	}
	err := s.Accounts.Create(ctx, row)
	if errors.Is(err, database.ErrAccountExists) {
		return nil
	}
	return err
}

func (s *RepoStore) ListAccounts(ctx context.Context, uid uint64) ([]*database.AccountRow, error) {
	return s.Accounts.ListByUID(ctx, uid)
}

func (s *RepoStore) ListAllAccounts(ctx context.Context) ([]*database.AccountRow, error) {
	return s.Accounts.ListAll(ctx)
}

func (s *RepoStore) CreateInvoice(ctx context.Context, inv *database.InvoiceRow) error {
	return s.Invoices.Create(ctx, inv)
}

func (s *RepoStore) GetInvoiceByPaymentHash(ctx context.Context, paymentHash string) (*database.InvoiceRow, error) {
	return s.Invoices.GetByPaymentHash(ctx, paymentHash)
}

func (s *RepoStore) CommitTransfer(ctx context.Context, tx *database.TransactionRow, outboundID uuid.UUID, outboundBalance decimal.Decimal, inboundID uuid.UUID, inboundBalance decimal.Decimal, settledInvoiceID *uuid.UUID) error {
	return s.Transactions.CommitTransfer(ctx, tx, outboundID, outboundBalance, inboundID, inboundBalance, settledInvoiceID)
}
