package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvoiceNotFound is returned when an invoice is not found in the
	// database.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrInvoicePaymentHashExists is returned when creating an invoice
	// whose payment hash already exists.
	ErrInvoicePaymentHashExists = errors.New("invoice payment hash already exists")
)

// InvoiceRepository persists invoices the bank has minted on its own
// Lightning node.
type InvoiceRepository struct {
	db *pgxpool.Pool
}

// NewInvoiceRepository creates a new invoice repository instance.
func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{db: db.pool}
}

// Create inserts a new, unsettled invoice row.
func (r *InvoiceRepository) Create(ctx context.Context, inv *InvoiceRow) error {
	query := `INSERT INTO invoices (
		id, uid, payment_request, payment_hash, amount_sat, memo, settled,
		target_account_currency, cached_rate, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		inv.ID, inv.UID, inv.PaymentRequest, inv.PaymentHash, inv.AmountSat, inv.Memo,
		inv.Settled, inv.TargetAccountCurrency, inv.CachedRate, inv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrInvoicePaymentHashExists
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetByPaymentHash retrieves an invoice by its payment hash, the key used
// by the settlement subscriber and the idempotency check on Deposit.
func (r *InvoiceRepository) GetByPaymentHash(ctx context.Context, paymentHash string) (*InvoiceRow, error) {
	query := `SELECT id, uid, payment_request, payment_hash, amount_sat, memo,
		settled, target_account_currency, cached_rate, created_at, settled_at
		FROM invoices WHERE payment_hash = $1`

	var inv InvoiceRow
	err := r.db.QueryRow(ctx, query, paymentHash).Scan(
		&inv.ID, &inv.UID, &inv.PaymentRequest, &inv.PaymentHash, &inv.AmountSat, &inv.Memo,
		&inv.Settled, &inv.TargetAccountCurrency, &inv.CachedRate, &inv.CreatedAt, &inv.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice with payment hash %s: %w", paymentHash, err)
	}
	return &inv, nil
}

// GetByID retrieves an invoice by its UUID.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceRow, error) {
	query := `SELECT id, uid, payment_request, payment_hash, amount_sat, memo,
		settled, target_account_currency, cached_rate, created_at, settled_at
		FROM invoices WHERE id = $1`

	var inv InvoiceRow
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.UID, &inv.PaymentRequest, &inv.PaymentHash, &inv.AmountSat, &inv.Memo,
		&inv.Settled, &inv.TargetAccountCurrency, &inv.CachedRate, &inv.CreatedAt, &inv.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice %s: %w", id, err)
	}
	return &inv, nil
}

// ListByUID retrieves a user's invoices, newest first.
func (r *InvoiceRepository) ListByUID(ctx context.Context, uid uint64) ([]*InvoiceRow, error) {
	query := `SELECT id, uid, payment_request, payment_hash, amount_sat, memo,
		settled, target_account_currency, cached_rate, created_at, settled_at
		FROM invoices WHERE uid = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for uid %d: %w", uid, err)
	}
	defer rows.Close()

	var invoices []*InvoiceRow
	for rows.Next() {
		var inv InvoiceRow
		if err := rows.Scan(
			&inv.ID, &inv.UID, &inv.PaymentRequest, &inv.PaymentHash, &inv.AmountSat, &inv.Memo,
			&inv.Settled, &inv.TargetAccountCurrency, &inv.CachedRate, &inv.CreatedAt, &inv.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return invoices, nil
}
