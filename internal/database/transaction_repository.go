package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrTransactionNotFound is returned when a transaction is not found in the
// database.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRepository persists committed ledger transactions and drives
// the atomic commit of a transfer's full side effects.
type TransactionRepository struct {
	db       *pgxpool.Pool
	accounts *AccountRepository
	invoices *InvoiceRepository
}

// NewTransactionRepository creates a new transaction repository instance.
func NewTransactionRepository(db *DB, accounts *AccountRepository, invoices *InvoiceRepository) *TransactionRepository {
	return &TransactionRepository{db: db.pool, accounts: accounts, invoices: invoices}
}

// CommitTransfer persists one double-entry transfer atomically: the
// transaction record, both account balance updates, and — when
// settledInvoiceID is non-nil — the invoice's settled flip, all inside one
// pgx.Tx. On error the database is left untouched. The caller
// (internal/bank) applies the mutation to its in-memory ledger before this
// call and reverses it when this call fails, so memory and database agree
// on every return path.
func (r *TransactionRepository) CommitTransfer(
	ctx context.Context,
	tx *TransactionRow,
	outboundID uuid.UUID,
	outboundBalance decimal.Decimal,
	inboundID uuid.UUID,
	inboundBalance decimal.Decimal,
	settledInvoiceID *uuid.UUID,
) error {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transfer transaction: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := dbTx.Exec(ctx, `INSERT INTO transactions (
		tx_id, type, outbound_account, outbound_uid, outbound_amount, outbound_currency,
		inbound_account, inbound_uid, inbound_amount, inbound_currency, rate, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		tx.TxID, tx.Type, tx.OutboundAccount, tx.OutboundUID, tx.OutboundAmount, tx.OutboundCurrency,
		tx.InboundAccount, tx.InboundUID, tx.InboundAmount, tx.InboundCurrency, tx.Rate, tx.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert transaction record: %w", err)
	}

	if err := r.accounts.UpdateBalance(ctx, dbTx, outboundID, outboundBalance); err != nil {
		return fmt.Errorf("failed to update outbound account balance: %w", err)
	}
	if err := r.accounts.UpdateBalance(ctx, dbTx, inboundID, inboundBalance); err != nil {
		return fmt.Errorf("failed to update inbound account balance: %w", err)
	}

	if settledInvoiceID != nil {
		commandTag, err := dbTx.Exec(ctx,
			`UPDATE invoices SET settled = true, settled_at = $2 WHERE id = $1 AND settled = false`,
			*settledInvoiceID, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("failed to settle invoice %s: %w", *settledInvoiceID, err)
		}
		if commandTag.RowsAffected() == 0 {
			return fmt.Errorf("invoice %s already settled or not found", *settledInvoiceID)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// GetByTxID retrieves a transaction by its formatted txid.
func (r *TransactionRepository) GetByTxID(ctx context.Context, txID string) (*TransactionRow, error) {
	query := `SELECT tx_id, type, outbound_account, outbound_uid, outbound_amount, outbound_currency,
		inbound_account, inbound_uid, inbound_amount, inbound_currency, rate, created_at
		FROM transactions WHERE tx_id = $1`

	var t TransactionRow
	err := r.db.QueryRow(ctx, query, txID).Scan(
		&t.TxID, &t.Type, &t.OutboundAccount, &t.OutboundUID, &t.OutboundAmount, &t.OutboundCurrency,
		&t.InboundAccount, &t.InboundUID, &t.InboundAmount, &t.InboundCurrency, &t.Rate, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", txID, err)
	}
	return &t, nil
}

// ListByUID retrieves every transaction where uid was either the outbound
// or inbound party, newest first.
func (r *TransactionRepository) ListByUID(ctx context.Context, uid uint64) ([]*TransactionRow, error) {
	query := `SELECT tx_id, type, outbound_account, outbound_uid, outbound_amount, outbound_currency,
		inbound_account, inbound_uid, inbound_amount, inbound_currency, rate, created_at
		FROM transactions WHERE outbound_uid = $1 OR inbound_uid = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for uid %d: %w", uid, err)
	}
	defer rows.Close()

	var txs []*TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(
			&t.TxID, &t.Type, &t.OutboundAccount, &t.OutboundUID, &t.OutboundAmount, &t.OutboundCurrency,
			&t.InboundAccount, &t.InboundUID, &t.InboundAmount, &t.InboundCurrency, &t.Rate, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return txs, nil
}
