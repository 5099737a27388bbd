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
	// ErrAccountNotFound is returned when an account is not found in the
	// database.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when trying to create a duplicate
	// (uid, currency, class) account.
	ErrAccountExists = errors.New("account already exists for that uid/currency/class")
)

// AccountRepository persists the ledger's per-user account rows.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository instance.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db.pool}
}

// Create inserts a new account row. Returns ErrAccountExists on a
// (uid, currency, class) unique-constraint violation.
func (r *AccountRepository) Create(ctx context.Context, acc *AccountRow) error {
	query := `INSERT INTO accounts (
		id, uid, currency, type, class, balance, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		acc.ID, acc.UID, acc.Currency, acc.Type, acc.Class, acc.Balance, acc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its UUID. Returns ErrAccountNotFound if
// the id does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*AccountRow, error) {
	query := `SELECT id, uid, currency, type, class, balance, created_at
		FROM accounts WHERE id = $1`

	var acc AccountRow
	err := r.db.QueryRow(ctx, query, id).Scan(
		&acc.ID, &acc.UID, &acc.Currency, &acc.Type, &acc.Class, &acc.Balance, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &acc, nil
}

// GetCashAccount retrieves a user's Cash account for currency, if it
// exists. Returns ErrAccountNotFound otherwise.
func (r *AccountRepository) GetCashAccount(ctx context.Context, uid uint64, currency string) (*AccountRow, error) {
	query := `SELECT id, uid, currency, type, class, balance, created_at
		FROM accounts WHERE uid = $1 AND currency = $2 AND class = 'Cash' AND type = 'Internal'`

	var acc AccountRow
	err := r.db.QueryRow(ctx, query, uid, currency).Scan(
		&acc.ID, &acc.UID, &acc.Currency, &acc.Type, &acc.Class, &acc.Balance, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get cash account for uid %d currency %s: %w", uid, currency, err)
	}
	return &acc, nil
}

// ListByUID retrieves every account belonging to uid.
func (r *AccountRepository) ListByUID(ctx context.Context, uid uint64) ([]*AccountRow, error) {
	query := `SELECT id, uid, currency, type, class, balance, created_at
		FROM accounts WHERE uid = $1 ORDER BY currency`

	rows, err := r.db.Query(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for uid %d: %w", uid, err)
	}
	defer rows.Close()

	var accounts []*AccountRow
	for rows.Next() {
		var acc AccountRow
		if err := rows.Scan(&acc.ID, &acc.UID, &acc.Currency, &acc.Type, &acc.Class, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, &acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return accounts, nil
}

// ListAll retrieves every account row, for loading the full ledger into
// memory at startup.
func (r *AccountRepository) ListAll(ctx context.Context) ([]*AccountRow, error) {
	query := `SELECT id, uid, currency, type, class, balance, created_at
		FROM accounts ORDER BY uid, currency`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*AccountRow
	for rows.Next() {
		var acc AccountRow
		if err := rows.Scan(&acc.ID, &acc.UID, &acc.Currency, &acc.Type, &acc.Class, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, &acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return accounts, nil
}

// UpdateBalance persists a new absolute balance for an account. Returns
// ErrAccountNotFound if the id does not exist.
func (r *AccountRepository) UpdateBalance(ctx context.Context, querier Querier, id uuid.UUID, balance interface{}) error {
	commandTag, err := querier.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
