//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAccountRepositoryCreateAndFetch(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	repo := NewAccountRepository(db)

	ctx := context.Background()
	acc := &AccountRow{
		ID:        uuid.New(),
		UID:       42,
		Currency:  "BTC",
		Type:      "Internal",
		Class:     "Cash",
		Balance:   decimal.NewFromInt(1000),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, acc))

	fetched, err := repo.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.UID, fetched.UID)
	require.True(t, acc.Balance.Equal(fetched.Balance))

	byCash, err := repo.GetCashAccount(ctx, 42, "BTC")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byCash.ID)
}

func TestAccountRepositoryGetByIDNotFound(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	repo := NewAccountRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrAccountNotFound)
}
