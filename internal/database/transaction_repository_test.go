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

func TestCommitTransferAppliesBothBalancesAndRecord(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	accounts := NewAccountRepository(db)
	invoices := NewInvoiceRepository(db)
	txs := NewTransactionRepository(db, accounts, invoices)

	ctx := context.Background()
	out := &AccountRow{ID: uuid.New(), UID: 1, Currency: "BTC", Type: "Internal", Class: "Cash", Balance: decimal.NewFromInt(1000), CreatedAt: time.Now()}
	in := &AccountRow{ID: uuid.New(), UID: 2, Currency: "USD", Type: "Internal", Class: "Cash", Balance: decimal.Zero, CreatedAt: time.Now()}
	require.NoError(t, accounts.Create(ctx, out))
	require.NoError(t, accounts.Create(ctx, in))

	tx := &TransactionRow{
		TxID: "1-1", Type: "Internal",
		OutboundAccount: out.ID, OutboundUID: 1, OutboundAmount: decimal.NewFromInt(100), OutboundCurrency: "BTC",
		InboundAccount: in.ID, InboundUID: 2, InboundAmount: decimal.NewFromInt(5000), InboundCurrency: "USD",
		Rate: decimal.NewFromInt(50), CreatedAt: time.Now(),
	}

	err := txs.CommitTransfer(ctx, tx, out.ID, decimal.NewFromInt(900), in.ID, decimal.NewFromInt(5000), nil)
	require.NoError(t, err)

	gotOut, err := accounts.GetByID(ctx, out.ID)
	require.NoError(t, err)
	require.True(t, gotOut.Balance.Equal(decimal.NewFromInt(900)))

	gotTx, err := txs.GetByTxID(ctx, "1-1")
	require.NoError(t, err)
	require.Equal(t, "Internal", gotTx.Type)
}
