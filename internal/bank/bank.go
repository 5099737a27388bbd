// Package bank implements the Bank Engine: the single-threaded cooperative
// actor that owns the in-memory double-entry Ledger and is the only writer
// of account balances. It mints and settles Lightning invoices, executes
// internal and external payments, forwards currency swaps to the Dealer
// for rate resolution and settles them on response, and answers balance
// queries — all against internal/ledger, persisted through Store before
// any in-memory mutation is trusted.
package bank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lnbank/internal/bankerr"
	"lnbank/internal/database"
	"lnbank/internal/ledger"
	"lnbank/internal/lndadapter"
	"lnbank/internal/messages"
	"lnbank/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BankUID identifies the bank itself as the counterparty on external legs
// of a transaction record (external deposits, external payments, venue
// sweeps), mirroring the reference engine's reserved user id.
const BankUID uint64 = 23193913

// Publish emits a message onto the bus. A single call is enough to reach
// every interested consumer group on the stream (the API-facing
// correlation fabric, the Dealer's own inbound consumer, ...): fan-out is
// the transport's job, not the Engine's.
type Publish func(messages.Message)

// Config holds the Bank Engine's fee policy, sourced from
// internal/config.FeeConfig.
type Config struct {
	InternalTxFeeBps     int64
	ExternalTxFeeBps     int64
	LnNetworkFeeMarginBps int64
}

func (c Config) withDefaults() Config {
	if c.InternalTxFeeBps == 0 {
		c.InternalTxFeeBps = 10
	}
	if c.ExternalTxFeeBps == 0 {
		c.ExternalTxFeeBps = 25
	}
	if c.LnNetworkFeeMarginBps == 0 {
		c.LnNetworkFeeMarginBps = 100
	}
	return c
}

// Deduper guards against re-processing a message the bus has already
// redelivered — e.g. a Redis Streams consumer-group claim replaying a
// DepositSettled entry whose original handler crashed before acking it.
// SetNX reports true the first time key is seen within ttl. Backed by
// pkg/cache in production; the Engine runs without one (falling back to
// Store's own settled-invoice check) when none is set.
type Deduper interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Engine is the Bank's message-processing core. Safe for concurrent use:
// the ledger and the pending-request maps are each independently guarded,
// but ProcessMessage is intended to be driven serially from a single
// cooperative actor loop, so that invariant ordering (e.g. a Deposit's
// loopback swap) never interleaves with an unrelated request for the same
// user.
type Engine struct {
	cfg       Config
	ledger    *ledger.Ledger
	store     Store
	lightning lndadapter.LightningClient
	publish   Publish
	dedup     Deduper

	mu               sync.Mutex
	pendingInvoices  map[uint64]messages.ApiInvoiceRequest
	pendingSwaps     map[uint64]messages.ApiSwapRequest
	dealerCurrencies map[string]bool
}

// New constructs a Bank Engine around an already-initialized Ledger. The
// caller is responsible for loading existing account rows into l (see
// LoadAccounts) before the engine starts serving traffic.
func New(cfg Config, l *ledger.Ledger, store Store, lightning lndadapter.LightningClient, publish Publish) *Engine {
	return &Engine{
		cfg:              cfg.withDefaults(),
		ledger:           l,
		store:            store,
		lightning:        lightning,
		publish:          publish,
		pendingInvoices:  make(map[uint64]messages.ApiInvoiceRequest),
		pendingSwaps:     make(map[uint64]messages.ApiSwapRequest),
		dealerCurrencies: make(map[string]bool),
	}
}

// Run publishes the bank's aggregate exposure to the Dealer every interval,
// a periodic state update the Dealer uses to keep its hedge sized to the
// bank's actual net position.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.publishBankState()
		}
	}
}

// SetDeduper wires a Deduper into an already-constructed Engine. Optional:
// correctness never depends on it, since Store's settled-invoice check is
// the authoritative guard — this only trims the rare double-processed
// message before it reaches Store at all.
func (e *Engine) SetDeduper(d Deduper) {
	e.dedup = d
}

func (e *Engine) publishBankState() {
	exposure := e.ledger.FiatExposure()
	byCode := make(map[string]decimal.Decimal, len(exposure))
	for currency, total := range exposure {
		byCode[string(currency)] = total
	}
	e.publish(messages.DealerBankStateUpdate{ExposureByCurrency: byCode})
}

// commitTransfer is the one path every balance-moving handler funnels
// through: it checks the sufficiency of an Internal outbound account
// (External boundary accounts may go negative), computes the transfer via
// ledger.MakeTx, and persists it through Store before trusting the
// in-memory mutation MakeTx already applied. If persistence fails, the
// in-memory mutation is reversed — MakeTx itself has no notion of
// "pending"; the rollback here is what keeps the in-memory ledger and the
// database from diverging, per SPEC_FULL.md §5.1a.
func (e *Engine) commitTransfer(ctx context.Context, outbound, inbound *ledger.Account, outboundUID, inboundUID uint64, amount, rate decimal.Decimal, settledInvoiceID *uuid.UUID) (*ledger.Transaction, error) {
	if outbound.Type == ledger.Internal && outbound.Balance.LessThan(amount) {
		return nil, bankerr.ErrInsufficientFunds
	}

	if err := e.store.EnsureAccount(ctx, outbound); err != nil {
		return nil, fmt.Errorf("bank: ensure outbound account: %w", err)
	}
	if err := e.store.EnsureAccount(ctx, inbound); err != nil {
		return nil, fmt.Errorf("bank: ensure inbound account: %w", err)
	}

	tx, err := e.ledger.MakeTx(outbound, inbound, outboundUID, inboundUID, amount, rate)
	if err != nil {
		return nil, err
	}

	row := &database.TransactionRow{
		TxID:             tx.TxID,
		Type:             string(tx.Type),
		OutboundAccount:  tx.OutboundAccount,
		OutboundUID:      tx.OutboundUID,
		OutboundAmount:   tx.OutboundAmount,
		OutboundCurrency: string(tx.OutboundCurrency),
		InboundAccount:   tx.InboundAccount,
		InboundUID:       tx.InboundUID,
		InboundAmount:    tx.InboundAmount,
		InboundCurrency:  string(tx.InboundCurrency),
		Rate:             tx.Rate,
		CreatedAt:        tx.CreatedAt,
	}

	if err := e.store.CommitTransfer(ctx, row, outbound.ID, outbound.Balance, inbound.ID, inbound.Balance, settledInvoiceID); err != nil {
		outbound.Balance = outbound.Balance.Add(amount)
		inbound.Balance = inbound.Balance.Sub(tx.InboundAmount)
		logger.Error("bank: failed to persist transfer, rolled back in-memory ledger",
			zap.String("tx_id", tx.TxID), zap.Error(err))
		return nil, bankerr.ErrFailedTransaction
	}

	return tx, nil
}
