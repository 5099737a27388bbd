package bank

import (
	"context"
	"sort"
	"time"

	"lnbank/internal/database"
	"lnbank/internal/ledger"
	"lnbank/internal/messages"
	"lnbank/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// handleInvoiceRequest mints a BTC invoice directly, or — for a fiat
// currency — forwards the request to the Dealer for rate pre-annotation
// and mints once DealerInvoiceRate answers. The rate is cached on the
// invoice row for the loopback swap Deposit performs at settlement time.
func (e *Engine) handleInvoiceRequest(ctx context.Context, req messages.ApiInvoiceRequest) {
	currency, err := ledger.ParseCurrency(req.Currency)
	if err != nil {
		e.publish(messages.ApiInvoiceResponse{UID: req.UID, Error: "unknown currency"})
		return
	}

	if currency == ledger.BTC {
		e.mintInvoice(ctx, req, nil)
		return
	}

	e.mu.Lock()
	if !e.dealerCurrencies[string(currency)] {
		e.mu.Unlock()
		e.publish(messages.ApiInvoiceResponse{UID: req.UID, Error: "currency not available"})
		return
	}
	e.pendingInvoices[req.UID] = req
	e.mu.Unlock()

	e.publish(messages.DealerInvoiceRequest{UID: req.UID, Currency: req.Currency, AmountSat: req.AmountSat})
}

func (e *Engine) handleDealerInvoiceRate(ctx context.Context, rate messages.DealerInvoiceRate) {
	e.mu.Lock()
	req, ok := e.pendingInvoices[rate.UID]
	if ok {
		delete(e.pendingInvoices, rate.UID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	if rate.Rate == nil {
		e.publish(messages.ApiInvoiceResponse{UID: req.UID, Error: "rate not available"})
		return
	}
	e.mintInvoice(ctx, req, rate.Rate)
}

func (e *Engine) mintInvoice(ctx context.Context, req messages.ApiInvoiceRequest, rate *decimal.Decimal) {
	account := e.ledger.User(req.UID).DefaultCashAccount(ledger.BTC)
	if err := e.store.EnsureAccount(ctx, account); err != nil {
		logger.Error("bank: failed to persist invoice target account", zap.Uint64("uid", req.UID), zap.Error(err))
		e.publish(messages.ApiInvoiceResponse{UID: req.UID, Error: "internal error"})
		return
	}

	inv, err := e.lightning.CreateInvoice(ctx, req.AmountSat, req.Memo)
	if err != nil {
		e.publish(messages.ApiInvoiceResponse{UID: req.UID, Error: "failed to create invoice"})
		return
	}

	row := &database.InvoiceRow{
		ID:             uuid.New(),
		UID:            req.UID,
		PaymentRequest: inv.PaymentRequest,
		PaymentHash:    inv.PaymentHash,
		AmountSat:      req.AmountSat,
		Memo:           req.Memo,
		CreatedAt:      time.Now(),
	}
	if req.TargetAccountCurrency != nil {
		row.TargetAccountCurrency = req.TargetAccountCurrency
		row.CachedRate = rate
	}

	if err := e.store.CreateInvoice(ctx, row); err != nil {
		e.publish(messages.ApiInvoiceResponse{UID: req.UID, Error: "failed to persist invoice"})
		return
	}

	e.publish(messages.ApiInvoiceResponse{
		UID:            req.UID,
		PaymentRequest: inv.PaymentRequest,
		PaymentHash:    inv.PaymentHash,
		AccountID:      account.ID.String(),
		Rate:           rate,
	})
}

// handleDeposit settles a minted invoice once the Lightning subscription
// confirms it paid: credits the user's BTC account from the external
// boundary, then — if the invoice was earmarked for a fiat target — runs
// the loopback swap at the rate cached when the invoice was minted,
// without a further round trip to the Dealer.
func (e *Engine) handleDeposit(ctx context.Context, msg messages.DepositSettled) {
	if e.dedup != nil {
		first, err := e.dedup.SetNX(ctx, "bank:deposit:"+msg.PaymentHash, 24*time.Hour)
		if err == nil && !first {
			return
		}
	}

	row, err := e.store.GetInvoiceByPaymentHash(ctx, msg.PaymentHash)
	if err != nil {
		return
	}
	if row.Settled {
		return
	}

	external := e.ledger.ExternalAccounts[ledger.BTC]
	var user *ledger.Account
	if row.UID == BankUID {
		user = e.ledger.InsuranceFund
	} else {
		user = e.ledger.User(row.UID).DefaultCashAccount(ledger.BTC)
	}
	amount := satsToBTC(row.AmountSat)

	if _, err := e.commitTransfer(ctx, external, user, BankUID, row.UID, amount, decimal.NewFromInt(1), &row.ID); err != nil {
		logger.Error("bank: failed to settle deposit", zap.String("payment_hash", msg.PaymentHash), zap.Error(err))
		return
	}

	if row.TargetAccountCurrency == nil || *row.TargetAccountCurrency == string(ledger.BTC) {
		return
	}
	target, err := ledger.ParseCurrency(*row.TargetAccountCurrency)
	if err != nil {
		return
	}

	rate := decimal.NewFromInt(1)
	if row.CachedRate != nil {
		rate = *row.CachedRate
	}

	outbound := e.ledger.User(row.UID).DefaultCashAccount(ledger.BTC)
	inbound := e.ledger.User(row.UID).DefaultCashAccount(target)
	if _, err := e.commitTransfer(ctx, outbound, inbound, row.UID, row.UID, amount, rate, nil); err != nil {
		logger.Error("bank: loopback swap after deposit failed", zap.Uint64("uid", row.UID), zap.Error(err))
		return
	}
	e.publishBankState()
}

// handlePaymentRequest pays a BOLT-11 invoice. An invoice this bank itself
// minted is settled as a direct internal transfer with no Lightning call;
// anything else is paid externally, reserving a network fee margin ahead
// of time and debiting the actual fee once the payment completes.
func (e *Engine) handlePaymentRequest(ctx context.Context, req messages.ApiPaymentRequest) {
	resp := messages.ApiPaymentResponse{UID: req.UID}

	decoded, err := e.lightning.DecodeInvoice(ctx, req.PaymentRequest)
	if err != nil {
		resp.Error = "invalid invoice"
		e.publish(resp)
		return
	}
	if decoded.IsExpired {
		resp.Error = "invalid invoice"
		e.publish(resp)
		return
	}
	if decoded.AmountSats <= 0 {
		resp.Error = "zero amount invoice"
		e.publish(resp)
		return
	}

	payer := e.ledger.User(req.UID).DefaultCashAccount(ledger.BTC)
	amount := satsToBTC(decoded.AmountSats)

	if owned, ok := e.invoiceOwner(ctx, decoded.PaymentHash); ok {
		if owned.Settled {
			resp.Error = "invoice already paid"
			e.publish(resp)
			return
		}
		if owned.UID == req.UID {
			resp.Error = "self payment rejected"
			e.publish(resp)
			return
		}

		feeSat := FlatFee(decoded.AmountSats, e.cfg.InternalTxFeeBps)
		fee := satsToBTC(feeSat)
		if payer.Balance.LessThan(amount.Add(fee)) {
			resp.Error = "insufficient funds"
			e.publish(resp)
			return
		}

		payee := e.ledger.User(owned.UID).DefaultCashAccount(ledger.BTC)
		if _, err := e.commitTransfer(ctx, payer, payee, req.UID, owned.UID, amount, decimal.NewFromInt(1), &owned.ID); err != nil {
			resp.Error = err.Error()
			e.publish(resp)
			return
		}
		e.collectFee(ctx, payer, req.UID, feeSat)

		resp.Success = true
		resp.FeeSat = feeSat
		resp.PaymentHash = decoded.PaymentHash
		e.publish(resp)
		return
	}

	bankFeeSat := FlatFee(decoded.AmountSats, e.cfg.ExternalTxFeeBps)
	bankFee := satsToBTC(bankFeeSat)
	lnFeeCapSat := ExternalFeeCap(decoded.AmountSats, e.cfg.LnNetworkFeeMarginBps)
	reserved := amount.Add(bankFee).Add(satsToBTC(lnFeeCapSat))
	if payer.Balance.LessThan(reserved) {
		resp.Error = "insufficient funds"
		e.publish(resp)
		return
	}

	result, err := e.lightning.PayInvoice(ctx, req.PaymentRequest, lnFeeCapSat)
	if err != nil {
		resp.Error = "payment failed"
		e.publish(resp)
		return
	}

	external := e.ledger.ExternalAccounts[ledger.BTC]
	if _, err := e.commitTransfer(ctx, payer, external, req.UID, BankUID, amount, decimal.NewFromInt(1), nil); err != nil {
		resp.Error = err.Error()
		e.publish(resp)
		return
	}
	if result.FeeSats > 0 {
		e.collectFeeTo(ctx, payer, req.UID, result.FeeSats, e.ledger.ExternalFeeAccounts[ledger.BTC])
	}
	e.collectFee(ctx, payer, req.UID, bankFeeSat)

	resp.Success = true
	resp.FeeSat = result.FeeSats + bankFeeSat
	resp.PaymentHash = result.PaymentHash
	e.publish(resp)
}

// collectFee debits payer for feeSat satoshis and credits the bank's own
// FeeAccount (its internal/external transaction fee revenue).
func (e *Engine) collectFee(ctx context.Context, payer *ledger.Account, payerUID uint64, feeSat int64) {
	e.collectFeeTo(ctx, payer, payerUID, feeSat, e.ledger.FeeAccount)
}

// collectFeeTo debits payer for feeSat satoshis and credits it to dest. A
// failure here is logged but not surfaced to the caller: the primary
// transfer already succeeded, and a missed fee collection is an
// accounting follow-up, not a reason to report the payment itself as
// failed.
func (e *Engine) collectFeeTo(ctx context.Context, payer *ledger.Account, payerUID uint64, feeSat int64, dest *ledger.Account) {
	if feeSat <= 0 {
		return
	}
	fee := satsToBTC(feeSat)
	if _, err := e.commitTransfer(ctx, payer, dest, payerUID, BankUID, fee, decimal.NewFromInt(1), nil); err != nil {
		logger.Error("bank: failed to collect fee", zap.Uint64("uid", payerUID), zap.Error(err))
	}
}

// invoiceOwner reports the invoice row owning paymentHash, if it matches
// one this bank minted. A payment whose hash isn't found in the bank's own
// invoice table is addressed to an external node. The caller must check
// Settled before crediting the owner: paying an already-settled invoice a
// second time must be rejected, not credited twice.
func (e *Engine) invoiceOwner(ctx context.Context, paymentHash string) (*database.InvoiceRow, bool) {
	row, err := e.store.GetInvoiceByPaymentHash(ctx, paymentHash)
	if err != nil {
		return nil, false
	}
	return row, true
}

// handleSwapRequest forwards a currency swap to the Dealer for rate
// resolution, remembering the request so the matching ApiSwapResponse can
// be completed against the Ledger. The currency-availability gate mirrors
// bank_engine.rs's own belief about what the Dealer can currently quote,
// independent of whatever the Dealer's response says.
func (e *Engine) handleSwapRequest(req messages.ApiSwapRequest) {
	for _, code := range []string{req.From, req.To} {
		if code == string(ledger.BTC) {
			continue
		}
		e.mu.Lock()
		available := e.dealerCurrencies[code]
		e.mu.Unlock()
		if !available {
			e.publish(messages.ApiSwapResponse{UID: req.UID, Success: false, Error: "currency not available"})
			return
		}
	}

	e.mu.Lock()
	e.pendingSwaps[req.UID] = req
	e.mu.Unlock()
	e.publish(req)
}

// handleSwapResponse arrives from the Dealer carrying the resolved rate
// (or a failure). On success it performs the actual ledger transfer and
// republishes the final outcome to the caller — unlike the reference
// engine, which silently drops an insufficient-funds swap with no
// response at all, this always answers the caller.
func (e *Engine) handleSwapResponse(ctx context.Context, resp messages.ApiSwapResponse) {
	e.mu.Lock()
	req, ok := e.pendingSwaps[resp.UID]
	if ok {
		delete(e.pendingSwaps, resp.UID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	if !resp.Success {
		e.publish(messages.ApiSwapResponse{UID: req.UID, Success: false, Error: resp.Error})
		return
	}

	from, err := ledger.ParseCurrency(req.From)
	if err != nil {
		e.publish(messages.ApiSwapResponse{UID: req.UID, Success: false, Error: "currency not available"})
		return
	}
	to, err := ledger.ParseCurrency(req.To)
	if err != nil {
		e.publish(messages.ApiSwapResponse{UID: req.UID, Success: false, Error: "currency not available"})
		return
	}

	outbound := e.ledger.User(req.UID).DefaultCashAccount(from)
	inbound := e.ledger.User(req.UID).DefaultCashAccount(to)

	if _, err := e.commitTransfer(ctx, outbound, inbound, req.UID, req.UID, req.Amount, resp.Rate, nil); err != nil {
		e.publish(messages.ApiSwapResponse{UID: req.UID, Success: false, Error: err.Error()})
		return
	}

	e.publish(messages.ApiSwapResponse{UID: req.UID, Success: true, Rate: resp.Rate})
	e.publishBankState()
}

// handleGetBalances answers with a user's full balance sheet. A single
// publish is enough: the bus delivers the same message independently to
// both the caller's correlation fabric and the Dealer's exposure-audit
// consumer group.
func (e *Engine) handleGetBalances(req messages.ApiGetBalances) {
	user := e.ledger.User(req.UID)

	accounts := make([]messages.AccountBalance, 0, len(user.Accounts))
	for _, acc := range user.Accounts {
		accounts = append(accounts, messages.AccountBalance{
			AccountID: acc.ID.String(),
			Currency:  string(acc.Currency),
			Type:      string(acc.Type),
			Balance:   acc.Balance,
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Currency < accounts[j].Currency })

	e.publish(messages.ApiBalancesResponse{UID: req.UID, Accounts: accounts})
}

// handleDealerHealth tracks which fiat currencies the Dealer can currently
// quote; InvoiceRequest and SwapRequest both refuse a currency this gate
// doesn't list, so a stalled or disconnected hedging venue can't be
// silently quoted against.
func (e *Engine) handleDealerHealth(msg messages.DealerHealth) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dealerCurrencies = make(map[string]bool, len(msg.AvailableCurrencies))
	if msg.Status != "Running" {
		return
	}
	for _, c := range msg.AvailableCurrencies {
		e.dealerCurrencies[c] = true
	}
}

// handleDealerCreateInvoiceRequest mints a withdrawal invoice on the
// Dealer's behalf so excess venue SAT balance can be swept out during
// housekeeping. The invoice is attributed to BankUID: it isn't a
// user-owned deposit, so Deposit settlement credits it to the insurance
// fund rather than to a user account.
func (e *Engine) handleDealerCreateInvoiceRequest(ctx context.Context, req messages.DealerCreateInvoiceRequest) {
	inv, err := e.lightning.CreateInvoice(ctx, req.AmountSat, req.Memo)
	if err != nil {
		e.publish(messages.DealerCreateInvoiceResponse{Error: "failed to create invoice"})
		return
	}

	row := &database.InvoiceRow{
		ID:             uuid.New(),
		UID:            BankUID,
		PaymentRequest: inv.PaymentRequest,
		PaymentHash:    inv.PaymentHash,
		AmountSat:      req.AmountSat,
		Memo:           req.Memo,
		CreatedAt:      time.Now(),
	}
	if err := e.store.CreateInvoice(ctx, row); err != nil {
		e.publish(messages.DealerCreateInvoiceResponse{Error: "failed to persist invoice"})
		return
	}

	e.publish(messages.DealerCreateInvoiceResponse{PaymentRequest: inv.PaymentRequest, PaymentHash: inv.PaymentHash})
}
