// Package dealer implements the hedging and quoting engine: it derives
// BTC<->fiat exchange rates from the hedging venue's order book, issues
// time-limited guaranteed quotes, and keeps the bank's aggregate exposure
// hedged within a configured tolerance.
package dealer

import (
	"context"
	"sync"
	"time"

	"lnbank/internal/ledger"
	"lnbank/internal/messages"
	"lnbank/internal/priceref"
	"lnbank/internal/venue"
	"lnbank/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// quoteTTL is how long a guaranteed quote remains redeemable.
const quoteTTL = 5 * time.Second

// OrderPlacer hedges the bank's exposure on the venue. Implementations
// place a market order of quantity contracts on the given side.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, symbol string, side ledger.Side, quantity int64) error
}

// VenueView is the subset of *venue.Client the Dealer Engine reads from.
// Expressed as an interface so the engine's quoting and hedging logic can
// be tested against a fake without a live websocket connection.
type VenueView interface {
	IsAuthenticated() bool
	Position(symbol string) (decimal.Decimal, bool)
	MarkPrice(symbol string) (decimal.Decimal, bool)
	Balance(currency string) (decimal.Decimal, bool)
	Contract(symbol string) (venue.ContractInfo, bool)
	TradableSymbols() map[string]venue.ContractInfo
}

// Publish emits a response or housekeeping message, the Dealer Engine's
// equivalent of the Bank Engine's outbound envelope publish.
type Publish func(messages.Message)

// Config holds the Dealer Engine's tunables.
type Config struct {
	// RiskTolerances bounds, per fiat currency, how many contracts of
	// hedging drift are tolerated before CheckRisk places an order.
	RiskTolerances map[ledger.Currency]int64
	// DivergenceTolerancePercent is the maximum percent deviation allowed
	// between the venue's mark price and the independent reference price
	// before housekeeping logs a warning.
	DivergenceTolerancePercent float64
	// ReferenceFiatCurrency is the fiat leg priceref.CheckDivergence
	// cross-checks the venue's mark price against.
	ReferenceFiatCurrency string
	// ExcessSatThreshold is the SAT cash balance on the venue above which
	// SweepExcessFunds requests a withdrawal invoice.
	ExcessSatThreshold decimal.Decimal
}

func (c Config) withDefaults() Config {
	if c.RiskTolerances == nil {
		c.RiskTolerances = map[ledger.Currency]int64{}
	}
	if c.ReferenceFiatCurrency == "" {
		c.ReferenceFiatCurrency = "USD"
	}
	if c.ExcessSatThreshold.IsZero() {
		c.ExcessSatThreshold = decimal.NewFromInt(1000)
	}
	return c
}

// quoteRecord is a previously issued guaranteed quote, kept until it
// expires or is redeemed by a matching SwapRequest.
type quoteRecord struct {
	uid             uint64
	from, to        string
	amount          decimal.Decimal
	rate            decimal.Decimal
	createdAtMicros uint64
}

// Engine owns the order-book-derived quote ladders, the guaranteed-quote
// store, and the hedging controller. All state is mutex-guarded; Engine is
// safe to drive from multiple goroutines (the venue read loop and the
// housekeeping tickers).
type Engine struct {
	cfg           Config
	venueClient   VenueView
	priceProvider priceref.PriceProvider
	orderPlacer   OrderPlacer
	publish       Publish

	mu               sync.Mutex
	books            map[string]*level2Book
	ladders          map[string]quoteLadder
	guaranteedQuotes map[uint64]quoteRecord
	lastBankState    *messages.DealerBankStateUpdate
}

// New constructs a Dealer Engine. priceProvider and orderPlacer may be nil;
// housekeeping and hedging simply skip the steps that need them.
func New(cfg Config, venueClient VenueView, priceProvider priceref.PriceProvider, orderPlacer OrderPlacer, publish Publish) *Engine {
	return &Engine{
		cfg:              cfg.withDefaults(),
		venueClient:      venueClient,
		priceProvider:    priceProvider,
		orderPlacer:      orderPlacer,
		publish:          publish,
		books:            make(map[string]*level2Book),
		ladders:          make(map[string]quoteLadder),
		guaranteedQuotes: make(map[uint64]quoteRecord),
	}
}

// HandleVenueMessage is the venue.Handler hook: it keeps the order books
// and derived quote ladders current as venue frames arrive.
func (e *Engine) HandleVenueMessage(msg messages.Message) {
	switch m := msg.(type) {
	case messages.KolliderOrderbookLevel2:
		e.applyOrderbookUpdate(m)
	}
}

func (e *Engine) applyOrderbookUpdate(update messages.KolliderOrderbookLevel2) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[update.Symbol]
	if !ok {
		book = newLevel2Book()
		e.books[update.Symbol] = book
	}
	book.applySnapshot(update.Bids, update.Asks)

	priceDP := int32(0)
	if info, ok := e.venueClient.Contract(update.Symbol); ok {
		priceDP = info.PriceDP
	}
	e.ladders[update.Symbol] = buildQuoteLadder(book, priceDP)
}

// ApplyOrderbookDelta merges an incremental update into the symbol's book
// and recomputes its ladder. Exposed separately from
// applyOrderbookUpdate/HandleVenueMessage so callers that distinguish
// snapshot from delta frames (a transport-level concern this package
// doesn't own) can drive it directly.
func (e *Engine) ApplyOrderbookDelta(symbol string, bids, asks map[string]decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[symbol]
	if !ok {
		book = newLevel2Book()
		e.books[symbol] = book
	}
	book.applyDelta(bids, asks)

	priceDP := int32(0)
	if info, ok := e.venueClient.Contract(symbol); ok {
		priceDP = info.PriceDP
	}
	e.ladders[symbol] = buildQuoteLadder(book, priceDP)
}

// rateFor resolves a rate for conv using the currently known ladder,
// without touching the guaranteed-quote store.
func (e *Engine) rateFor(conv ledger.ConversionInfo, amount, value *decimal.Decimal) (decimal.Decimal, bool) {
	e.mu.Lock()
	ladder, ok := e.ladders[conv.Symbol]
	e.mu.Unlock()
	if !ok {
		return decimal.Decimal{}, false
	}
	return getRate(ladder, conv, amount, value)
}

// gcExpiredQuotes drops guaranteed quotes older than quoteTTL. Must be
// called with e.mu held.
func (e *Engine) gcExpiredQuotes(nowMicros uint64) {
	cutoff := uint64(quoteTTL / time.Microsecond)
	if nowMicros < cutoff {
		return
	}
	floor := nowMicros - cutoff
	for id, q := range e.guaranteedQuotes {
		if q.createdAtMicros < floor {
			delete(e.guaranteedQuotes, id)
		}
	}
}

func nowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

// Run drives the housekeeping tickers (health, risk, sweep) until ctx is
// cancelled. Intended to run in its own goroutine for the Dealer's
// lifetime.
func (e *Engine) Run(ctx context.Context, healthInterval, riskInterval, sweepInterval time.Duration) {
	healthTicker := time.NewTicker(healthInterval)
	riskTicker := time.NewTicker(riskInterval)
	sweepTicker := time.NewTicker(sweepInterval)
	defer healthTicker.Stop()
	defer riskTicker.Stop()
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-healthTicker.C:
			e.CheckHealth()
		case <-riskTicker.C:
			e.recheckLastBankState(ctx)
		case <-sweepTicker.C:
			e.SweepExcessFunds(ctx)
			e.checkDivergence(ctx)
		}
	}
}

// recheckLastBankState re-runs the hedging controller against the most
// recently seen exposure snapshot, so a venue price move between
// Dealer.BankStateUpdate messages still gets corrected.
func (e *Engine) recheckLastBankState(ctx context.Context) {
	e.mu.Lock()
	bankState := e.lastBankState
	e.mu.Unlock()
	if bankState == nil {
		return
	}
	e.CheckRisk(ctx, *bankState)
}

func (e *Engine) checkDivergence(ctx context.Context) {
	if e.priceProvider == nil {
		return
	}
	symbol, err := ledger.Currency(e.cfg.ReferenceFiatCurrency).Symbol()
	if err != nil {
		return
	}
	markPrice, ok := e.venueClient.MarkPrice(symbol)
	if !ok {
		return
	}
	venuePrice, _ := markPrice.Float64()
	report, err := priceref.CheckDivergence(ctx, e.priceProvider, e.cfg.ReferenceFiatCurrency, venuePrice, e.cfg.DivergenceTolerancePercent)
	if err != nil {
		logger.Warn("dealer: reference price check failed", zap.Error(err))
		return
	}
	if report.Exceeded {
		logger.Warn("dealer: venue mark price diverges from reference",
			zap.Float64("venue_price", report.VenuePrice),
			zap.Float64("reference_price", report.ReferencePrice),
			zap.Float64("percent_diff", report.PercentDiff))
	}
}
