package dealer

import (
	"context"
	"testing"

	"lnbank/internal/ledger"
	"lnbank/internal/messages"
	"lnbank/internal/venue"

	"github.com/shopspring/decimal"
)

// fakeVenue is a hand-rolled stand-in for *venue.Client, exercised without
// a live websocket connection.
type fakeVenue struct {
	authenticated bool
	positions     map[string]decimal.Decimal
	marks         map[string]decimal.Decimal
	balances      map[string]decimal.Decimal
	contracts     map[string]venue.ContractInfo
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		positions: map[string]decimal.Decimal{},
		marks:     map[string]decimal.Decimal{},
		balances:  map[string]decimal.Decimal{},
		contracts: map[string]venue.ContractInfo{},
	}
}

func (f *fakeVenue) IsAuthenticated() bool { return f.authenticated }

func (f *fakeVenue) Position(symbol string) (decimal.Decimal, bool) {
	p, ok := f.positions[symbol]
	return p, ok
}

func (f *fakeVenue) MarkPrice(symbol string) (decimal.Decimal, bool) {
	p, ok := f.marks[symbol]
	return p, ok
}

func (f *fakeVenue) Balance(currency string) (decimal.Decimal, bool) {
	b, ok := f.balances[currency]
	return b, ok
}

func (f *fakeVenue) Contract(symbol string) (venue.ContractInfo, bool) {
	c, ok := f.contracts[symbol]
	return c, ok
}

func (f *fakeVenue) TradableSymbols() map[string]venue.ContractInfo {
	out := make(map[string]venue.ContractInfo, len(f.contracts))
	for k, v := range f.contracts {
		out[k] = v
	}
	return out
}

// fakeOrderPlacer records every order it's asked to place.
type fakeOrderPlacer struct {
	orders []placedOrder
	err    error
}

type placedOrder struct {
	symbol   string
	side     ledger.Side
	quantity int64
}

func (f *fakeOrderPlacer) PlaceOrder(ctx context.Context, symbol string, side ledger.Side, quantity int64) error {
	f.orders = append(f.orders, placedOrder{symbol: symbol, side: side, quantity: quantity})
	return f.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// asksBook is the fixture used throughout: a thin book where bucket 10
// fills entirely at the best price and bucket 100 crosses into the second
// level, but bucket 1000 runs out of depth.
func asksBook() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"50000": dec("50"),
		"60000": dec("200"),
	}
}

func bidsBook() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"40000": dec("50"),
		"30000": dec("200"),
	}
}

func newTestEngine(t *testing.T, fv *fakeVenue) *Engine {
	t.Helper()
	e := New(Config{}, fv, nil, nil, func(messages.Message) {})
	e.applyOrderbookUpdate(messages.KolliderOrderbookLevel2{
		Symbol: "BTCUSD.PERP",
		Bids:   bidsBook(),
		Asks:   asksBook(),
	})
	return e
}

func TestBuildQuoteLadder(t *testing.T) {
	book := newLevel2Book()
	book.applySnapshot(bidsBook(), asksBook())
	ladder := buildQuoteLadder(book, 0)

	wantAsk := map[int64]string{10: "50000", 100: "55000"}
	for qty, want := range wantAsk {
		got, ok := ladder.ask[qty]
		if !ok {
			t.Fatalf("ask bucket %d: not set", qty)
		}
		if got.String() != want {
			t.Errorf("ask bucket %d = %s, want %s", qty, got, want)
		}
	}
	if _, ok := ladder.ask[1000]; ok {
		t.Errorf("ask bucket 1000 should be unset (insufficient depth)")
	}

	wantBid := map[int64]string{10: "40000", 100: "35000"}
	for qty, want := range wantBid {
		got, ok := ladder.bid[qty]
		if !ok {
			t.Fatalf("bid bucket %d: not set", qty)
		}
		if got.String() != want {
			t.Errorf("bid bucket %d = %s, want %s", qty, got, want)
		}
	}
	if _, ok := ladder.bid[1000]; ok {
		t.Errorf("bid bucket 1000 should be unset (insufficient depth)")
	}
}

func TestGetRateBTCToFiatFirstBucket(t *testing.T) {
	book := newLevel2Book()
	book.applySnapshot(bidsBook(), asksBook())
	ladder := buildQuoteLadder(book, 0)
	conv := ledger.NewConversionInfo(ledger.BTC, ledger.USD)

	amount := dec("0.0001") // 0.0001 * 50000 = 5, lands in bucket 10
	rate, ok := getRate(ladder, conv, &amount, nil)
	if !ok {
		t.Fatal("expected a rate")
	}
	want := dec("49750") // 50000 * 0.995
	if !rate.Equal(want) {
		t.Errorf("rate = %s, want %s", rate, want)
	}
}

func TestGetRateBTCToFiatSecondBucket(t *testing.T) {
	book := newLevel2Book()
	book.applySnapshot(bidsBook(), asksBook())
	ladder := buildQuoteLadder(book, 0)
	conv := ledger.NewConversionInfo(ledger.BTC, ledger.USD)

	amount := dec("0.001") // 0.001 * 50000 = 50, lands in bucket 100
	rate, ok := getRate(ladder, conv, &amount, nil)
	if !ok {
		t.Fatal("expected a rate")
	}
	want := dec("54725") // 55000 * 0.995
	if !rate.Equal(want) {
		t.Errorf("rate = %s, want %s", rate, want)
	}
}

func TestGetRateFiatToBTC(t *testing.T) {
	book := newLevel2Book()
	book.applySnapshot(bidsBook(), asksBook())
	ladder := buildQuoteLadder(book, 0)
	conv := ledger.NewConversionInfo(ledger.USD, ledger.BTC)

	amount := dec("5") // already in fiat terms, lands in bucket 10
	rate, ok := getRate(ladder, conv, &amount, nil)
	if !ok {
		t.Fatal("expected a rate")
	}
	want := decimal.NewFromInt(1).DivRound(dec("40000").Mul(buyBTCSpread), ledger.RateDP)
	if !rate.Equal(want) {
		t.Errorf("rate = %s, want %s", rate, want)
	}
}

func TestGetRateInsufficientDepth(t *testing.T) {
	book := newLevel2Book()
	book.applySnapshot(bidsBook(), asksBook())
	ladder := buildQuoteLadder(book, 0)
	conv := ledger.NewConversionInfo(ledger.BTC, ledger.USD)

	amount := dec("1") // 1 * 50000 = 50000, no bucket that deep
	_, ok := getRate(ladder, conv, &amount, nil)
	if ok {
		t.Error("expected no rate for a size exceeding quoted depth")
	}
}

func TestGetRateNoLadder(t *testing.T) {
	conv := ledger.NewConversionInfo(ledger.BTC, ledger.USD)
	amount := dec("0.0001")
	_, ok := getRate(quoteLadder{bid: map[int64]decimal.Decimal{}, ask: map[int64]decimal.Decimal{}}, conv, &amount, nil)
	if ok {
		t.Error("expected no rate from an empty ladder")
	}
}

func TestEngineRateForUnknownSymbol(t *testing.T) {
	fv := newFakeVenue()
	e := newTestEngine(t, fv)
	conv := ledger.NewConversionInfo(ledger.BTC, ledger.EUR)
	amount := dec("0.0001")
	_, ok := e.rateFor(conv, &amount, nil)
	if ok {
		t.Error("expected no rate for a symbol with no known book")
	}
}

func TestHandleQuoteRequestUnguaranteed(t *testing.T) {
	fv := newFakeVenue()
	e := newTestEngine(t, fv)

	var got messages.Message
	e.publish = func(m messages.Message) { got = m }

	amount := dec("0.0001")
	e.handleQuoteRequest(messages.ApiQuoteRequest{UID: 1, From: "BTC", To: "USD", Amount: &amount})

	resp, ok := got.(messages.ApiQuoteResponse)
	if !ok {
		t.Fatalf("got %T, want ApiQuoteResponse", got)
	}
	if resp.QuoteID != nil {
		t.Error("unguaranteed quote should not carry a quote id")
	}
	if !resp.Rate.Equal(dec("49750")) {
		t.Errorf("rate = %s, want 49750", resp.Rate)
	}
}

func TestGuaranteedQuoteRedeemAndExpire(t *testing.T) {
	fv := newFakeVenue()
	e := newTestEngine(t, fv)

	var got messages.Message
	e.publish = func(m messages.Message) { got = m }

	amount := dec("0.0001")
	e.handleQuoteRequest(messages.ApiQuoteRequest{UID: 7, From: "BTC", To: "USD", Amount: &amount, Guaranteed: true})

	quoteResp, ok := got.(messages.ApiQuoteResponse)
	if !ok || quoteResp.QuoteID == nil {
		t.Fatalf("expected a guaranteed quote response with a quote id, got %+v", got)
	}
	quoteID := *quoteResp.QuoteID

	// Redeeming with mismatched fields is rejected as tampering.
	e.handleSwapRequest(messages.ApiSwapRequest{UID: 7, From: "BTC", To: "USD", Amount: dec("0.0002"), QuoteID: &quoteID})
	swapResp, ok := got.(messages.ApiSwapResponse)
	if !ok {
		t.Fatalf("got %T, want ApiSwapResponse", got)
	}
	if swapResp.Success {
		t.Error("swap with mismatched amount should fail")
	}

	// Legitimate redemption succeeds and consumes the quote.
	e.handleSwapRequest(messages.ApiSwapRequest{UID: 7, From: "BTC", To: "USD", Amount: amount, QuoteID: &quoteID})
	swapResp, ok = got.(messages.ApiSwapResponse)
	if !ok {
		t.Fatalf("got %T, want ApiSwapResponse", got)
	}
	if !swapResp.Success || !swapResp.Rate.Equal(dec("49750")) {
		t.Fatalf("unexpected swap response: %+v", swapResp)
	}

	// A second redemption attempt finds the quote already gone.
	e.handleSwapRequest(messages.ApiSwapRequest{UID: 7, From: "BTC", To: "USD", Amount: amount, QuoteID: &quoteID})
	swapResp, ok = got.(messages.ApiSwapResponse)
	if !ok || swapResp.Success {
		t.Fatalf("expected the second redemption to fail, got %+v", swapResp)
	}
}

func TestGuaranteedQuoteGCOnExpiry(t *testing.T) {
	fv := newFakeVenue()
	e := newTestEngine(t, fv)

	e.mu.Lock()
	e.guaranteedQuotes[123] = quoteRecord{uid: 1, from: "BTC", to: "USD", amount: dec("1"), rate: dec("50000"), createdAtMicros: 1}
	e.mu.Unlock()

	e.mu.Lock()
	e.gcExpiredQuotes(nowMicros())
	_, stillThere := e.guaranteedQuotes[123]
	e.mu.Unlock()

	if stillThere {
		t.Error("expected a quote created at micros=1 to have been garbage collected")
	}
}

func TestCheckRiskPlacesOrderWhenOutOfTolerance(t *testing.T) {
	fv := newFakeVenue()
	fv.positions["BTCUSD.PERP"] = dec("-50")
	placer := &fakeOrderPlacer{}
	e := New(Config{RiskTolerances: map[ledger.Currency]int64{ledger.USD: 5}}, fv, nil, placer, func(messages.Message) {})

	e.CheckRisk(context.Background(), messages.DealerBankStateUpdate{
		ExposureByCurrency: map[string]decimal.Decimal{"USD": dec("100")},
	})

	if len(placer.orders) != 1 {
		t.Fatalf("expected one order, got %d", len(placer.orders))
	}
	order := placer.orders[0]
	if order.symbol != "BTCUSD.PERP" {
		t.Errorf("symbol = %s, want BTCUSD.PERP", order.symbol)
	}
	// required = -100, held = -50, delta = -50, negative -> Ask (sell more).
	if order.side != ledger.Ask {
		t.Errorf("side = %s, want Ask", order.side)
	}
	if order.quantity != 50 {
		t.Errorf("quantity = %d, want 50", order.quantity)
	}
}

func TestCheckRiskFractionalExposureTruncatesTowardZero(t *testing.T) {
	fv := newFakeVenue()
	fv.positions["BTCUSD.PERP"] = dec("0")
	placer := &fakeOrderPlacer{}
	e := New(Config{RiskTolerances: map[ledger.Currency]int64{ledger.USD: 1}}, fv, nil, placer, func(messages.Message) {})

	e.CheckRisk(context.Background(), messages.DealerBankStateUpdate{
		ExposureByCurrency: map[string]decimal.Decimal{"USD": dec("-0.3")},
	})

	// required = calcNumContractsForValue(-0.3) = 0, held = 0, delta = 0,
	// within a 1-contract tolerance: no hedge needed. RoundFloor toward -1
	// would wrongly put delta at the tolerance boundary and place an order.
	if len(placer.orders) != 0 {
		t.Fatalf("expected no orders for a sub-contract exposure, got %d", len(placer.orders))
	}
}

func TestCheckRiskSkipsWithinTolerance(t *testing.T) {
	fv := newFakeVenue()
	fv.positions["BTCUSD.PERP"] = dec("-99")
	placer := &fakeOrderPlacer{}
	e := New(Config{RiskTolerances: map[ledger.Currency]int64{ledger.USD: 5}}, fv, nil, placer, func(messages.Message) {})

	e.CheckRisk(context.Background(), messages.DealerBankStateUpdate{
		ExposureByCurrency: map[string]decimal.Decimal{"USD": dec("100")},
	})

	if len(placer.orders) != 0 {
		t.Fatalf("expected no orders within tolerance, got %d", len(placer.orders))
	}
}

func TestCalcNumContractsForValue(t *testing.T) {
	cases := []struct {
		name  string
		value decimal.Decimal
		want  decimal.Decimal
	}{
		{"positive fraction rounds away from zero", dec("0.3"), dec("1")},
		{"negative fraction truncates toward zero", dec("-0.3"), dec("0")},
		{"negative whole number unaffected", dec("-4"), dec("-4")},
		{"zero stays zero", dec("0"), dec("0")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calcNumContractsForValue(tc.value)
			if !got.Equal(tc.want) {
				t.Errorf("calcNumContractsForValue(%s) = %s, want %s", tc.value, got, tc.want)
			}
		})
	}
}

func TestCheckRiskBuySide(t *testing.T) {
	fv := newFakeVenue()
	fv.positions["BTCUSD.PERP"] = dec("-150")
	placer := &fakeOrderPlacer{}
	e := New(Config{RiskTolerances: map[ledger.Currency]int64{ledger.USD: 5}}, fv, nil, placer, func(messages.Message) {})

	e.CheckRisk(context.Background(), messages.DealerBankStateUpdate{
		ExposureByCurrency: map[string]decimal.Decimal{"USD": dec("100")},
	})

	if len(placer.orders) != 1 {
		t.Fatalf("expected one order, got %d", len(placer.orders))
	}
	// required = -100, held = -150, delta = +50, positive -> Bid (buy more).
	if placer.orders[0].side != ledger.Bid {
		t.Errorf("side = %s, want Bid", placer.orders[0].side)
	}
}

func TestCheckHealth(t *testing.T) {
	fv := newFakeVenue()
	fv.authenticated = true
	fv.contracts["BTCUSD.PERP"] = venue.ContractInfo{Symbol: "BTCUSD.PERP", PriceDP: 0}
	fv.contracts["BTCEUR.PERP"] = venue.ContractInfo{Symbol: "BTCEUR.PERP", PriceDP: 0}

	var got messages.Message
	e := New(Config{}, fv, nil, nil, func(m messages.Message) { got = m })
	e.CheckHealth()

	health, ok := got.(messages.DealerHealth)
	if !ok {
		t.Fatalf("got %T, want DealerHealth", got)
	}
	if health.Status != "Running" {
		t.Errorf("status = %s, want Running", health.Status)
	}
	want := map[string]bool{"USD": true, "EUR": true, "BTC": true}
	if len(health.AvailableCurrencies) != len(want) {
		t.Fatalf("currencies = %v, want %v", health.AvailableCurrencies, want)
	}
	for _, c := range health.AvailableCurrencies {
		if !want[c] {
			t.Errorf("unexpected currency %s", c)
		}
	}
}

func TestCheckHealthDown(t *testing.T) {
	fv := newFakeVenue()
	var got messages.Message
	e := New(Config{}, fv, nil, nil, func(m messages.Message) { got = m })
	e.CheckHealth()

	health, ok := got.(messages.DealerHealth)
	if !ok || health.Status != "Down" {
		t.Fatalf("expected Down status, got %+v", got)
	}
}

func TestSweepExcessFunds(t *testing.T) {
	fv := newFakeVenue()
	fv.balances["SAT"] = dec("5000")

	var got messages.Message
	e := New(Config{}, fv, nil, nil, func(m messages.Message) { got = m })
	e.SweepExcessFunds(context.Background())

	req, ok := got.(messages.DealerCreateInvoiceRequest)
	if !ok {
		t.Fatalf("got %T, want DealerCreateInvoiceRequest", got)
	}
	if req.AmountSat != 5000 {
		t.Errorf("amount_sat = %d, want 5000", req.AmountSat)
	}
}

func TestSweepExcessFundsBelowThreshold(t *testing.T) {
	fv := newFakeVenue()
	fv.balances["SAT"] = dec("100")

	called := false
	e := New(Config{}, fv, nil, nil, func(m messages.Message) { called = true })
	e.SweepExcessFunds(context.Background())

	if called {
		t.Error("expected no sweep below the threshold")
	}
}

func TestHandleInvoiceRequestBTCNoRate(t *testing.T) {
	fv := newFakeVenue()
	var got messages.Message
	e := New(Config{}, fv, nil, nil, func(m messages.Message) { got = m })
	e.handleInvoiceRequest(messages.DealerInvoiceRequest{UID: 1, Currency: "BTC", AmountSat: 1000})

	rate, ok := got.(messages.DealerInvoiceRate)
	if !ok {
		t.Fatalf("got %T, want DealerInvoiceRate", got)
	}
	if rate.Rate != nil {
		t.Error("expected no rate for a BTC-denominated invoice")
	}
}

func TestHandleAvailableCurrenciesRequest(t *testing.T) {
	fv := newFakeVenue()
	fv.contracts["BTCGBP.PERP"] = venue.ContractInfo{Symbol: "BTCGBP.PERP", PriceDP: 0}

	var got messages.Message
	e := New(Config{}, fv, nil, nil, func(m messages.Message) { got = m })
	e.handleAvailableCurrenciesRequest()

	resp, ok := got.(messages.ApiAvailableCurrenciesResponse)
	if !ok {
		t.Fatalf("got %T, want ApiAvailableCurrenciesResponse", got)
	}
	want := map[string]bool{"GBP": true, "BTC": true}
	if len(resp.Currencies) != len(want) {
		t.Fatalf("currencies = %v", resp.Currencies)
	}
	for _, c := range resp.Currencies {
		if !want[c] {
			t.Errorf("unexpected currency %s", c)
		}
	}
}
