package messages

import "github.com/shopspring/decimal"

// KolliderPositionStates reports the venue's current signed position per
// symbol, used by the hedging controller as current_contracts.
type KolliderPositionStates struct {
	PositionBySymbol map[string]decimal.Decimal `json:"position_by_symbol"`
}

func (KolliderPositionStates) isMessage()      {}
func (KolliderPositionStates) Kind() string    { return "KolliderApiResponse.PositionStates" }
func (KolliderPositionStates) Validate() error { return nil }

// KolliderMarkPrices reports the venue's mark price per symbol.
type KolliderMarkPrices struct {
	PriceBySymbol map[string]decimal.Decimal `json:"price_by_symbol"`
}

func (KolliderMarkPrices) isMessage()      {}
func (KolliderMarkPrices) Kind() string    { return "KolliderApiResponse.MarkPrices" }
func (KolliderMarkPrices) Validate() error { return nil }

// KolliderOrderbookLevel2 is one incremental or snapshot level-2 update for
// a symbol's order book, the trigger for the Dealer's UpdateQuotes pass.
type KolliderOrderbookLevel2 struct {
	Symbol string                     `json:"symbol"`
	Bids   map[string]decimal.Decimal `json:"bids"`
	Asks   map[string]decimal.Decimal `json:"asks"`
}

func (KolliderOrderbookLevel2) isMessage()      {}
func (KolliderOrderbookLevel2) Kind() string    { return "KolliderApiResponse.OrderbookLevel2" }
func (KolliderOrderbookLevel2) Validate() error { return nil }

func init() {
	register("KolliderApiResponse.PositionStates", func() Message { return &KolliderPositionStates{} })
	register("KolliderApiResponse.MarkPrices", func() Message { return &KolliderMarkPrices{} })
	register("KolliderApiResponse.OrderbookLevel2", func() Message { return &KolliderOrderbookLevel2{} })
}
