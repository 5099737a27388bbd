package dealer

import (
	"sort"

	"github.com/shopspring/decimal"
)

// quantities is the ladder of contract-quantity buckets UpdateQuotes walks
// for every symbol. A swap or quote lookup is priced at the shallowest
// bucket whose cumulative depth covers the requested size.
var quantities = []int64{10, 100, 1_000, 2_000, 3_000, 5_000, 10_000, 100_000, 1_000_000}

// level2Book is the last known order book snapshot for one symbol, keyed
// by price with the resting quantity at that price.
type level2Book struct {
	bids map[string]int64
	asks map[string]int64
}

func newLevel2Book() *level2Book {
	return &level2Book{bids: make(map[string]int64), asks: make(map[string]int64)}
}

// applySnapshot replaces the book's contents wholesale.
func (b *level2Book) applySnapshot(bids, asks map[string]decimal.Decimal) {
	b.bids = make(map[string]int64, len(bids))
	for price, qty := range bids {
		b.bids[price] = qty.IntPart()
	}
	b.asks = make(map[string]int64, len(asks))
	for price, qty := range asks {
		b.asks[price] = qty.IntPart()
	}
}

// applyDelta merges incremental price/quantity updates: a zero quantity
// removes the level, a positive quantity sets it.
func (b *level2Book) applyDelta(bids, asks map[string]decimal.Decimal) {
	for price, qty := range bids {
		applyLevel(b.bids, price, qty.IntPart())
	}
	for price, qty := range asks {
		applyLevel(b.asks, price, qty.IntPart())
	}
}

func applyLevel(side map[string]int64, price string, qty int64) {
	switch {
	case qty < 0:
		// negative deltas are not a valid protocol state; ignored rather
		// than corrupting the book.
	case qty == 0:
		delete(side, price)
	default:
		side[price] = qty
	}
}

// sortedPrices returns the book's price levels as decimals, ascending.
func sortedPrices(side map[string]int64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(side))
	for price := range side {
		d, err := decimal.NewFromString(price)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// quoteLadder holds, for one symbol, the volume-weighted-average price a
// market order of each bucketed quantity would fill at.
type quoteLadder struct {
	bid map[int64]decimal.Decimal
	ask map[int64]decimal.Decimal
}

// buildQuoteLadder walks the book from the best price outward, accumulating
// volume-weighted sums per quantities bucket: bids are walked from the
// highest price down (best bid first), asks from the lowest price up (best
// ask first). Bid prices round toward positive infinity, ask prices toward
// negative infinity, so the bank never quotes itself a better price than
// the book actually offers. A bucket with insufficient depth on a side is
// left unset on that side.
func buildQuoteLadder(book *level2Book, priceDP int32) quoteLadder {
	ladder := quoteLadder{bid: make(map[int64]decimal.Decimal), ask: make(map[int64]decimal.Decimal)}

	bidPrices := sortedPrices(book.bids)
	for i, j := 0, len(bidPrices)-1; i < j; i, j = i+1, j-1 {
		bidPrices[i], bidPrices[j] = bidPrices[j], bidPrices[i]
	}
	walkLadder(bidPrices, book.bids, quantities, ladder.bid, priceDP, true)

	askPrices := sortedPrices(book.asks)
	walkLadder(askPrices, book.asks, quantities, ladder.ask, priceDP, false)

	return ladder
}

func walkLadder(prices []decimal.Decimal, side map[string]int64, buckets []int64, out map[int64]decimal.Decimal, priceDP int32, roundUp bool) {
	levelIdx := 0
	var priceAtLevel decimal.Decimal
	var qtyAtLevel int64
	qtySoFar := int64(0)
	num := decimal.Zero

	nextLevel := func() bool {
		if levelIdx >= len(prices) {
			priceAtLevel = decimal.Zero
			qtyAtLevel = 0
			return false
		}
		priceAtLevel = prices[levelIdx]
		qtyAtLevel = side[priceAtLevel.String()]
		levelIdx++
		return true
	}
	nextLevel()

	for _, qty := range buckets {
		toMatch := qty - qtySoFar
		for toMatch > 0 {
			if toMatch <= qtyAtLevel {
				qtyAtLevel -= toMatch
				qtySoFar += toMatch
				num = num.Add(priceAtLevel.Mul(decimal.NewFromInt(toMatch)))
				toMatch = 0
			} else {
				qtySoFar += qtyAtLevel
				num = num.Add(priceAtLevel.Mul(decimal.NewFromInt(qtyAtLevel)))
				toMatch -= qtyAtLevel
				if !nextLevel() {
					break
				}
			}
		}
		if toMatch == 0 && qtySoFar > 0 {
			avg := num.DivRound(decimal.NewFromInt(qtySoFar), priceDP+2)
			if roundUp {
				avg = avg.RoundCeil(priceDP)
			} else {
				avg = avg.RoundFloor(priceDP)
			}
			out[qty] = avg
		}
	}
}

// bestBucket returns the lowest-quantity bucket whose cumulative depth
// covers requiredQty, or false if no bucket does.
func bestBucket(ladder map[int64]decimal.Decimal, requiredQty int64) (decimal.Decimal, bool) {
	best := int64(-1)
	for qty := range ladder {
		if qty >= requiredQty && (best == -1 || qty < best) {
			best = qty
		}
	}
	if best == -1 {
		return decimal.Decimal{}, false
	}
	return ladder[best], true
}

// topOfBook returns the best (smallest-bucket) quoted price on the given
// side, used to convert a BTC amount into an approximate fiat value before
// the bucket lookup.
func topOfBook(ladder map[int64]decimal.Decimal) (decimal.Decimal, bool) {
	best := int64(-1)
	for qty := range ladder {
		if best == -1 || qty < best {
			best = qty
		}
	}
	if best == -1 {
		return decimal.Decimal{}, false
	}
	return ladder[best], true
}
