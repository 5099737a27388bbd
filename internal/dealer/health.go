package dealer

import (
	"strings"
	"time"

	"lnbank/internal/messages"
)

// CheckHealth publishes the Dealer's current status: Running with the list
// of currencies it can quote (derived from the venue's tradable symbols),
// or Down if the venue connection isn't authenticated.
func (e *Engine) CheckHealth() {
	status := "Down"
	if e.venueClient.IsAuthenticated() {
		status = "Running"
	}

	e.publish(messages.DealerHealth{
		Status:              status,
		AvailableCurrencies: e.tradableFiatCurrencies(),
		TimestampUnixMs:     time.Now().UnixMilli(),
	})
}

// splitSymbol parses a "BTCUSD.PERP"-shaped symbol into its base and quote
// currency codes.
func splitSymbol(symbol string) (base, quote string, ok bool) {
	pair, _, found := strings.Cut(symbol, ".")
	if !found || len(pair) < 6 {
		return "", "", false
	}
	return pair[:3], pair[3:6], true
}
