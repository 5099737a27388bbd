package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRateExchangeTruncatesTowardZero(t *testing.T) {
	rate := NewRate(BTC, USD, decimal.NewFromInt(50000))
	btc := NewMoney(BTC, decimal.NewFromFloat(0.00000333))

	usd, err := rate.Exchange(btc, USD)
	require.NoError(t, err)
	require.Equal(t, USD, usd.Currency)
	require.True(t, usd.Amount.GreaterThan(decimal.Zero))

	// 0.5 * 0.3333333333333333 = 0.16666666666666665, which rounds half-up
	// to ...667 but truncates to ...666 at RateDP places.
	third := NewRate(BTC, USD, decimal.NewFromInt(1).DivRound(decimal.NewFromInt(3), RateDP))
	half, err := third.Exchange(NewMoney(BTC, decimal.RequireFromString("0.5")), USD)
	require.NoError(t, err)
	require.True(t, half.Amount.Equal(decimal.RequireFromString("0.1666666666666666")))
}

func TestRateExchangeFlipsToInverse(t *testing.T) {
	rate := NewRate(BTC, USD, decimal.NewFromInt(50000))
	usd := NewMoney(USD, decimal.NewFromInt(100))

	btc, err := rate.Exchange(usd, BTC)
	require.NoError(t, err)
	require.Equal(t, BTC, btc.Currency)

	back, err := rate.Exchange(btc, USD)
	require.NoError(t, err)
	// round-trip should recover approximately the original amount, never
	// more — truncation only ever loses value, never creates it.
	require.True(t, back.Amount.LessThanOrEqual(usd.Amount))
}

func TestRateExchangeRejectsUnrelatedCurrencies(t *testing.T) {
	rate := NewRate(BTC, USD, decimal.NewFromInt(50000))
	eur := NewMoney(EUR, decimal.NewFromInt(10))

	_, err := rate.Exchange(eur, GBP)
	require.Error(t, err)
}

func TestMoneyAddPanicsOnCurrencyMismatch(t *testing.T) {
	defer func() {
		require.NotNil(t, recover())
	}()
	a := NewMoney(BTC, decimal.NewFromInt(1))
	b := NewMoney(USD, decimal.NewFromInt(1))
	a.Add(b)
}
