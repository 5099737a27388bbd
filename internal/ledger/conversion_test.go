package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConversionInfoBTCToUSDIsAsk(t *testing.T) {
	info := NewConversionInfo(BTC, USD)
	require.Equal(t, USD, info.Fiat)
	require.Equal(t, "BTCUSD.PERP", info.Symbol)
	require.Equal(t, Ask, info.Side)
}

func TestNewConversionInfoUSDToBTCIsBid(t *testing.T) {
	info := NewConversionInfo(USD, BTC)
	require.Equal(t, USD, info.Fiat)
	require.Equal(t, Bid, info.Side)
}

func TestNewConversionInfoPanicsOnSameCurrency(t *testing.T) {
	defer func() { require.NotNil(t, recover()) }()
	NewConversionInfo(BTC, BTC)
}

func TestNewConversionInfoPanicsWithoutBTCLeg(t *testing.T) {
	defer func() { require.NotNil(t, recover()) }()
	NewConversionInfo(USD, EUR)
}

func TestNewConversionInfoPanicsForKKP(t *testing.T) {
	defer func() { require.NotNil(t, recover()) }()
	NewConversionInfo(BTC, KKP)
}
