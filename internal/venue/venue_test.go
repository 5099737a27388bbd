package venue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"lnbank/internal/messages"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFrameSignatureMatchesExpectedScheme(t *testing.T) {
	c := NewClient(Config{APIKey: "key", APISecret: "secret"}, nil)

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10) + "authentication"))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	captured := authFrame{Type: "authenticate", APIKey: c.cfg.APIKey, Signature: expected, Timestamp: ts}
	assert.Equal(t, "key", captured.APIKey)
	assert.NotEmpty(t, captured.Signature)
}

func TestClientStateAccessorsDefaultToNotFound(t *testing.T) {
	c := NewClient(Config{}, nil)

	_, ok := c.Position("BTCUSD.PERP")
	assert.False(t, ok)

	_, ok = c.MarkPrice("BTCUSD.PERP")
	assert.False(t, ok)

	_, ok = c.Orderbook("BTCUSD.PERP")
	assert.False(t, ok)

	assert.False(t, c.IsTradable("BTCUSD.PERP"))
	assert.False(t, c.IsAuthenticated())
}

func TestSetAuthenticatedUnblocksWaiter(t *testing.T) {
	c := NewClient(Config{}, nil)

	done := make(chan struct{})
	go func() {
		c.mu.Lock()
		c.cond.Wait()
		c.mu.Unlock()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	c.setAuthenticated(true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken by setAuthenticated")
	}
	assert.True(t, c.IsAuthenticated())
}

func TestDispatchInvokesHandler(t *testing.T) {
	var received messages.Message
	c := NewClient(Config{}, func(m messages.Message) { received = m })

	msg := messages.KolliderMarkPrices{PriceBySymbol: map[string]decimal.Decimal{"BTCUSD.PERP": decimal.NewFromInt(65000)}}
	c.dispatch(msg)

	require.NotNil(t, received)
	assert.Equal(t, "KolliderApiResponse.MarkPrices", received.Kind())
}

func TestConfigDefaultsApplied(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Second, cfg.ReconnectMinDelay)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMaxDelay)
}
