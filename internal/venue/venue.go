// Package venue is a persistent websocket client for the hedging venue the
// Dealer Engine uses to offset net BTC exposure. It owns a single
// connection, a mutex-guarded view of venue state, and a condition variable
// so callers can wait cheaply for the next update rather than poll.
package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"lnbank/internal/ledger"
	"lnbank/internal/messages"
	"lnbank/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds connection and authentication settings for a venue.
type Config struct {
	URL               string
	APIKey            string
	APISecret         string
	Passphrase        string
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectMinDelay == 0 {
		c.ReconnectMinDelay = time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	return c
}

// OrderbookState is the last known level-2 snapshot for one symbol.
type OrderbookState struct {
	Bids map[string]decimal.Decimal
	Asks map[string]decimal.Decimal
}

// ContractInfo is the venue-supplied metadata for one tradable symbol,
// notably the number of decimal places its quoted price carries.
type ContractInfo struct {
	Symbol  string
	PriceDP int32
}

// Handler is invoked with every typed message the read loop decodes;
// cmd/dealerd passes them to the Dealer Engine's HandleVenueMessage.
type Handler func(messages.Message)

// Client owns the websocket connection and the venue state it observes.
// All state access goes through the mutex; waiters block on cond until the
// read loop signals a new frame was processed.
type Client struct {
	cfg     Config
	handler Handler

	connMu sync.Mutex
	conn   *websocket.Conn

	mu              sync.Mutex
	cond            *sync.Cond
	isAuthenticated bool
	positionBySymbol map[string]decimal.Decimal
	priceBySymbol    map[string]decimal.Decimal
	orderbooks       map[string]OrderbookState
	balances         map[string]decimal.Decimal
	tradableSymbols  map[string]ContractInfo
}

// NewClient constructs a venue client without connecting. Call Run to
// establish and maintain the connection. handler, if non-nil, receives
// every decoded venue message.
func NewClient(cfg Config, handler Handler) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:              cfg,
		handler:          handler,
		positionBySymbol: make(map[string]decimal.Decimal),
		priceBySymbol:    make(map[string]decimal.Decimal),
		orderbooks:       make(map[string]OrderbookState),
		balances:         make(map[string]decimal.Decimal),
		tradableSymbols:  make(map[string]ContractInfo),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Run dials the venue and services it until ctx is cancelled, reconnecting
// with exponential backoff on any drop. Intended to run in its own
// goroutine for the lifetime of the Dealer Engine.
func (c *Client) Run(ctx context.Context) {
	delay := c.cfg.ReconnectMinDelay
	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.connectAndServe(ctx); err != nil {
			logger.Warn("venue: connection lost, reconnecting", zap.Error(err), zap.Duration("delay", delay))
			c.setAuthenticated(false)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.ReconnectMaxDelay {
			delay = c.cfg.ReconnectMaxDelay
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("venue: dial failed: %w", err)
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer conn.Close()

	if err := c.authenticate(); err != nil {
		return fmt.Errorf("venue: authentication failed: %w", err)
	}

	logger.Info("venue: connected", zap.String("url", c.cfg.URL))
	return c.readLoop(ctx)
}

// authFrame is the message sent to prove control of the API secret. The
// passphrase travels in clear alongside the signature, the same three-factor
// scheme Coinbase Pro-style venues use: it identifies the sub-account the
// key was issued under rather than proving possession of anything itself.
type authFrame struct {
	Type       string `json:"type"`
	APIKey     string `json:"api_key"`
	Passphrase string `json:"passphrase,omitempty"`
	Signature  string `json:"signature"`
	Timestamp  int64  `json:"timestamp"`
}

// authenticate signs "{unix_ts}authentication" with the venue's API secret
// and sends the resulting auth frame.
func (c *Client) authenticate() error {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10) + "authentication"))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	frame := authFrame{
		Type:       "authenticate",
		APIKey:     c.cfg.APIKey,
		Passphrase: c.cfg.Passphrase,
		Signature:  signature,
		Timestamp:  ts,
	}
	return c.send(frame)
}

func (c *Client) send(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn.WriteJSON(v)
}

// rawFrame is the minimal shape every inbound venue frame shares: enough to
// route to the matching messages.Message decoder.
type rawFrame struct {
	Type string `json:"type"`
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("venue: read failed: %w", err)
		}

		var raw rawFrame
		if err := json.Unmarshal(data, &raw); err != nil {
			logger.Warn("venue: malformed frame", zap.Error(err))
			continue
		}

		switch raw.Type {
		case "authenticated":
			c.setAuthenticated(true)
			continue
		case "tradable_symbols":
			var payload struct {
				Symbols []struct {
					Symbol  string `json:"symbol"`
					PriceDP int32  `json:"price_dp"`
				} `json:"symbols"`
			}
			if err := json.Unmarshal(data, &payload); err == nil {
				c.mu.Lock()
				for _, s := range payload.Symbols {
					c.tradableSymbols[s.Symbol] = ContractInfo{Symbol: s.Symbol, PriceDP: s.PriceDP}
				}
				c.mu.Unlock()
			}
		case "balances":
			var payload struct {
				BalanceByCurrency map[string]decimal.Decimal `json:"balance_by_currency"`
			}
			if err := json.Unmarshal(data, &payload); err == nil {
				c.mu.Lock()
				for k, v := range payload.BalanceByCurrency {
					c.balances[k] = v
				}
				c.mu.Unlock()
			}
		case "KolliderApiResponse.PositionStates":
			var msg messages.KolliderPositionStates
			if err := json.Unmarshal(data, &msg); err == nil {
				c.mu.Lock()
				for k, v := range msg.PositionBySymbol {
					c.positionBySymbol[k] = v
				}
				c.mu.Unlock()
				c.dispatch(msg)
			}
		case "KolliderApiResponse.MarkPrices":
			var msg messages.KolliderMarkPrices
			if err := json.Unmarshal(data, &msg); err == nil {
				c.mu.Lock()
				for k, v := range msg.PriceBySymbol {
					c.priceBySymbol[k] = v
				}
				c.mu.Unlock()
				c.dispatch(msg)
			}
		case "KolliderApiResponse.OrderbookLevel2":
			var msg messages.KolliderOrderbookLevel2
			if err := json.Unmarshal(data, &msg); err == nil {
				c.mu.Lock()
				c.orderbooks[msg.Symbol] = OrderbookState{Bids: msg.Bids, Asks: msg.Asks}
				c.mu.Unlock()
				c.dispatch(msg)
			}
		default:
			logger.Debug("venue: ignoring unrecognized frame type", zap.String("type", raw.Type))
			continue
		}

		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}

func (c *Client) dispatch(msg messages.Message) {
	if c.handler != nil {
		c.handler(msg)
	}
}

// IsAuthenticated reports whether the venue has acknowledged
// authentication. Hedging must be suspended while this is false.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAuthenticated
}

func (c *Client) setAuthenticated(v bool) {
	c.mu.Lock()
	c.isAuthenticated = v
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Position returns the last known signed position for symbol.
func (c *Client) Position(symbol string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.positionBySymbol[symbol]
	return p, ok
}

// MarkPrice returns the last known mark price for symbol.
func (c *Client) MarkPrice(symbol string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.priceBySymbol[symbol]
	return p, ok
}

// Orderbook returns the last known level-2 snapshot for symbol.
func (c *Client) Orderbook(symbol string) (OrderbookState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ob, ok := c.orderbooks[symbol]
	return ob, ok
}

// Balance returns the last known balance for currency.
func (c *Client) Balance(currency string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[currency]
	return b, ok
}

// IsTradable reports whether symbol is currently tradable on the venue.
func (c *Client) IsTradable(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tradableSymbols[symbol]
	return ok
}

// Contract returns the venue-supplied metadata for symbol, if known.
func (c *Client) Contract(symbol string) (ContractInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.tradableSymbols[symbol]
	return info, ok
}

// TradableSymbols returns a snapshot of every symbol the venue currently
// lists, keyed by symbol.
func (c *Client) TradableSymbols() map[string]ContractInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ContractInfo, len(c.tradableSymbols))
	for k, v := range c.tradableSymbols {
		out[k] = v
	}
	return out
}

// orderFrame is the outbound market-order request, the hedging
// controller's only write to the venue connection.
type orderFrame struct {
	Type     string `json:"type"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

// PlaceOrder sends a market order for quantity contracts of symbol on the
// given side, satisfying internal/dealer.OrderPlacer. The venue doesn't
// ack orders over this same frame type, so a caller that needs fill
// confirmation reads it back off Position once WaitForUpdate returns.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side ledger.Side, quantity int64) error {
	if !c.IsAuthenticated() {
		return fmt.Errorf("venue: cannot place order, not authenticated")
	}
	frame := orderFrame{Type: "order", Symbol: symbol, Side: string(side), Quantity: quantity}
	if err := c.send(frame); err != nil {
		return fmt.Errorf("venue: place order failed: %w", err)
	}
	return nil
}

// WaitForUpdate blocks until the read loop processes a new frame or ctx is
// cancelled, giving callers a cheap way to synchronize with venue state
// instead of polling.
func (c *Client) WaitForUpdate(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		c.cond.Broadcast() // unstick the waiting goroutine
		c.mu.Unlock()
		return ctx.Err()
	}
}
