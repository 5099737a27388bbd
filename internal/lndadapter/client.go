// Package lndadapter wraps an LND node behind the five capabilities the
// Bank Engine needs: minting invoices, paying them, probing routes, node
// health, and a settlement subscription feeding the Deposit source. The
// rest of the bank depends on LightningClient, never on lnrpc directly.
package lndadapter

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"lnbank/internal/secrets"
	"lnbank/pkg/logger"

	"go.uber.org/zap"
)

// Config holds the node connection settings, populated from
// internal/config.LndConfig. MacaroonPassphrase is optional: when set, the
// file at MacaroonPath is treated as a secrets.EncryptWithPassword envelope
// rather than a raw macaroon, so the admin macaroon never sits on disk in
// the clear.
type Config struct {
	GRPCHost              string
	GRPCPort              int
	TLSCertPath           string
	MacaroonPath          string
	MacaroonPassphrase    string
	Network               string
	PaymentTimeoutSeconds int
	MaxPaymentFeeSats     int64
}

// LightningClient is the capability surface the Bank Engine needs from a
// Lightning node. The Bank Engine depends on this interface, never on the
// concrete Client, so tests can substitute a fake.
type LightningClient interface {
	CreateInvoice(ctx context.Context, amountSat int64, memo string) (*Invoice, error)
	PayInvoice(ctx context.Context, bolt11 string, maxFeeSats int64) (*PaymentResult, error)
	DecodeInvoice(ctx context.Context, bolt11 string) (*Invoice, error)
	Probe(ctx context.Context, destPubkey string, amountSat int64, maxFeeSats int64) ([]Route, error)
	GetNodeInfo(ctx context.Context) (*NodeInfo, error)
	SubscribeSettledInvoices(ctx context.Context) (<-chan SettledInvoice, error)
	GetWalletBalance(ctx context.Context) (*WalletBalance, error)
	SendOnChain(ctx context.Context, address string, amountSats int64, targetConf int32) (string, error)
	Close() error
}

// PaymentResultStatus enumerates the terminal (and in-flight) states of a
// payment attempt.
type PaymentResultStatus int

const (
	Succeeded PaymentResultStatus = iota
	Failed
	InFlight
)

func (s PaymentResultStatus) String() string {
	switch s {
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case InFlight:
		return "InFlight"
	default:
		return "Unknown"
	}
}

// PaymentResult is returned by PayInvoice.
type PaymentResult struct {
	PaymentHash     string
	PaymentPreimage string
	FeeSats         int64
	Status          PaymentResultStatus
}

// Invoice is the decoded or newly minted form of a BOLT-11 payment request.
type Invoice struct {
	PaymentRequest string
	Destination    string
	AmountSats     int64
	PaymentHash    string
	Expiry         int64
	Description    string
	IsExpired      bool
}

// Route is one candidate path returned by Probe.
type Route struct {
	TotalFeesSat int64
	TotalTimeLockHops int
}

// NodeInfo summarizes a node's identity and sync status.
type NodeInfo struct {
	Alias           string
	PubKey          string
	Uris            []string
	ActiveChannels  uint32
	PendingChannels uint32
	Peers           uint32
	SyncedToChain   bool
	SyncedToGraph   bool
	BlockHeight     uint32
	Testnet         bool
}

// SettledInvoice is delivered on the channel returned by
// SubscribeSettledInvoices, one per newly settled invoice.
type SettledInvoice struct {
	PaymentRequest string
	PaymentHash    string
	AmountSats     int64
}

type macaroonCredential struct {
	macaroon string
}

func (m macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"macaroon": m.macaroon}, nil
}

func (m macaroonCredential) RequireTransportSecurity() bool { return true }

// Client is the concrete LightningClient backed by an LND gRPC connection.
type Client struct {
	conn         *grpc.ClientConn
	lnClient     lnrpc.LightningClient
	routerClient routerrpc.RouterClient
	cfg          Config
}

// NewClient dials the configured LND node, authenticating with a macaroon
// over TLS, and validates the connection with a GetInfo call before
// returning.
func NewClient(cfg Config) (*Client, error) {
	creds, err := credentials.NewClientTLSFromFile(cfg.TLSCertPath, "")
	if err != nil {
		return nil, fmt.Errorf("lndadapter: could not load tls cert from %s: %w", cfg.TLSCertPath, err)
	}

	macaroonFile, err := os.ReadFile(cfg.MacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to read macaroon file %s: %w", cfg.MacaroonPath, err)
	}

	var macaroonHex string
	if cfg.MacaroonPassphrase != "" {
		plaintext, err := secrets.DecryptWithPassword(string(macaroonFile), cfg.MacaroonPassphrase)
		if err != nil {
			return nil, fmt.Errorf("lndadapter: failed to decrypt macaroon %s: %w", cfg.MacaroonPath, err)
		}
		macaroonHex = plaintext
	} else {
		macaroonHex = hex.EncodeToString(macaroonFile)
	}
	macaroonCreds := macaroonCredential{macaroon: macaroonHex}

	addr := fmt.Sprintf("%s:%d", cfg.GRPCHost, cfg.GRPCPort)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds), grpc.WithPerRPCCredentials(macaroonCreds))
	if err != nil {
		return nil, fmt.Errorf("lndadapter: could not dial %s: %w", addr, err)
	}

	lnClient := lnrpc.NewLightningClient(conn)

	info, err := lnClient.GetInfo(context.Background(), &lnrpc.GetInfoRequest{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("lndadapter: failed to connect to lnd: %w", err)
	}

	logger.Info("lnd connected",
		zap.String("alias", info.Alias),
		zap.String("pubkey", info.IdentityPubkey),
		zap.Uint32("height", info.BlockHeight),
		zap.Bool("synced_to_chain", info.SyncedToChain),
	)
	if !info.SyncedToChain {
		logger.Warn("lnd is not synced to chain, payments may fail")
	}

	return &Client{
		conn:         conn,
		lnClient:     lnClient,
		routerClient: routerrpc.NewRouterClient(conn),
		cfg:          cfg,
	}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
