package lndadapter

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/lnrpc"
)

// GetNodeInfo returns the node's identity and sync status.
func (c *Client) GetNodeInfo(ctx context.Context) (*NodeInfo, error) {
	resp, err := c.lnClient.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to get node info: %w", err)
	}

	return &NodeInfo{
		Alias:           resp.Alias,
		PubKey:          resp.IdentityPubkey,
		Uris:            resp.Uris,
		ActiveChannels:  resp.NumActiveChannels,
		PendingChannels: resp.NumPendingChannels,
		Peers:           resp.NumPeers,
		SyncedToChain:   resp.SyncedToChain,
		SyncedToGraph:   resp.SyncedToGraph,
		BlockHeight:     resp.BlockHeight,
		Testnet:         resp.Testnet,
	}, nil
}

// WalletBalance reports on-chain confirmed/unconfirmed balance, used by
// housekeeping when deciding whether to sweep excess funds to cold storage.
type WalletBalance struct {
	ConfirmedSats   int64
	UnconfirmedSats int64
	TotalSats       int64
}

// GetWalletBalance returns LND's on-chain wallet balance.
func (c *Client) GetWalletBalance(ctx context.Context) (*WalletBalance, error) {
	resp, err := c.lnClient.WalletBalance(ctx, &lnrpc.WalletBalanceRequest{})
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to get wallet balance: %w", err)
	}
	return &WalletBalance{
		ConfirmedSats:   resp.ConfirmedBalance,
		UnconfirmedSats: resp.UnconfirmedBalance,
		TotalSats:       resp.TotalBalance,
	}, nil
}

// SendOnChain sends BTC from LND's wallet to address, used by the on-chain
// connector's cold-storage sweep.
func (c *Client) SendOnChain(ctx context.Context, address string, amountSats int64, targetConf int32) (string, error) {
	if amountSats < 546 {
		return "", fmt.Errorf("lndadapter: amount %d below dust limit", amountSats)
	}
	resp, err := c.lnClient.SendCoins(ctx, &lnrpc.SendCoinsRequest{
		Addr:       address,
		Amount:     amountSats,
		TargetConf: targetConf,
	})
	if err != nil {
		return "", fmt.Errorf("lndadapter: failed to send on-chain coins: %w", err)
	}
	return resp.Txid, nil
}
