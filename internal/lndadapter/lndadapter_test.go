package lndadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaymentResultStatusString(t *testing.T) {
	require.Equal(t, "Succeeded", Succeeded.String())
	require.Equal(t, "Failed", Failed.String())
	require.Equal(t, "InFlight", InFlight.String())
}

// fakeLightningClient is a hand-rolled LightningClient double.
type fakeLightningClient struct {
	settled chan SettledInvoice
}

func (f *fakeLightningClient) CreateInvoice(_ context.Context, amountSat int64, memo string) (*Invoice, error) {
	return &Invoice{PaymentRequest: "lnbc1...", AmountSats: amountSat, Description: memo}, nil
}

func (f *fakeLightningClient) PayInvoice(_ context.Context, _ string, maxFeeSats int64) (*PaymentResult, error) {
	return &PaymentResult{Status: Succeeded, FeeSats: maxFeeSats}, nil
}

func (f *fakeLightningClient) DecodeInvoice(_ context.Context, bolt11 string) (*Invoice, error) {
	return &Invoice{PaymentRequest: bolt11}, nil
}

func (f *fakeLightningClient) Probe(_ context.Context, _ string, _ int64, _ int64) ([]Route, error) {
	return nil, nil
}

func (f *fakeLightningClient) GetNodeInfo(_ context.Context) (*NodeInfo, error) {
	return &NodeInfo{Alias: "fake"}, nil
}

func (f *fakeLightningClient) SubscribeSettledInvoices(_ context.Context) (<-chan SettledInvoice, error) {
	return f.settled, nil
}

func (f *fakeLightningClient) GetWalletBalance(_ context.Context) (*WalletBalance, error) {
	return &WalletBalance{}, nil
}

func (f *fakeLightningClient) SendOnChain(_ context.Context, _ string, amountSats int64, _ int32) (string, error) {
	return "fake-txid", nil
}

func (f *fakeLightningClient) Close() error { return nil }

var _ LightningClient = (*fakeLightningClient)(nil)

func TestFakeClientCreateInvoice(t *testing.T) {
	f := &fakeLightningClient{}
	inv, err := f.CreateInvoice(context.Background(), 1000, "test")
	require.NoError(t, err)
	require.Equal(t, int64(1000), inv.AmountSats)
}
