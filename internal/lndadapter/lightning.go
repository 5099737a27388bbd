package lndadapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
)

// CreateInvoice mints a new BOLT-11 invoice for amountSat satoshis.
func (c *Client) CreateInvoice(ctx context.Context, amountSat int64, memo string) (*Invoice, error) {
	if amountSat <= 0 {
		return nil, errors.New("lndadapter: invoice amount must be positive")
	}

	resp, err := c.lnClient.AddInvoice(ctx, &lnrpc.Invoice{
		Value: amountSat,
		Memo:  memo,
	})
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to create invoice: %w", err)
	}

	return &Invoice{
		PaymentRequest: resp.PaymentRequest,
		AmountSats:     amountSat,
		PaymentHash:    fmt.Sprintf("%x", resp.RHash),
		Description:    memo,
	}, nil
}

// PayInvoice pays a BOLT-11 invoice via the router's streaming SendPaymentV2
// RPC, blocking until a terminal payment state is observed.
func (c *Client) PayInvoice(ctx context.Context, bolt11 string, maxFeeSats int64) (*PaymentResult, error) {
	invoice, err := c.DecodeInvoice(ctx, bolt11)
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to decode invoice: %w", err)
	}
	if invoice.IsExpired {
		return nil, errors.New("lndadapter: invoice is expired")
	}
	if invoice.AmountSats == 0 {
		return nil, errors.New("lndadapter: zero-amount invoices are not supported")
	}

	req := &routerrpc.SendPaymentRequest{
		PaymentRequest: bolt11,
		TimeoutSeconds: int32(c.cfg.PaymentTimeoutSeconds),
		FeeLimitSat:    maxFeeSats,
	}

	payCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.PaymentTimeoutSeconds)*time.Second)
	defer cancel()

	stream, err := c.routerClient.SendPaymentV2(payCtx, req)
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to initiate payment: %w", err)
	}

	for {
		payment, err := stream.Recv()
		if err != nil {
			return nil, fmt.Errorf("lndadapter: payment stream error: %w", err)
		}

		switch payment.Status {
		case lnrpc.Payment_SUCCEEDED:
			return &PaymentResult{
				PaymentHash:     payment.PaymentHash,
				PaymentPreimage: payment.PaymentPreimage,
				FeeSats:         payment.FeeSat,
				Status:          Succeeded,
			}, nil
		case lnrpc.Payment_FAILED:
			return &PaymentResult{
				PaymentHash: payment.PaymentHash,
				Status:      Failed,
			}, fmt.Errorf("lndadapter: payment failed: %s", payment.FailureReason)
		case lnrpc.Payment_IN_FLIGHT, lnrpc.Payment_INITIATED:
			continue
		default:
			return nil, fmt.Errorf("lndadapter: unexpected payment status: %s", payment.Status)
		}
	}
}

// DecodeInvoice decodes a BOLT-11 payment request without paying it.
func (c *Client) DecodeInvoice(ctx context.Context, bolt11 string) (*Invoice, error) {
	resp, err := c.lnClient.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: bolt11})
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to decode invoice: %w", err)
	}

	expiryTime := time.Unix(resp.Timestamp+resp.Expiry, 0)
	return &Invoice{
		PaymentRequest: bolt11,
		Destination:    resp.Destination,
		AmountSats:     resp.NumSatoshis,
		PaymentHash:    resp.PaymentHash,
		Expiry:         resp.Expiry,
		Description:    resp.Description,
		IsExpired:      time.Now().After(expiryTime),
	}, nil
}

// Probe queries routes to destPubkey for amountSat without sending a
// payment, the basis of a pre-flight fee check.
func (c *Client) Probe(ctx context.Context, destPubkey string, amountSat int64, maxFeeSats int64) ([]Route, error) {
	resp, err := c.lnClient.QueryRoutes(ctx, &lnrpc.QueryRoutesRequest{
		PubKey:    destPubkey,
		Amt:       amountSat,
		FeeLimit:  &lnrpc.FeeLimit{Limit: &lnrpc.FeeLimit_Fixed{Fixed: maxFeeSats}},
	})
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to query routes: %w", err)
	}

	routes := make([]Route, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		routes = append(routes, Route{
			TotalFeesSat:      r.TotalFeesMsat / 1000,
			TotalTimeLockHops: len(r.Hops),
		})
	}
	return routes, nil
}

// SubscribeSettledInvoices streams newly settled invoices as they are paid
// externally, feeding the Bank Engine's Deposit source. This capability has
// no analog in a REST-style Lightning client — lnrpc exposes it directly
// via SubscribeInvoices, filtered here to settlement events only.
func (c *Client) SubscribeSettledInvoices(ctx context.Context) (<-chan SettledInvoice, error) {
	stream, err := c.lnClient.SubscribeInvoices(ctx, &lnrpc.InvoiceSubscription{})
	if err != nil {
		return nil, fmt.Errorf("lndadapter: failed to subscribe to invoices: %w", err)
	}

	out := make(chan SettledInvoice)
	go func() {
		defer close(out)
		for {
			inv, err := stream.Recv()
			if err != nil {
				return
			}
			if inv.State != lnrpc.Invoice_SETTLED {
				continue
			}
			select {
			case out <- SettledInvoice{
				PaymentRequest: inv.PaymentRequest,
				PaymentHash:    fmt.Sprintf("%x", inv.RHash),
				AmountSats:     inv.AmtPaidSat,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
