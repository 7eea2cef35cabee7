package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrCaptureUpstream is returned by gateways whose captures are confirmed by
// the client before the reservation request reaches the engine.
var ErrCaptureUpstream = errors.New("payment: capture happens upstream")

// StripeGateway refunds PaymentIntents. References are PaymentIntent IDs
// (pi_...), refund references are Refund IDs (re_...).
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a client for secretKey. A nil backend config uses
// the public Stripe API with the library defaults.
func NewStripeGateway(secretKey string, backend *stripe.BackendConfig) *StripeGateway {
	var backends *stripe.Backends
	if backend != nil {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, backend),
		}
	}
	return &StripeGateway{api: client.New(secretKey, backends)}
}

func (g *StripeGateway) Provider() string { return "stripe" }

func (g *StripeGateway) Capture(context.Context, int64, string) (string, error) {
	return "", ErrCaptureUpstream
}

func (g *StripeGateway) Refund(ctx context.Context, reference string, amountCents *int64) (string, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(reference),
	}
	if amountCents != nil {
		if *amountCents <= 0 {
			return "", ErrInvalidAmount
		}
		params.Amount = stripe.Int64(*amountCents)
	}

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return "", translateStripeError(reference, err)
	}
	return refund.ID, nil
}

func translateStripeError(reference string, err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch serr.Code {
	case stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", ErrUnknownTransaction, reference)
	case stripe.ErrorCodeChargeAlreadyRefunded:
		return fmt.Errorf("%w: %s", ErrRefundExceedsAmount, serr.Msg)
	}
	return err
}
