// Package payment adapts the card processor used to capture and refund stays.
package payment

import (
	"context"
	"errors"
)

var (
	ErrUnknownTransaction  = errors.New("payment: unknown transaction")
	ErrRefundExceedsAmount = errors.New("payment: refund exceeds captured amount")
	ErrInvalidAmount       = errors.New("payment: amount must be positive")
)

// Gateway is the processor boundary. Capture happens before a reservation is
// created (the client confirms the payment and hands over the reference);
// the engine itself only refunds.
type Gateway interface {
	// Provider tags transaction snapshots, e.g. "stripe".
	Provider() string
	Capture(ctx context.Context, amountCents int64, currency string) (string, error)
	// Refund returns money for a captured transaction. A nil amount refunds
	// whatever is still captured. The returned string is the refund reference.
	Refund(ctx context.Context, reference string, amountCents *int64) (string, error)
}

// Cents is a helper for passing partial refund amounts.
func Cents(v int64) *int64 {
	return &v
}
