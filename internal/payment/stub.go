package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type capture struct {
	amountCents   int64
	refundedCents int64
	currency      string
	// upstream captures were taken by the processor directly, so the stub
	// never saw their amount.
	upstream      bool
	fullyRefunded bool
}

// Refund records a refund issued by StubGateway. AmountCents is zero for a
// full refund of an upstream capture.
type Refund struct {
	Reference       string
	RefundReference string
	AmountCents     int64
	At              time.Time
}

// StubGateway is an in-memory processor. It accepts every capture and
// refunds against what it captured, so it doubles as a test fake. References
// it did not capture are treated as upstream payments of unknown amount:
// partial refunds are summed per reference and a full refund closes it.
type StubGateway struct {
	mu        sync.Mutex
	captures  map[string]*capture
	refunds   []Refund
	refundErr error
}

func NewStubGateway() *StubGateway {
	return &StubGateway{captures: make(map[string]*capture)}
}

func (g *StubGateway) Provider() string { return "stub" }

func (g *StubGateway) Capture(ctx context.Context, amountCents int64, currency string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}

	ref := fmt.Sprintf("PAY-%s", uuid.NewString())

	g.mu.Lock()
	g.captures[ref] = &capture{amountCents: amountCents, currency: currency}
	g.mu.Unlock()

	return ref, nil
}

func (g *StubGateway) Refund(ctx context.Context, reference string, amountCents *int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refundErr != nil {
		return "", g.refundErr
	}

	c, ok := g.captures[reference]
	if !ok {
		c = &capture{upstream: true}
		g.captures[reference] = c
	}

	var amount int64
	if c.upstream {
		if c.fullyRefunded {
			return "", ErrInvalidAmount
		}
		if amountCents == nil {
			c.fullyRefunded = true
		} else if amount = *amountCents; amount <= 0 {
			return "", ErrInvalidAmount
		}
	} else {
		remaining := c.amountCents - c.refundedCents
		amount = remaining
		if amountCents != nil {
			amount = *amountCents
		}
		if amount <= 0 {
			return "", ErrInvalidAmount
		}
		if amount > remaining {
			return "", fmt.Errorf("%w: requested %d, remaining %d", ErrRefundExceedsAmount, amount, remaining)
		}
	}

	c.refundedCents += amount
	refundRef := fmt.Sprintf("RE-%s", uuid.NewString())
	g.refunds = append(g.refunds, Refund{
		Reference:       reference,
		RefundReference: refundRef,
		AmountCents:     amount,
		At:              time.Now().UTC(),
	})
	return refundRef, nil
}

// FailRefunds makes every following Refund return err. Pass nil to recover.
func (g *StubGateway) FailRefunds(err error) {
	g.mu.Lock()
	g.refundErr = err
	g.mu.Unlock()
}

// Refunds returns a copy of the refunds issued so far.
func (g *StubGateway) Refunds() []Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Refund, len(g.refunds))
	copy(out, g.refunds)
	return out
}

// RefundedCents is the total refunded against reference. For an upstream
// capture only partial refunds are counted; see FullyRefunded.
func (g *StubGateway) RefundedCents(reference string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.captures[reference]; ok {
		return c.refundedCents
	}
	return 0
}

// FullyRefunded reports whether nothing is left to refund on reference.
func (g *StubGateway) FullyRefunded(reference string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.captures[reference]
	if !ok {
		return false
	}
	if c.upstream {
		return c.fullyRefunded
	}
	return c.refundedCents == c.amountCents
}
