package channel

import (
	"context"
	"errors"
	"time"

	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/pkg/circuitbreaker"
)

// breakerChannel guards a network-backed channel with a circuit breaker
// so a dead provider is skipped quickly instead of burning a timeout on
// every submission.
type breakerChannel struct {
	inner   Channel
	breaker *circuitbreaker.CircuitBreaker
}

// WithBreaker wraps ch with a circuit breaker. While the breaker is
// open, Deliver fails fast with a channel Error and the chain moves on.
func WithBreaker(ch Channel, maxFailures int, timeout time.Duration) Channel {
	return &breakerChannel{
		inner: ch,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        ch.Name(),
			MaxFailures: maxFailures,
			Timeout:     timeout,
		}),
	}
}

func (c *breakerChannel) Name() string { return c.inner.Name() }

func (c *breakerChannel) Available() bool { return c.inner.Available() }

func (c *breakerChannel) Deliver(ctx context.Context, submission *model.Submission) (*Receipt, error) {
	var receipt *Receipt
	err := c.breaker.Execute(func() error {
		var innerErr error
		receipt, innerErr = c.inner.Deliver(ctx, submission)
		return innerErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, &Error{Channel: c.Name(), Reason: "circuit open", Err: err}
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
