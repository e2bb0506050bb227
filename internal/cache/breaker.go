package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Breaker is a Store that stops calling its backend after repeated
// failures. While open every call fails fast with gobreaker.ErrOpenState,
// which Remember treats like any other cache failure. Misses are not
// failures.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker[[]byte]
	hook func(from, to string)
}

var _ Store = (*Breaker)(nil)

// NewBreaker wraps next. The circuit opens after failures consecutive
// errors and tries the backend again after timeout.
func NewBreaker(next Store, failures uint32, timeout time.Duration, log zerolog.Logger) *Breaker {
	if failures == 0 {
		failures = 5
	}
	b := &Breaker{next: next}
	b.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "facet-cache",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Cache circuit breaker state changed")
			if b.hook != nil {
				b.hook(from.String(), to.String())
			}
		},
	})
	return b
}

// OnStateChange registers a callback for breaker transitions
func (b *Breaker) OnStateChange(hook func(from, to string)) {
	b.hook = hook
}

// State reports the breaker state: "closed", "half-open" or "open"
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Get implements Store
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.Get(ctx, key)
	})
}

// Set implements Store
func (b *Breaker) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})
	return err
}

// Delete implements Store
func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}
