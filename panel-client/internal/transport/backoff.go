package transport

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 30 * time.Second
)

// Backoff is the reconnect delay sequence: initial, doubling, capped at max,
// with no jitter.
type Backoff struct {
	exp backoff.ExponentialBackOff
}

func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max < initial {
		max = DefaultBackoffMax
	}
	b := &Backoff{exp: backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         max,
	}}
	b.exp.Reset()
	return b
}

// Next returns the delay before the next attempt and advances the sequence.
func (b *Backoff) Next() time.Duration {
	return b.exp.NextBackOff()
}

// Reset restarts the sequence at the initial delay.
func (b *Backoff) Reset() {
	b.exp.Reset()
}
