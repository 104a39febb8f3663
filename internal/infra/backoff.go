package infra

import (
	"time"
)

// Backoff computes exponential reconnect delays: Base doubled per retry,
// capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is the reconnect policy the stream worker uses unless
// the caller overrides it.
func DefaultBackoff() Backoff {
	return Backoff{Base: 1 * time.Second, Max: 60 * time.Second}
}

// Delay returns the wait before the given retry attempt. Negative
// retries count as the first.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	// 1<<retry would overflow long before this; anything that far out
	// sits at Max anyway.
	if retry > 30 {
		return b.Max
	}
	d := b.Base * time.Duration(1<<retry)
	if d > b.Max {
		return b.Max
	}
	return d
}
