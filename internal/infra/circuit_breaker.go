package infra

import (
	"log/slog"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "CLOSED"
	case breakerOpen:
		return "OPEN"
	case breakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig sizes a breaker. Zero values fall back to defaults
// suited to a tick feed.
type BreakerConfig struct {
	Name         string
	FailureLimit int           // consecutive failures before the breaker opens
	RecoverAfter int           // consecutive successes that close a half-open breaker
	Cooldown     time.Duration // wait before an open breaker lets a retry through
}

// Breaker cuts a data source off after consecutive failures and retries
// it after a cooldown. It belongs to a single goroutine (the stream
// worker read loop), so it carries no locking.
type Breaker struct {
	name         string
	failureLimit int
	recoverAfter int
	cooldown     time.Duration

	state       breakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureLimit <= 0 {
		cfg.FailureLimit = 5
	}
	if cfg.RecoverAfter <= 0 {
		cfg.RecoverAfter = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:         cfg.Name,
		failureLimit: cfg.FailureLimit,
		recoverAfter: cfg.RecoverAfter,
		cooldown:     cfg.Cooldown,
	}
}

// Allow reports whether the source may be used right now. An open
// breaker lets one attempt through once the cooldown has passed.
func (b *Breaker) Allow() bool {
	if b.state != breakerOpen {
		return true
	}
	if time.Since(b.lastFailure) <= b.cooldown {
		return false
	}
	b.state = breakerHalfOpen
	b.successes = 0
	slog.Info("Breaker half-open, retrying source", slog.String("name", b.name))
	return true
}

// RecordSuccess notes a good message. Enough of them in a row close a
// half-open breaker.
func (b *Breaker) RecordSuccess() {
	switch b.state {
	case breakerClosed:
		b.failures = 0
	case breakerHalfOpen:
		b.successes++
		if b.successes >= b.recoverAfter {
			b.state = breakerClosed
			b.failures = 0
			slog.Info("Breaker closed, source recovered", slog.String("name", b.name))
		}
	}
}

// RecordFailure notes a bad message. Hitting the limit trips a closed
// breaker; any failure re-trips a half-open one.
func (b *Breaker) RecordFailure() {
	b.lastFailure = time.Now()
	switch b.state {
	case breakerClosed:
		b.failures++
		if b.failures >= b.failureLimit {
			b.state = breakerOpen
			slog.Warn("Breaker open, source cut off",
				slog.String("name", b.name),
				slog.Int("failures", b.failures))
		}
	case breakerHalfOpen:
		b.state = breakerOpen
		slog.Warn("Breaker re-opened, source still failing", slog.String("name", b.name))
	}
}
