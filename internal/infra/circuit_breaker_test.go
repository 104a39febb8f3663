package infra

import (
	"testing"
	"time"
)

func TestBreaker_AllowsWhenClosed(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"})

	if !b.Allow() {
		t.Error("a fresh breaker must allow traffic")
	}
	if b.state != breakerClosed {
		t.Errorf("state = %s, want CLOSED", b.state)
	}
}

func TestBreaker_TripsAtFailureLimit(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", FailureLimit: 3, Cooldown: time.Hour})

	b.RecordFailure()
	b.RecordFailure()
	if b.state != breakerClosed {
		t.Error("two failures must not trip a limit of three")
	}

	b.RecordFailure()
	if b.state != breakerOpen {
		t.Fatalf("state = %s, want OPEN after the third failure", b.state)
	}
	if b.Allow() {
		t.Error("an open breaker inside its cooldown must reject traffic")
	}
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", FailureLimit: 2})

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	if b.state != breakerClosed {
		t.Errorf("state = %s, want CLOSED (failures must be consecutive)", b.state)
	}
}

func TestBreaker_RetriesAfterCooldown(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", FailureLimit: 1, Cooldown: 20 * time.Millisecond})

	b.RecordFailure()
	if b.Allow() {
		t.Fatal("breaker must be open right after tripping")
	}

	time.Sleep(30 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("breaker must let a retry through after the cooldown")
	}
	if b.state != breakerHalfOpen {
		t.Errorf("state = %s, want HALF_OPEN", b.state)
	}
}

func TestBreaker_ClosesAfterRecovery(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", FailureLimit: 1, RecoverAfter: 2, Cooldown: 10 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	b.Allow()

	b.RecordSuccess()
	if b.state != breakerHalfOpen {
		t.Error("one success must not close a breaker that needs two")
	}
	b.RecordSuccess()
	if b.state != breakerClosed {
		t.Errorf("state = %s, want CLOSED after recovery", b.state)
	}
}

func TestBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", FailureLimit: 1, Cooldown: 10 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	b.Allow()

	b.RecordFailure()
	if b.state != breakerOpen {
		t.Errorf("state = %s, want OPEN after a failed retry", b.state)
	}
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"})

	if b.failureLimit != 5 || b.recoverAfter != 2 || b.cooldown != 30*time.Second {
		t.Errorf("defaults = %d/%d/%s, want 5/2/30s", b.failureLimit, b.recoverAfter, b.cooldown)
	}
}
