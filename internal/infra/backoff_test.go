package infra

import (
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff()
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},
		{100, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.retry); got != tt.want {
			t.Errorf("Delay(%d) = %s, want %s", tt.retry, got, tt.want)
		}
	}
}

func TestBackoff_CustomBaseAndCap(t *testing.T) {
	fast := Backoff{Base: 100 * time.Millisecond, Max: 1 * time.Second}

	if got := fast.Delay(2); got != 400*time.Millisecond {
		t.Errorf("Delay(2) = %s, want 400ms", got)
	}
	if got := fast.Delay(8); got != 1*time.Second {
		t.Errorf("Delay(8) = %s, want the 1s cap", got)
	}
}
