package event

import (
	"testing"

	"github.com/alexe13/roboquant/pkg/quant"
)

func TestEventPool(t *testing.T) {
	// Acquire and use
	ev := AcquireMarketEvent()
	ev.Seq = 7
	ev.Prices["XYZ"] = Obs(quant.ToPriceMicros(100))

	if ev.Prices["XYZ"].Close != quant.ToPriceMicros(100) {
		t.Error("price not set")
	}

	// Release
	ReleaseMarketEvent(ev)

	// Acquire again - should be reset
	ev2 := AcquireMarketEvent()
	if ev2.Seq != 0 || len(ev2.Prices) != 0 {
		t.Error("event should be reset after release")
	}
	ReleaseMarketEvent(ev2)
}

func TestPriceObservation_Ref(t *testing.T) {
	obs := PriceObservation{
		Open:  quant.ToPriceMicros(10),
		High:  quant.ToPriceMicros(14),
		Low:   quant.ToPriceMicros(8),
		Close: quant.ToPriceMicros(12),
	}
	tests := []struct {
		name string
		ref  PriceRef
		want quant.PriceMicros
	}{
		{"Close", RefClose, quant.ToPriceMicros(12)},
		{"Open", RefOpen, quant.ToPriceMicros(10)},
		{"Mid", RefMid, quant.ToPriceMicros(11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := obs.Ref(tt.ref); got != tt.want {
				t.Errorf("Ref(%v) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}

	// Close-only observation falls back to close for every ref point
	flat := PriceObservation{Close: quant.ToPriceMicros(5)}
	if flat.Ref(RefOpen) != flat.Close || flat.Ref(RefMid) != flat.Close {
		t.Error("close-only observation must fall back to close")
	}
}

// BenchmarkWithoutPool measures allocation without pool
func BenchmarkWithoutPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := &MarketEvent{Prices: make(map[string]PriceObservation, 8)}
		_ = ev
	}
}

// BenchmarkWithPool measures allocation with pool
func BenchmarkWithPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := AcquireMarketEvent()
		ReleaseMarketEvent(ev)
	}
}
