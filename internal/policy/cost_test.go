package policy

import (
	"testing"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/pkg/quant"
)

var testAsset = domain.NewAsset("XYZ", "USD")

func TestSpreadCost_Price(t *testing.T) {
	obs := event.Obs(quant.ToPriceMicros(100))

	tests := []struct {
		name      string
		spreadBps int64
		qty       float64
		want      quant.PriceMicros
	}{
		{"No spread buy", 0, 10, quant.ToPriceMicros(100)},
		{"No spread sell", 0, -10, quant.ToPriceMicros(100)},
		{"Buy pays half spread", 20, 10, quant.ToPriceMicros(100.1)},
		{"Sell receives half spread", 20, -10, quant.ToPriceMicros(99.9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewSpreadCost(event.RefClose, tt.spreadBps, 0, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			o := domain.NewMarketOrder(testAsset, quant.ToQtyUnits(tt.qty))
			if got := c.Price(o, obs); got != tt.want {
				t.Errorf("Price = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpreadCost_PriceRef(t *testing.T) {
	obs := event.PriceObservation{
		Open:  quant.ToPriceMicros(10),
		High:  quant.ToPriceMicros(12),
		Low:   quant.ToPriceMicros(8),
		Close: quant.ToPriceMicros(11),
	}
	c, _ := NewSpreadCost(event.RefOpen, 0, 0, 0)
	o := domain.NewMarketOrder(testAsset, quant.ToQtyUnits(1))
	if got := c.Price(o, obs); got != quant.ToPriceMicros(10) {
		t.Errorf("expected open reference, got %v", got)
	}
}

func TestSpreadCost_Fee(t *testing.T) {
	// 10 bps + 0.50 flat on a 1000 notional = 1.00 + 0.50
	c, err := NewSpreadCost(event.RefClose, 0, 10, quant.ToAmountMicros(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exec := domain.Execution{
		Order: domain.NewMarketOrder(testAsset, quant.ToQtyUnits(-10)),
		Qty:   quant.ToQtyUnits(-10),
		Price: quant.ToPriceMicros(100),
	}
	if got := c.Fee(exec); got != quant.ToAmountMicros(1.5) {
		t.Errorf("Fee = %v, want 1.5 (fee must not depend on direction)", got)
	}
}

func TestNewSpreadCost_RejectsBadConfig(t *testing.T) {
	if _, err := NewSpreadCost(event.RefClose, -1, 0, 0); err == nil {
		t.Error("negative spread must fail at construction")
	}
	if _, err := NewSpreadCost(event.RefClose, 0, -1, 0); err == nil {
		t.Error("negative fee rate must fail at construction")
	}
	if _, err := NewSpreadCost(event.RefClose, 0, 0, -1); err == nil {
		t.Error("negative flat fee must fail at construction")
	}
}
