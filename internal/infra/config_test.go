package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexe13/roboquant/pkg/quant"
)

const validYAML = `
app:
  name: roboquant
  version: "0.1.0"
mode: backtest
broker:
  base_currency: USD
  deposit:
    USD: "100000.50"
    EUR: "2500"
  cost:
    price_ref: close
    spread_bps: 10
    fee_bps: 5
    flat_fee: "0.25"
  buying_power:
    model: regt
    initial_margin_bps: 5000
    short_margin_bps: 15000
logging:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Mode != ModeBacktest {
		t.Errorf("mode = %q, want backtest", cfg.Mode)
	}
	dep := cfg.DepositMicros()
	if dep["USD"] != 100_000_500_000 {
		t.Errorf("USD deposit = %d, want 100000500000", dep["USD"])
	}
	if dep["EUR"] != quant.ToAmountMicros(2500) {
		t.Errorf("EUR deposit = %d, want 2500000000", dep["EUR"])
	}
	if cfg.Broker.Cost.SpreadBps != 10 || cfg.Broker.Cost.FeeBps != 5 {
		t.Errorf("cost bps wrong: %+v", cfg.Broker.Cost)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad mode", "mode: yolo\nbroker:\n  deposit:\n    USD: \"1000\"\n"},
		{"no deposit", "mode: backtest\n"},
		{"negative deposit", "mode: backtest\nbroker:\n  deposit:\n    USD: \"-5\"\n"},
		{"bad amount", "mode: backtest\nbroker:\n  deposit:\n    USD: \"abc\"\n"},
		{"too precise", "mode: backtest\nbroker:\n  deposit:\n    USD: \"1.0000001\"\n"},
		{"bad price ref", "mode: backtest\nbroker:\n  deposit:\n    USD: \"1000\"\n  cost:\n    price_ref: vwap\n"},
		{"leverage without value", "mode: backtest\nbroker:\n  deposit:\n    USD: \"1000\"\n  buying_power:\n    model: leverage\n"},
		{"paper without url", "mode: paper\nbroker:\n  deposit:\n    USD: \"1000\"\n"},
		{"bad feed cooldown", "mode: paper\nbroker:\n  deposit:\n    USD: \"1000\"\npaper:\n  ws_url: wss://x\n  symbols: [AAPL]\n  feed_cooldown: soon\n"},
		{"negative feed limit", "mode: paper\nbroker:\n  deposit:\n    USD: \"1000\"\npaper:\n  ws_url: wss://x\n  symbols: [AAPL]\n  feed_failure_limit: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ROBOQUANT_LOG_LEVEL", "error")
	t.Setenv("ROBOQUANT_BASE_CURRENCY", "EUR")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("env override missing: level = %q", cfg.Logging.Level)
	}
	if cfg.Broker.BaseCurrency != "EUR" {
		t.Errorf("env override missing: base currency = %q", cfg.Broker.BaseCurrency)
	}
}

func TestPaperConfig_FeedBreaker(t *testing.T) {
	p := PaperConfig{FeedFailureLimit: 3, FeedRecoverAfter: 1, FeedCooldown: "45s"}
	bc := p.FeedBreaker()

	if bc.FailureLimit != 3 || bc.RecoverAfter != 1 || bc.Cooldown != 45*time.Second {
		t.Errorf("breaker config = %+v, want 3/1/45s", bc)
	}
	if bc.Name != "paper-feed" {
		t.Errorf("name = %q", bc.Name)
	}

	// An empty section keeps the breaker defaults via zero values.
	zero := PaperConfig{}.FeedBreaker()
	if zero.FailureLimit != 0 || zero.Cooldown != 0 {
		t.Errorf("zero config must pass zeros through, got %+v", zero)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    quant.AmountMicros
		wantErr bool
	}{
		{"0", 0, false},
		{"1", 1_000_000, false},
		{"10000.50", 10_000_500_000, false},
		{"-3.25", -3_250_000, false},
		{"0.000001", 1, false},
		{"0.0000001", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
