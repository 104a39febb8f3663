package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/alexe13/roboquant/pkg/quant"
)

// Run modes.
const (
	ModeBacktest = "backtest"
	ModePaper    = "paper"
)

// Config holds every application setting. Environment variables override
// file values after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Mode string `yaml:"mode"` // backtest | paper

	Broker struct {
		BaseCurrency string            `yaml:"base_currency"`
		Deposit      map[string]string `yaml:"deposit"` // currency -> decimal amount

		Cost struct {
			PriceRef  string `yaml:"price_ref"` // close | open | mid
			SpreadBps int64  `yaml:"spread_bps"`
			FeeBps    int64  `yaml:"fee_bps"`
			FlatFee   string `yaml:"flat_fee"` // decimal amount
		} `yaml:"cost"`

		BuyingPower struct {
			Model            string `yaml:"model"` // cash | regt | leverage
			Leverage         string `yaml:"leverage"`
			InitialMarginBps int64  `yaml:"initial_margin_bps"`
			ShortMarginBps   int64  `yaml:"short_margin_bps"`
		} `yaml:"buying_power"`
	} `yaml:"broker"`

	Paper PaperConfig `yaml:"paper"`

	Storage struct {
		SnapshotEveryEvents int `yaml:"snapshot_every_events"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// PaperConfig holds the live-feed settings: stream endpoint, symbols and
// the breaker thresholds guarding against a degraded feed.
type PaperConfig struct {
	WSURL   string   `yaml:"ws_url"`
	Symbols []string `yaml:"symbols"`

	FeedFailureLimit int    `yaml:"feed_failure_limit"`
	FeedRecoverAfter int    `yaml:"feed_recover_after"`
	FeedCooldown     string `yaml:"feed_cooldown"` // duration, e.g. "30s"
}

// FeedBreaker converts the configured thresholds into a breaker
// configuration. Unset fields keep the breaker defaults; Validate has
// already checked the cooldown string.
func (p PaperConfig) FeedBreaker() BreakerConfig {
	cooldown, _ := time.ParseDuration(p.FeedCooldown)
	return BreakerConfig{
		Name:         "paper-feed",
		FailureLimit: p.FeedFailureLimit,
		RecoverAfter: p.FeedRecoverAfter,
		Cooldown:     cooldown,
	}
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides, and fails fast on anything invalid.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBacktest, ModePaper:
	default:
		return fmt.Errorf("invalid mode: %q (want backtest or paper)", c.Mode)
	}

	if len(c.Broker.Deposit) == 0 {
		return fmt.Errorf("broker.deposit requires at least one currency")
	}
	for cur, amt := range c.Broker.Deposit {
		v, err := ParseAmount(amt)
		if err != nil {
			return fmt.Errorf("broker.deposit[%s]: %w", cur, err)
		}
		if v <= 0 {
			return fmt.Errorf("broker.deposit[%s] must be positive, got %s", cur, amt)
		}
	}

	if c.Broker.Cost.SpreadBps < 0 || c.Broker.Cost.FeeBps < 0 {
		return fmt.Errorf("cost bps values must be non-negative")
	}
	if c.Broker.Cost.FlatFee != "" {
		if _, err := ParseAmount(c.Broker.Cost.FlatFee); err != nil {
			return fmt.Errorf("broker.cost.flat_fee: %w", err)
		}
	}
	switch c.Broker.Cost.PriceRef {
	case "", "close", "open", "mid":
	default:
		return fmt.Errorf("invalid price_ref: %q", c.Broker.Cost.PriceRef)
	}

	switch c.Broker.BuyingPower.Model {
	case "", "cash", "regt":
	case "leverage":
		lev, err := ParseAmount(c.Broker.BuyingPower.Leverage)
		if err != nil {
			return fmt.Errorf("broker.buying_power.leverage: %w", err)
		}
		if lev <= 0 {
			return fmt.Errorf("broker.buying_power.leverage must be positive")
		}
	default:
		return fmt.Errorf("invalid buying power model: %q", c.Broker.BuyingPower.Model)
	}

	if c.Mode == ModePaper {
		if !strings.HasPrefix(c.Paper.WSURL, "ws://") && !strings.HasPrefix(c.Paper.WSURL, "wss://") {
			return fmt.Errorf("invalid paper WS URL: %s", c.Paper.WSURL)
		}
		if len(c.Paper.Symbols) == 0 {
			return fmt.Errorf("at least one paper symbol is required")
		}
		if c.Paper.FeedFailureLimit < 0 || c.Paper.FeedRecoverAfter < 0 {
			return fmt.Errorf("paper feed thresholds must be non-negative")
		}
		if c.Paper.FeedCooldown != "" {
			if _, err := time.ParseDuration(c.Paper.FeedCooldown); err != nil {
				return fmt.Errorf("paper.feed_cooldown: %w", err)
			}
		}
	}

	return nil
}

// ParseAmount converts a decimal string like "10000.50" to micros without
// going through float64. Precision beyond six decimal places is an error,
// never a silent truncation.
func ParseAmount(s string) (quant.AmountMicros, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	micros := d.Mul(decimal.NewFromInt(quant.AmountScale))
	if !micros.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than 6 decimal places", s)
	}
	if !micros.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return quant.AmountMicros(micros.IntPart()), nil
}

// DepositMicros returns the configured deposit converted to micros.
// Validate must have passed first.
func (c *Config) DepositMicros() map[string]quant.AmountMicros {
	out := make(map[string]quant.AmountMicros, len(c.Broker.Deposit))
	for cur, amt := range c.Broker.Deposit {
		v, _ := ParseAmount(amt)
		out[cur] = v
	}
	return out
}

// overrideWithEnv applies ROBOQUANT_* environment variables on top of the
// file values. Environment wins.
func overrideWithEnv(cfg *Config) {
	if mode := os.Getenv("ROBOQUANT_MODE"); mode != "" {
		cfg.Mode = mode
	}
	if url := os.Getenv("ROBOQUANT_PAPER_WS_URL"); url != "" {
		cfg.Paper.WSURL = url
	}
	if level := os.Getenv("ROBOQUANT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if cur := os.Getenv("ROBOQUANT_BASE_CURRENCY"); cur != "" {
		cfg.Broker.BaseCurrency = cur
	}
}
