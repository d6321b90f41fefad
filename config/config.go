// Package config loads the StockTrak configuration file. Matching strategy,
// discount period and rounding precision are read here once and passed into
// the rebuild explicitly; nothing in the core reads ambient configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Millstreamu/StockTrak/ledger"
	"github.com/Millstreamu/StockTrak/rules"
)

const DefaultPath = "stocktrak.yaml"

type PricesConfig struct {
	ProviderURL          string            `yaml:"provider_url"`
	CacheTTLMinutes      int               `yaml:"cache_ttl_minutes"`
	StalePriceMaxMinutes int               `yaml:"stale_price_max_minutes"`
	ExchangeSuffixMap    map[string]string `yaml:"exchange_suffix_map"`
}

type RuleThresholds struct {
	CGTWindowDays      int     `yaml:"cgt_window_days"`
	OverweightBand     float64 `yaml:"overweight_band"`
	ConcentrationLimit float64 `yaml:"concentration_limit"`
	LossThresholdPct   float64 `yaml:"loss_threshold_pct"`
}

type Config struct {
	BaseCurrency   string             `yaml:"base_currency"`
	Timezone       string             `yaml:"timezone"`
	LotMatching    string             `yaml:"lot_matching"`
	FeeAllocation  string             `yaml:"fee_allocation"`
	DiscountDays   int                `yaml:"discount_days"`
	RoundingPlaces int32              `yaml:"rounding_places"`
	DatabasePath   string             `yaml:"database_path"`
	Prices         PricesConfig       `yaml:"prices"`
	TargetWeights  map[string]float64 `yaml:"target_weights"`
	RuleThresholds RuleThresholds     `yaml:"rule_thresholds"`
}

func Default() *Config {
	return &Config{
		BaseCurrency:   "AUD",
		Timezone:       "Australia/Brisbane",
		LotMatching:    "FIFO",
		FeeAllocation:  "BOTH",
		DiscountDays:   365,
		RoundingPlaces: 2,
		DatabasePath:   "stocktrak.db",
		Prices: PricesConfig{
			CacheTTLMinutes:      15,
			StalePriceMaxMinutes: 60,
			ExchangeSuffixMap:    map[string]string{"ASX": ".AX"},
		},
		RuleThresholds: RuleThresholds{
			CGTWindowDays:      60,
			OverweightBand:     0.02,
			ConcentrationLimit: 0.25,
			LossThresholdPct:   -0.15,
		},
	}
}

// Load reads the config file at path, creating it with defaults when absent.
// A .env file (if any) and STOCKTRAK_* environment variables override the
// file's database path and config location.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("STOCKTRAK_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if dbPath := os.Getenv("STOCKTRAK_DB"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing default config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := ledger.ParseMatchMethod(c.LotMatching); err != nil {
		return err
	}
	if _, err := ledger.ParseFeeAllocation(c.FeeAllocation); err != nil {
		return err
	}
	if c.DiscountDays <= 0 {
		return fmt.Errorf("discount_days must be positive, got %d", c.DiscountDays)
	}
	if c.RoundingPlaces < 0 {
		return fmt.Errorf("rounding_places must not be negative, got %d", c.RoundingPlaces)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) MatchMethod() ledger.MatchMethod {
	m, err := ledger.ParseMatchMethod(c.LotMatching)
	if err != nil {
		// validate() already vouched for it
		return ledger.FIFO
	}
	return m
}

func (c *Config) FeeAllocationStrategy() ledger.FeeAllocation {
	f, err := ledger.ParseFeeAllocation(c.FeeAllocation)
	if err != nil {
		return ledger.FeesBothSides
	}
	return f
}

func (c *Config) Thresholds() rules.Thresholds {
	return rules.Thresholds{
		CGTWindowDays:      c.RuleThresholds.CGTWindowDays,
		OverweightBand:     c.RuleThresholds.OverweightBand,
		ConcentrationLimit: c.RuleThresholds.ConcentrationLimit,
		LossThresholdPct:   c.RuleThresholds.LossThresholdPct,
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Prices.CacheTTLMinutes) * time.Minute
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Prices.StalePriceMaxMinutes) * time.Minute
}
