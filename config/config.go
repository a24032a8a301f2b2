// Package config loads and validates the session configuration from
// YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qstrat/t0ledger/authorize"
	"github.com/qstrat/t0ledger/market"
	"github.com/qstrat/t0ledger/risk"
)

// Config is the complete session configuration.
type Config struct {
	Session   SessionConfig   `json:"session" yaml:"session"`
	Risk      RiskConfig      `json:"risk" yaml:"risk"`
	Authorize AuthorizeConfig `json:"authorize" yaml:"authorize"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// SessionConfig tunes the matching run itself.
type SessionConfig struct {
	Workers int `json:"workers" yaml:"workers"`
}

// RiskConfig configures the post-match risk gate.
type RiskConfig struct {
	MaxPositionValue float64  `json:"max_position_value" yaml:"max_position_value"`
	MaxAccountValue  float64  `json:"max_account_value" yaml:"max_account_value"`
	MaxConcentration float64  `json:"max_concentration" yaml:"max_concentration"`
	MaxT0Frequency   int      `json:"max_t0_frequency,omitempty" yaml:"max_t0_frequency,omitempty"`
	TopHoldings      int      `json:"top_holdings,omitempty" yaml:"top_holdings,omitempty"`
	BlockedSymbols   []string `json:"blocked_symbols,omitempty" yaml:"blocked_symbols,omitempty"`
}

// AuthorizeConfig shapes next-session order derivation.
type AuthorizeConfig struct {
	MaxQuantity int64   `json:"max_quantity" yaml:"max_quantity"`
	LotSize     int64   `json:"lot_size,omitempty" yaml:"lot_size,omitempty"`
	BuyBand     float64 `json:"buy_band" yaml:"buy_band"`
	SellBand    float64 `json:"sell_band" yaml:"sell_band"`
}

// JournalConfig selects the archive backend.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "csv" or "sqlite"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON. Fields absent from the file keep their
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML for .yaml/.yml paths and
// indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Session.Workers < 1 {
		return fmt.Errorf("session.workers must be at least 1")
	}
	if c.Risk.MaxPositionValue < 0 || c.Risk.MaxAccountValue < 0 {
		return fmt.Errorf("risk value caps must be non-negative")
	}
	if c.Risk.MaxConcentration < 0 || c.Risk.MaxConcentration > 1 {
		return fmt.Errorf("risk.max_concentration must be within [0, 1]")
	}
	if c.Risk.MaxT0Frequency < 0 {
		return fmt.Errorf("risk.max_t0_frequency must be non-negative")
	}
	if c.Authorize.MaxQuantity < 0 {
		return fmt.Errorf("authorize.max_quantity must be non-negative")
	}
	if c.Authorize.LotSize < 0 {
		return fmt.Errorf("authorize.lot_size must be non-negative")
	}
	if c.Authorize.BuyBand < 0 || c.Authorize.BuyBand >= 1 {
		return fmt.Errorf("authorize.buy_band must be within [0, 1)")
	}
	if c.Authorize.SellBand < 0 || c.Authorize.SellBand >= 1 {
		return fmt.Errorf("authorize.sell_band must be within [0, 1)")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for csv type")
		}
	case "":
		// journaling disabled
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// RiskLimits converts the config section into engine inputs.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxPositionValue: market.Amt(c.Risk.MaxPositionValue),
		MaxAccountValue:  market.Amt(c.Risk.MaxAccountValue),
		MaxConcentration: c.Risk.MaxConcentration,
		MaxT0Frequency:   c.Risk.MaxT0Frequency,
		TopHoldings:      c.Risk.TopHoldings,
		BlockedSymbols:   c.Risk.BlockedSymbols,
	}
}

// AuthorizeParams converts the config section into derivation inputs.
func (c *Config) AuthorizeParams() authorize.Params {
	return authorize.Params{
		MaxQuantity:    c.Authorize.MaxQuantity,
		LotSize:        c.Authorize.LotSize,
		BuyBand:        c.Authorize.BuyBand,
		SellBand:       c.Authorize.SellBand,
		BlockedSymbols: c.Risk.BlockedSymbols,
	}
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Workers: 4,
		},
		Risk: RiskConfig{
			MaxPositionValue: 1_000_000,
			MaxAccountValue:  10_000_000,
			MaxConcentration: 0.5,
			MaxT0Frequency:   20,
		},
		Authorize: AuthorizeConfig{
			MaxQuantity: 10_000,
			LotSize:     100,
			BuyBand:     0.02,
			SellBand:    0.05,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./t0ledger.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
