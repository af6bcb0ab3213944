// Package config loads the engine configuration from YAML: unmarshal over
// seeded defaults, fill remaining zero fields from default tags, then
// validate the whole tree.
package config

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aurumlab/goldcore/internal/analyzer"
	"github.com/aurumlab/goldcore/internal/portfolio"
	"github.com/aurumlab/goldcore/internal/risk"
	"github.com/aurumlab/goldcore/internal/trade"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// IndicatorConfig holds the indicator periods the feed is built with.
type IndicatorConfig struct {
	FastMAPeriod     int `yaml:"fast_ma_period" json:"fast_ma_period" default:"10" validate:"gt=0"`
	SlowMAPeriod     int `yaml:"slow_ma_period" json:"slow_ma_period" default:"50" validate:"gt=0"`
	RSIPeriod        int `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gt=0"`
	ATRPeriod        int `yaml:"atr_period" json:"atr_period" default:"14" validate:"gt=0"`
	MACDFastPeriod   int `yaml:"macd_fast_period" json:"macd_fast_period" default:"12" validate:"gt=0"`
	MACDSlowPeriod   int `yaml:"macd_slow_period" json:"macd_slow_period" default:"26" validate:"gt=0"`
	MACDSignalPeriod int `yaml:"macd_signal_period" json:"macd_signal_period" default:"9" validate:"gt=0"`
}

// ServerConfig holds the HTTP status server settings.
type ServerConfig struct {
	// Listen is the address the status server binds to. Empty disables it.
	Listen string `yaml:"listen" json:"listen" default:":9090"`
}

// JournalConfig holds the run artifact settings.
type JournalConfig struct {
	// Dir is the base directory run artifacts are written under. Empty
	// disables journaling.
	Dir string `yaml:"dir" json:"dir" default:"journal"`
}

// Config is the full engine configuration tree.
type Config struct {
	// Symbol is the instrument the engine trades.
	Symbol string `yaml:"symbol" json:"symbol" default:"XAUUSD" validate:"required"`
	// MagicNumber tags every position and order this engine owns.
	MagicNumber int64 `yaml:"magic_number" json:"magic_number" default:"860001" validate:"gt=0"`
	// MaxOpenTrades caps concurrently open owned positions.
	MaxOpenTrades int `yaml:"max_open_trades" json:"max_open_trades" default:"3" validate:"gte=1"`
	// AllowLong / AllowShort gate signal directions. Both default to true.
	AllowLong  bool `yaml:"allow_long" json:"allow_long"`
	AllowShort bool `yaml:"allow_short" json:"allow_short"`

	Analyzer   analyzer.Config  `yaml:"analyzer" json:"analyzer"`
	Risk       risk.Config      `yaml:"risk" json:"risk"`
	Trade      trade.Config     `yaml:"trade" json:"trade"`
	Portfolio  portfolio.Config `yaml:"portfolio" json:"portfolio"`
	Indicators IndicatorConfig  `yaml:"indicators" json:"indicators"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Journal    JournalConfig    `yaml:"journal" json:"journal"`
}

// Default returns the configuration with every default applied. Bool fields
// defaulting to true are seeded here because a default tag cannot tell an
// explicit false from an unset field.
func Default() (Config, error) {
	cfg := Config{
		AllowLong:  true,
		AllowShort: true,
	}
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to apply defaults", err)
	}

	return cfg, nil
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse defaults and validates a raw YAML configuration document.
func Parse(data []byte) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config YAML", err)
	}

	// Fill fields the document introduced as zero-valued sections.
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to apply defaults", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.Analyzer.UseVolatilityFilter && c.Analyzer.MaxVolatility < c.Analyzer.MinVolatility {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"max_volatility %f below min_volatility %f",
			c.Analyzer.MaxVolatility, c.Analyzer.MinVolatility)
	}

	if c.Analyzer.UseSessionFilter &&
		!c.Analyzer.AsianSession && !c.Analyzer.EuropeanSession && !c.Analyzer.USSession {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"session filter enabled with no session selected")
	}

	if c.Indicators.FastMAPeriod >= c.Indicators.SlowMAPeriod {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"fast_ma_period %d must be below slow_ma_period %d",
			c.Indicators.FastMAPeriod, c.Indicators.SlowMAPeriod)
	}

	if !c.AllowLong && !c.AllowShort {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"both trade directions disabled")
	}

	return nil
}
