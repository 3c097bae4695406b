// Package config loads and validates the bot configuration from a YAML
// file or command-line flags. All values are static for process lifetime.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL        = "https://api.mercadobitcoin.net/api/v4"
	defaultPair           = "BTC-BRL"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultRetryDelay     = 2 * time.Second
	defaultPollInterval   = 60 * time.Second
	defaultMinOrderFiat   = "10"
	defaultMinOrderQty    = "0.00001"
)

// Config is the validated bot configuration. Credentials are not part of
// it; they come from the environment and are handled in cmd.
type Config struct {
	BaseURL        string
	Pair           domain.Pair
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	PollInterval   time.Duration
	MinOrderFiat   decimal.Decimal
	MinOrderQty    decimal.Decimal
	Rules          []domain.Rule
}

type ruleTmp struct {
	Name       string `yaml:"name"`
	Side       string `yaml:"side"`
	Threshold  string `yaml:"threshold"`
	Allocation string `yaml:"allocation"`
}

type configTmp struct {
	BaseURL        string        `yaml:"base_url,omitempty"`
	Pair           string        `yaml:"pair,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	MaxRetries     int           `yaml:"max_retries,omitempty"`
	RetryDelay     time.Duration `yaml:"retry_delay,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	MinOrderFiat   string        `yaml:"min_order_fiat,omitempty"`
	MinOrderQty    string        `yaml:"min_order_qty,omitempty"`
	Rules          []ruleTmp     `yaml:"rules,omitempty"`
}

// Get parses flags and returns the configuration, reading the YAML file
// when --config is provided and falling back to flag values otherwise.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	pairFlag := flag.String("pair", defaultPair, "trading pair, example: BTC-BRL")
	pollInterval := flag.Duration("pollinterval", defaultPollInterval, "price polling interval")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	pair, err := domain.PairFromString(*pairFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --pair provided, --pair=%s: %w", *pairFlag, err)
	}

	cfg := Config{
		BaseURL:        defaultBaseURL,
		Pair:           pair,
		RequestTimeout: defaultRequestTimeout,
		MaxRetries:     defaultMaxRetries,
		RetryDelay:     defaultRetryDelay,
		PollInterval:   *pollInterval,
		MinOrderFiat:   decimal.RequireFromString(defaultMinOrderFiat),
		MinOrderQty:    decimal.RequireFromString(defaultMinOrderQty),
		Rules:          domain.DefaultRules(),
	}

	return cfg, cfg.validate()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	cfg := Config{
		BaseURL:        tmp.BaseURL,
		RequestTimeout: tmp.RequestTimeout,
		MaxRetries:     tmp.MaxRetries,
		RetryDelay:     tmp.RetryDelay,
		PollInterval:   tmp.PollInterval,
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}

	pairStr := tmp.Pair
	if pairStr == "" {
		pairStr = defaultPair
	}
	cfg.Pair, err = domain.PairFromString(pairStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s: %w", tmp.Pair, err)
	}

	cfg.MinOrderFiat, err = decimalOrDefault(tmp.MinOrderFiat, defaultMinOrderFiat)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'min_order_fiat' param in yaml config: %w", err)
	}
	cfg.MinOrderQty, err = decimalOrDefault(tmp.MinOrderQty, defaultMinOrderQty)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'min_order_qty' param in yaml config: %w", err)
	}

	if len(tmp.Rules) == 0 {
		cfg.Rules = domain.DefaultRules()
	} else {
		for _, r := range tmp.Rules {
			rule, err := parseRule(r)
			if err != nil {
				return Config{}, err
			}
			cfg.Rules = append(cfg.Rules, rule)
		}
	}

	return cfg, cfg.validate()
}

func parseRule(r ruleTmp) (domain.Rule, error) {
	threshold, err := decimal.NewFromString(r.Threshold)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("incorrect 'threshold' for rule %s (must be a decimal fraction): %w", r.Name, err)
	}
	allocation, err := decimal.NewFromString(r.Allocation)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("incorrect 'allocation' for rule %s (must be a decimal fraction): %w", r.Name, err)
	}

	side := domain.Side(r.Side)
	if side != domain.SideBuy && side != domain.SideSell {
		return domain.Rule{}, fmt.Errorf("incorrect 'side' for rule %s: %q", r.Name, r.Side)
	}

	return domain.Rule{
		Name:       r.Name,
		Side:       side,
		Threshold:  threshold,
		Allocation: allocation,
	}, nil
}

func decimalOrDefault(value, fallback string) (decimal.Decimal, error) {
	if value == "" {
		value = fallback
	}
	return decimal.NewFromString(value)
}

func (c Config) validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MinOrderFiat.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("min order fiat must be positive, got %s", c.MinOrderFiat.String())
	}
	if c.MinOrderQty.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("min order qty must be positive, got %s", c.MinOrderQty.String())
	}
	for _, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("every rule needs a name")
		}
		if r.Threshold.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("rule %s threshold must be positive, got %s", r.Name, r.Threshold.String())
		}
		if r.Allocation.LessThanOrEqual(decimal.Zero) || r.Allocation.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("rule %s allocation must be in (0, 1], got %s", r.Name, r.Allocation.String())
		}
	}
	return nil
}
