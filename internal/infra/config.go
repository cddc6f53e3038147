package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// PlayerSeed is one instrument's bootstrap definition.
type PlayerSeed struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Position string `yaml:"position"`
	Team     string `yaml:"team"`
}

// TierLimits bounds one account tier's daily movement.
type TierLimits struct {
	DailySpend   decimal.Decimal `yaml:"daily_spend"`
	DailyReceive decimal.Decimal `yaml:"daily_receive"`
}

// Config holds all application settings, loaded from YAML with
// environment-variable overrides for secrets.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Feed struct {
		Source          string `yaml:"source"` // aggregate | stream | simulator
		URL             string `yaml:"url"`
		APIKey          string `yaml:"api_key"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"feed"`

	Pricing struct {
		BasePrice    decimal.Decimal `yaml:"base_price"`
		GoalWeight   decimal.Decimal `yaml:"goal_weight"`
		AssistWeight decimal.Decimal `yaml:"assist_weight"`
		MinuteWeight decimal.Decimal `yaml:"minute_weight"`
		InjuryFactor decimal.Decimal `yaml:"injury_factor"`
	} `yaml:"pricing"`

	Hub struct {
		QueueSize int `yaml:"queue_size"`
	} `yaml:"hub"`

	Compliance struct {
		DefaultTier string                `yaml:"default_tier"`
		Tiers       map[string]TierLimits `yaml:"tiers"`
	} `yaml:"compliance"`

	Funding struct {
		BaseURL   string `yaml:"base_url"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"funding"`

	Assets struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"assets"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Players []PlayerSeed `yaml:"players"`
}

// LoadConfig reads and parses the configuration file.
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

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch c.Feed.Source {
	case "aggregate", "stream", "simulator":
	default:
		return fmt.Errorf("unknown feed source: %q", c.Feed.Source)
	}
	if c.Feed.Source != "simulator" && c.Feed.URL == "" {
		return fmt.Errorf("feed url is required for source %q", c.Feed.Source)
	}
	if c.Feed.PollIntervalSec <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if !c.Pricing.BasePrice.IsPositive() {
		return fmt.Errorf("base price must be positive")
	}
	if c.Hub.QueueSize < 0 {
		return fmt.Errorf("hub queue size must not be negative")
	}
	if len(c.Players) == 0 {
		return fmt.Errorf("at least one player seed is required")
	}
	for _, p := range c.Players {
		if p.ID == "" {
			return fmt.Errorf("player seed without id")
		}
	}
	return nil
}

// overrideWithEnv replaces secrets with environment values when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("FOOTY_FEED_KEY"); key != "" {
		cfg.Feed.APIKey = key
	}
	if secret := os.Getenv("FOOTY_FUNDING_SECRET"); secret != "" {
		cfg.Funding.SecretKey = secret
	}
}
