package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const validYAML = `
app:
  name: footy-go
feed:
  source: simulator
  poll_interval_sec: 2
pricing:
  base_price: "1000"
  goal_weight: "100"
hub:
  queue_size: 32
compliance:
  default_tier: silver
  tiers:
    silver:
      daily_spend: "5000"
      daily_receive: "10000"
players:
  - { id: p1, name: "Alpha", position: FW, team: "Club" }
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Feed.Source != "simulator" || cfg.Feed.PollIntervalSec != 2 {
		t.Errorf("Feed section wrong: %+v", cfg.Feed)
	}
	if !cfg.Pricing.BasePrice.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("BasePrice wrong: %v", cfg.Pricing.BasePrice)
	}
	if !cfg.Compliance.Tiers["silver"].DailySpend.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Tier limits wrong: %+v", cfg.Compliance.Tiers)
	}
	if len(cfg.Players) != 1 || cfg.Players[0].ID != "p1" {
		t.Errorf("Player seeds wrong: %+v", cfg.Players)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FOOTY_FEED_KEY", "env-feed-key")
	t.Setenv("FOOTY_FUNDING_SECRET", "env-funding-secret")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Feed.APIKey != "env-feed-key" {
		t.Errorf("Feed key not overridden: %q", cfg.Feed.APIKey)
	}
	if cfg.Funding.SecretKey != "env-funding-secret" {
		t.Errorf("Funding secret not overridden: %q", cfg.Funding.SecretKey)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"Unknown feed source", `
feed: { source: carrier-pigeon, poll_interval_sec: 1 }
pricing: { base_price: "1000" }
players: [{ id: p1 }]
`},
		{"Poll source without url", `
feed: { source: stream, poll_interval_sec: 1 }
pricing: { base_price: "1000" }
players: [{ id: p1 }]
`},
		{"Non-positive poll interval", `
feed: { source: simulator, poll_interval_sec: 0 }
pricing: { base_price: "1000" }
players: [{ id: p1 }]
`},
		{"Non-positive base price", `
feed: { source: simulator, poll_interval_sec: 1 }
pricing: { base_price: "0" }
players: [{ id: p1 }]
`},
		{"No player seeds", `
feed: { source: simulator, poll_interval_sec: 1 }
pricing: { base_price: "1000" }
players: []
`},
		{"Player seed without id", `
feed: { source: simulator, poll_interval_sec: 1 }
pricing: { base_price: "1000" }
players: [{ name: "Nameless" }]
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.yaml)); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},  // capped
		{40, 60 * time.Second}, // overflow-safe
	}
	for _, tc := range cases {
		if got := CalculateBackoff(tc.retry); got != tc.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}
