package compliance

import (
	"context"
	"testing"
	"time"

	"footy_go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestTierGate_SpendCeiling(t *testing.T) {
	g := NewTierGate("bronze", nil) // bronze: 500 spend / 1000 receive
	ctx := context.Background()

	t.Run("Under the ceiling", func(t *testing.T) {
		decision, err := g.CheckLimit(ctx, "acct", decimal.NewFromInt(300), domain.DirectionSpend)
		if err != nil {
			t.Fatalf("CheckLimit failed: %v", err)
		}
		if !decision.Allowed || decision.Tier != "bronze" {
			t.Errorf("Expected allowed at bronze, got %+v", decision)
		}
	})

	t.Run("Crossing the ceiling", func(t *testing.T) {
		decision, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(300), domain.DirectionSpend)
		if decision.Allowed {
			t.Error("600 total spend must exceed the bronze 500 ceiling")
		}
		if !decision.Ceiling.Equal(decimal.NewFromInt(500)) {
			t.Errorf("Wrong ceiling in decision: %v", decision.Ceiling)
		}
	})

	t.Run("Denied amounts do not consume allowance", func(t *testing.T) {
		decision, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(200), domain.DirectionSpend)
		if !decision.Allowed {
			t.Error("Remaining 200 allowance should still clear")
		}
	})

	t.Run("Directions tracked independently", func(t *testing.T) {
		decision, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(900), domain.DirectionReceive)
		if !decision.Allowed {
			t.Error("Receive allowance is separate from spend")
		}
	})
}

func TestTierGate_DayRollover(t *testing.T) {
	g := NewTierGate("bronze", nil)
	ctx := context.Background()

	current := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(500), domain.DirectionSpend); !d.Allowed {
		t.Fatal("Initial spend should clear")
	}
	if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(1), domain.DirectionSpend); d.Allowed {
		t.Fatal("Allowance should be exhausted")
	}

	current = current.Add(6 * time.Hour) // past midnight
	if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(500), domain.DirectionSpend); !d.Allowed {
		t.Error("Allowance should reset on day rollover")
	}
}

func TestTierGate_RolloverFollowsLocalMidnight(t *testing.T) {
	ctx := context.Background()

	t.Run("Crossing local midnight resets", func(t *testing.T) {
		g := NewTierGate("bronze", nil)
		zone := time.FixedZone("UTC+10", 10*3600)
		current := time.Date(2026, 3, 14, 23, 0, 0, 0, zone)
		g.now = func() time.Time { return current }

		if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(500), domain.DirectionSpend); !d.Allowed {
			t.Fatal("Initial spend should clear")
		}

		// 01:00 on the 15th locally; still the 14th in UTC.
		current = current.Add(2 * time.Hour)
		if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(500), domain.DirectionSpend); !d.Allowed {
			t.Error("Allowance should reset at local midnight")
		}
	})

	t.Run("Crossing UTC midnight mid-day does not reset", func(t *testing.T) {
		g := NewTierGate("bronze", nil)
		zone := time.FixedZone("UTC-10", -10*3600)
		current := time.Date(2026, 3, 14, 13, 0, 0, 0, zone)
		g.now = func() time.Time { return current }

		if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(500), domain.DirectionSpend); !d.Allowed {
			t.Fatal("Initial spend should clear")
		}

		// 15:00 on the same local day; already the 15th in UTC.
		current = current.Add(2 * time.Hour)
		if d, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(1), domain.DirectionSpend); d.Allowed {
			t.Error("Allowance must not reset before local midnight")
		}
	})
}

func TestTierGate_Tiers(t *testing.T) {
	g := NewTierGate("bronze", nil)
	ctx := context.Background()

	t.Run("Upgraded tier gets a higher ceiling", func(t *testing.T) {
		g.SetTier("whale", "platinum")
		decision, _ := g.CheckLimit(ctx, "whale", decimal.NewFromInt(400000), domain.DirectionSpend)
		if !decision.Allowed || decision.Tier != "platinum" {
			t.Errorf("Expected platinum allowance, got %+v", decision)
		}
	})

	t.Run("Unknown tier falls back to the default", func(t *testing.T) {
		g.SetTier("odd", "mythril")
		decision, _ := g.CheckLimit(ctx, "odd", decimal.NewFromInt(600), domain.DirectionSpend)
		if decision.Allowed {
			t.Error("Unknown tier must use the default ceiling")
		}
	})

	t.Run("Unknown direction is denied", func(t *testing.T) {
		decision, _ := g.CheckLimit(ctx, "acct", decimal.NewFromInt(1), "sideways")
		if decision.Allowed {
			t.Error("Unknown direction must not be allowed")
		}
	})
}
