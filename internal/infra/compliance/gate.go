package compliance

import (
	"context"
	"sync"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/infra"

	"github.com/shopspring/decimal"
)

// Default daily ceilings per tier, applied when the config names no tiers.
func defaultTiers() map[string]infra.TierLimits {
	return map[string]infra.TierLimits{
		"bronze":   {DailySpend: decimal.NewFromInt(500), DailyReceive: decimal.NewFromInt(1000)},
		"silver":   {DailySpend: decimal.NewFromInt(5000), DailyReceive: decimal.NewFromInt(10000)},
		"gold":     {DailySpend: decimal.NewFromInt(50000), DailyReceive: decimal.NewFromInt(100000)},
		"platinum": {DailySpend: decimal.NewFromInt(500000), DailyReceive: decimal.NewFromInt(1000000)},
	}
}

type accountState struct {
	tier     string
	day      time.Time
	spent    decimal.Decimal
	received decimal.Decimal
}

// TierGate enforces per-tier daily movement ceilings. It satisfies the
// gate contract the trade ledger consumes; a remote gate implementation
// can replace it without touching the ledger.
type TierGate struct {
	defaultTier string
	tiers       map[string]infra.TierLimits

	mu       sync.Mutex
	accounts map[string]*accountState
	now      func() time.Time
}

// NewTierGate creates a gate with the configured tiers. Missing
// configuration falls back to the built-in tier table.
func NewTierGate(defaultTier string, tiers map[string]infra.TierLimits) *TierGate {
	if len(tiers) == 0 {
		tiers = defaultTiers()
	}
	if defaultTier == "" {
		defaultTier = "bronze"
	}
	return &TierGate{
		defaultTier: defaultTier,
		tiers:       tiers,
		accounts:    make(map[string]*accountState),
		now:         time.Now,
	}
}

// SetTier assigns an account to a tier.
func (g *TierGate) SetTier(accountID, tier string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(accountID).tier = tier
}

// state returns the account's record, creating it at the default tier.
// Caller holds g.mu.
func (g *TierGate) state(accountID string) *accountState {
	st, ok := g.accounts[accountID]
	if !ok {
		st = &accountState{
			tier:     g.defaultTier,
			day:      g.today(),
			spent:    decimal.Zero,
			received: decimal.Zero,
		}
		g.accounts[accountID] = st
	}
	return st
}

// today returns midnight in the clock's zone, so allowances reset at the
// account-facing day boundary rather than at UTC-epoch midnight.
func (g *TierGate) today() time.Time {
	now := g.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// CheckLimit reports whether the account may move amount in the given
// direction today. Allowed amounts count against the daily total.
func (g *TierGate) CheckLimit(ctx context.Context, accountID string, amount decimal.Decimal, direction string) (domain.ComplianceDecision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(accountID)
	if today := g.today(); !st.day.Equal(today) {
		st.day = today
		st.spent = decimal.Zero
		st.received = decimal.Zero
	}

	limits, ok := g.tiers[st.tier]
	if !ok {
		limits = g.tiers[g.defaultTier]
	}

	var used, ceiling decimal.Decimal
	switch direction {
	case domain.DirectionSpend:
		used, ceiling = st.spent, limits.DailySpend
	case domain.DirectionReceive:
		used, ceiling = st.received, limits.DailyReceive
	default:
		return domain.ComplianceDecision{Tier: st.tier, Reason: "unknown direction"}, nil
	}

	if used.Add(amount).GreaterThan(ceiling) {
		return domain.ComplianceDecision{
			Allowed: false,
			Tier:    st.tier,
			Ceiling: ceiling,
			Reason:  "daily " + direction + " limit exceeded",
		}, nil
	}

	switch direction {
	case domain.DirectionSpend:
		st.spent = used.Add(amount)
	case domain.DirectionReceive:
		st.received = used.Add(amount)
	}

	return domain.ComplianceDecision{Allowed: true, Tier: st.tier, Ceiling: ceiling}, nil
}
