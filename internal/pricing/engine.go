package pricing

import (
	"sync"
	"time"

	"footy_go/internal/domain"

	"github.com/shopspring/decimal"
)

// RecoveryPolicy computes the post-recovery price when an instrument's
// injury flag clears. The exact recovery formula is a policy choice kept
// behind this type so it can be revisited without touching the engine.
type RecoveryPolicy func(inst *domain.Instrument, injuryFactor decimal.Decimal) decimal.Decimal

// RevertInjuryShock is the default policy: it reverses the injury
// multiplier, restoring the price the instrument held before the shock.
func RevertInjuryShock(inst *domain.Instrument, injuryFactor decimal.Decimal) decimal.Decimal {
	return inst.Price.Div(injuryFactor)
}

// RecoverToBase is the alternative policy: the price snaps back to the
// instrument's base price regardless of where the shock left it.
func RecoverToBase(inst *domain.Instrument, injuryFactor decimal.Decimal) decimal.Decimal {
	return inst.BasePrice
}

// Config carries the pricing weights. Zero values fall back to defaults.
type Config struct {
	GoalWeight   decimal.Decimal
	AssistWeight decimal.Decimal
	MinuteWeight decimal.Decimal
	InjuryFactor decimal.Decimal
	Recovery     RecoveryPolicy
}

// Engine deterministically maps (instrument state, stat update) to a new
// price and counters. Reproducible offline: the same starting state and
// event sequence always yields the same final price.
type Engine struct {
	goalWeight   decimal.Decimal
	assistWeight decimal.Decimal
	minuteWeight decimal.Decimal
	injuryFactor decimal.Decimal
	recovery     RecoveryPolicy

	// Idempotence guard against provider redelivery: source sequence ids
	// already applied per instrument.
	mu      sync.Mutex
	applied map[string]map[string]struct{}
}

// NewEngine creates a pricing engine with the given weights.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		goalWeight:   cfg.GoalWeight,
		assistWeight: cfg.AssistWeight,
		minuteWeight: cfg.MinuteWeight,
		injuryFactor: cfg.InjuryFactor,
		recovery:     cfg.Recovery,
		applied:      make(map[string]map[string]struct{}),
	}
	if e.goalWeight.IsZero() {
		e.goalWeight = decimal.NewFromInt(100)
	}
	if e.assistWeight.IsZero() {
		e.assistWeight = decimal.NewFromInt(50)
	}
	if e.minuteWeight.IsZero() {
		e.minuteWeight = decimal.RequireFromString("0.1")
	}
	if e.injuryFactor.IsZero() {
		e.injuryFactor = decimal.RequireFromString("0.7")
	}
	if e.recovery == nil {
		e.recovery = RevertInjuryShock
	}
	return e
}

// seen reports whether the event's source sequence id was already
// applied, recording it otherwise. Events without a sequence id are
// never deduplicated.
func (e *Engine) seen(instrumentID, seq string) bool {
	if seq == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ids, ok := e.applied[instrumentID]
	if !ok {
		ids = make(map[string]struct{})
		e.applied[instrumentID] = ids
	}
	if _, dup := ids[seq]; dup {
		return true
	}
	ids[seq] = struct{}{}
	return false
}

// ApplyStat mutates the instrument per the pricing rules and reports the
// resulting PriceChange. It must run under the instrument's registry
// lock. Returns ok=false for duplicates and zero-delta events so callers
// never broadcast no-ops.
func (e *Engine) ApplyStat(inst *domain.Instrument, stat domain.StatUpdate) (domain.PriceChange, bool) {
	if e.seen(inst.ID, stat.SourceSeq) {
		return domain.PriceChange{}, false
	}

	oldPrice := inst.Price

	inst.Goals += stat.Goals
	inst.Assists += stat.Assists
	inst.Minutes += stat.Minutes

	delta := e.goalWeight.Mul(decimal.NewFromInt(int64(stat.Goals))).
		Add(e.assistWeight.Mul(decimal.NewFromInt(int64(stat.Assists)))).
		Add(e.minuteWeight.Mul(decimal.NewFromInt(int64(stat.Minutes))))

	switch {
	case stat.Injured != nil && *stat.Injured && !inst.Injured:
		// One-time multiplicative shock, not reapplied while already injured.
		inst.Price = inst.Price.Mul(e.injuryFactor)
		inst.Injured = true
	case stat.Injured != nil && !*stat.Injured && inst.Injured:
		inst.Price = e.recovery(inst, e.injuryFactor)
		inst.Injured = false
	default:
		inst.Price = inst.Price.Add(delta)
	}

	// Round half-even to the smallest currency unit; floor at zero.
	inst.Price = inst.Price.RoundBank(2)
	if inst.Price.IsNegative() {
		inst.Price = decimal.Zero
	}

	ts := stat.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	inst.UpdatedAt = ts

	if inst.Price.Equal(oldPrice) {
		return domain.PriceChange{}, false
	}

	return domain.PriceChange{
		InstrumentID: inst.ID,
		OldPrice:     oldPrice,
		NewPrice:     inst.Price,
		Goals:        inst.Goals,
		Assists:      inst.Assists,
		Minutes:      inst.Minutes,
		Injured:      inst.Injured,
		Timestamp:    ts,
	}, true
}
