package registry

import (
	"sort"
	"sync"

	"footy_go/internal/domain"

	"github.com/shopspring/decimal"
)

// entry pairs one instrument with its own lock. All mutation and every
// price read used to price a trade goes through this lock, so a reader
// sees either the old price or the fully applied new one, never a torn
// value. Unrelated instruments never contend.
type entry struct {
	mu   sync.Mutex
	inst domain.Instrument
}

// Registry holds the current state of every instrument. The outer map is
// fixed after seeding; only entry contents mutate.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Seed installs the starting instrument set. Instruments are never
// removed during the process lifetime.
func (r *Registry) Seed(instruments []domain.Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range instruments {
		r.entries[inst.ID] = &entry{inst: inst}
	}
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Get returns a copy of the instrument state.
func (r *Registry) Get(id string) (domain.Instrument, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Instrument{}, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inst, nil
}

// Price returns the instrument's current price under its lock.
func (r *Registry) Price(id string) (decimal.Decimal, error) {
	e, ok := r.lookup(id)
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inst.Price, nil
}

// Apply runs fn on the instrument under its per-instrument lock. This is
// the only mutation path; fn returns the resulting PriceChange and
// whether the price actually moved. The caller publishes the change
// after the lock has been released.
func (r *Registry) Apply(id string, fn func(*domain.Instrument) (domain.PriceChange, bool)) (domain.PriceChange, bool, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.PriceChange{}, false, domain.ErrNotFound
	}
	e.mu.Lock()
	change, changed := fn(&e.inst)
	e.mu.Unlock()
	return change, changed, nil
}

// Snapshot returns a copy of every instrument, sorted by id, for
// initial-state delivery to new subscribers.
func (r *Registry) Snapshot() []domain.Instrument {
	r.mu.RLock()
	result := make([]domain.Instrument, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		result = append(result, e.inst)
		e.mu.Unlock()
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
