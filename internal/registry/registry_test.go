package registry

import (
	"sync"
	"testing"

	"footy_go/internal/domain"

	"github.com/shopspring/decimal"
)

func seededRegistry() *Registry {
	r := New()
	r.Seed([]domain.Instrument{
		{ID: "p2", Name: "Beta", Price: decimal.NewFromInt(500), BasePrice: decimal.NewFromInt(500)},
		{ID: "p1", Name: "Alpha", Price: decimal.NewFromInt(1000), BasePrice: decimal.NewFromInt(1000)},
		{ID: "p3", Name: "Gamma", Price: decimal.NewFromInt(750), BasePrice: decimal.NewFromInt(750)},
	})
	return r
}

func TestRegistry_Lookup(t *testing.T) {
	r := seededRegistry()

	t.Run("Known instrument", func(t *testing.T) {
		inst, err := r.Get("p1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if inst.Name != "Alpha" {
			t.Errorf("Wrong instrument: %s", inst.Name)
		}
	})

	t.Run("Unknown instrument", func(t *testing.T) {
		if _, err := r.Get("ghost"); err != domain.ErrNotFound {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := r.Price("ghost"); err != domain.ErrNotFound {
			t.Errorf("Expected ErrNotFound from Price, got %v", err)
		}
		_, _, err := r.Apply("ghost", func(*domain.Instrument) (domain.PriceChange, bool) {
			t.Error("fn must not run for unknown instrument")
			return domain.PriceChange{}, false
		})
		if err != domain.ErrNotFound {
			t.Errorf("Expected ErrNotFound from Apply, got %v", err)
		}
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		inst, _ := r.Get("p1")
		inst.Price = decimal.NewFromInt(1)
		price, _ := r.Price("p1")
		if !price.Equal(decimal.NewFromInt(1000)) {
			t.Error("Mutating the copy leaked into the registry")
		}
	})
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	r := seededRegistry()
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 instruments, got %d", len(snap))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if snap[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, snap[i].ID)
		}
	}
}

func TestRegistry_ConcurrentApplySerialized(t *testing.T) {
	r := seededRegistry()

	const workers = 16
	const perWorker = 100
	one := decimal.NewFromInt(1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				r.Apply("p1", func(inst *domain.Instrument) (domain.PriceChange, bool) {
					inst.Price = inst.Price.Add(one)
					return domain.PriceChange{InstrumentID: inst.ID, NewPrice: inst.Price}, true
				})
			}
		}()
	}
	wg.Wait()

	price, err := r.Price("p1")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	want := decimal.NewFromInt(1000 + workers*perWorker)
	if !price.Equal(want) {
		t.Errorf("Lost updates: expected %v, got %v", want, price)
	}
}
