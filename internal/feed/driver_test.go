package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/pricing"
	"footy_go/internal/registry"

	"github.com/shopspring/decimal"
)

// scriptedSource hands out each payload batch once, then empty pulls.
type scriptedSource struct {
	mu      sync.Mutex
	batches [][][]byte
}

func (s *scriptedSource) Pull(ctx context.Context) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

type capturingPublisher struct {
	mu      sync.Mutex
	changes []domain.PriceChange
}

func (p *capturingPublisher) Publish(change domain.PriceChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

func (p *capturingPublisher) snapshot() []domain.PriceChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PriceChange(nil), p.changes...)
}

func canonicalPayload(t *testing.T, updates []domain.StatUpdate) []byte {
	t.Helper()
	raw, err := json.Marshal(updates)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func pipelineFixture() (*registry.Registry, *pricing.Engine) {
	reg := registry.New()
	reg.Seed([]domain.Instrument{
		{ID: "p1", Price: decimal.NewFromInt(1000), BasePrice: decimal.NewFromInt(1000)},
	})
	return reg, pricing.NewEngine(pricing.Config{})
}

func TestDriver_PipelineAppliesAndPublishes(t *testing.T) {
	reg, engine := pipelineFixture()
	pub := &capturingPublisher{}
	source := &scriptedSource{batches: [][][]byte{{
		canonicalPayload(t, []domain.StatUpdate{
			{InstrumentID: "p1", Goals: 1, SourceSeq: "ev-1"},
			{InstrumentID: "p1", Assists: 1, SourceSeq: "ev-2"},
			{InstrumentID: "ghost", Goals: 1, SourceSeq: "ev-3"}, // unknown, logged and skipped
			{InstrumentID: "p1", SourceSeq: "ev-4"},              // zero delta, no broadcast
		}),
	}}}

	d := NewDriver(source, SimulatorNormalizer{}, reg, engine, pub, nil, 10*time.Millisecond)
	d.Start(context.Background())
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	for len(pub.snapshot()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("Timed out; got %d publishes", len(pub.snapshot()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	changes := pub.snapshot()
	if len(changes) != 2 {
		t.Fatalf("Expected exactly 2 publishes, got %d", len(changes))
	}
	if !changes[0].NewPrice.Equal(decimal.NewFromInt(1100)) || !changes[1].NewPrice.Equal(decimal.NewFromInt(1150)) {
		t.Errorf("Publish order or prices wrong: %v, %v", changes[0].NewPrice, changes[1].NewPrice)
	}

	price, _ := reg.Price("p1")
	if !price.Equal(decimal.NewFromInt(1150)) {
		t.Errorf("Registry price wrong: %v", price)
	}
}

func TestDriver_StopDrainsAndHalts(t *testing.T) {
	reg, engine := pipelineFixture()
	pub := &capturingPublisher{}
	source := &scriptedSource{}

	d := NewDriver(source, SimulatorNormalizer{}, reg, engine, pub, nil, 5*time.Millisecond)
	d.Start(context.Background())
	if !d.Running() {
		t.Fatal("Driver should report running after Start")
	}
	d.Start(context.Background()) // second Start is a no-op

	d.Stop()
	if d.Running() {
		t.Error("Driver should report stopped after Stop")
	}
	d.Stop() // idempotent

	before := len(pub.snapshot())
	time.Sleep(30 * time.Millisecond)
	if after := len(pub.snapshot()); after != before {
		t.Errorf("Publishes continued after Stop: %d -> %d", before, after)
	}
}

func TestSimulatorSource_ProducesCanonicalPayloads(t *testing.T) {
	ids := []string{"p1", "p2"}
	source := NewSimulatorSource(ids)
	known := map[string]bool{"p1": true, "p2": true}

	seen := 0
	for i := 0; i < 50 && seen == 0; i++ {
		payloads, err := source.Pull(context.Background())
		if err != nil {
			t.Fatalf("Pull failed: %v", err)
		}
		for _, payload := range payloads {
			updates, err := (SimulatorNormalizer{}).Normalize(payload)
			if err != nil {
				t.Fatalf("Simulator payload not canonical: %v", err)
			}
			for _, u := range updates {
				if !known[u.InstrumentID] {
					t.Errorf("Update for unconfigured instrument %q", u.InstrumentID)
				}
				if u.SourceSeq == "" {
					t.Error("Simulator update missing sequence id")
				}
				seen++
			}
		}
	}
	if seen == 0 {
		t.Error("Simulator produced no updates in 50 pulls")
	}
}
