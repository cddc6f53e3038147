package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/infra"
	"footy_go/internal/pricing"
	"footy_go/internal/registry"
)

// Publisher receives every price change produced by the feed pipeline.
type Publisher interface {
	Publish(change domain.PriceChange)
}

// HistorySink persists price changes for later inspection. Optional.
type HistorySink interface {
	SavePriceChange(change domain.PriceChange) error
}

// Driver runs the pull → normalize → apply → publish pipeline on a fixed
// cadence. One payload is processed fully before the next pull, so a
// burst of stat updates never queues unboundedly.
type Driver struct {
	source     Source
	normalizer Normalizer
	registry   *registry.Registry
	engine     *pricing.Engine
	publisher  Publisher
	history    HistorySink
	interval   time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDriver wires a feed pipeline. history may be nil.
func NewDriver(source Source, normalizer Normalizer, reg *registry.Registry, engine *pricing.Engine, publisher Publisher, history HistorySink, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	return &Driver{
		source:     source,
		normalizer: normalizer,
		registry:   reg,
		engine:     engine,
		publisher:  publisher,
		history:    history,
		interval:   interval,
	}
}

// Start transitions the driver to running. Calling Start on a running
// driver is a no-op.
func (d *Driver) Start(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		d.cycle(ctx)
		for {
			select {
			case <-ctx.Done():
				slog.Info("Feed driver stopping")
				return
			case <-ticker.C:
				d.cycle(ctx)
			}
		}
	}()
	slog.Info("Feed driver started", slog.Duration("interval", d.interval))
}

// Stop requests a cooperative shutdown and waits for the in-flight cycle
// to drain. A half-processed payload is never abandoned mid-apply.
func (d *Driver) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.running.Store(false)
}

// Running reports whether the driver is between Start and Stop.
func (d *Driver) Running() bool {
	return d.running.Load()
}

// cycle runs one full pull→apply pass. Feed failures are logged and
// retried next tick; they never reach trade or subscriber paths.
func (d *Driver) cycle(ctx context.Context) {
	payloads, err := d.source.Pull(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Feed pull failed", slog.Any("error", err))
			infra.GlobalMetrics.RecordFeedError()
		}
		return
	}

	for _, payload := range payloads {
		events, err := d.normalizer.Normalize(payload)
		if err != nil {
			slog.Warn("Feed payload rejected", slog.Any("error", err))
			infra.GlobalMetrics.RecordFeedError()
			continue
		}
		for _, ev := range events {
			d.applyEvent(ev)
		}
	}
}

func (d *Driver) applyEvent(ev domain.StatUpdate) {
	change, changed, err := d.registry.Apply(ev.InstrumentID, func(inst *domain.Instrument) (domain.PriceChange, bool) {
		return d.engine.ApplyStat(inst, ev)
	})
	if err != nil {
		slog.Warn("Stat update for unknown instrument", slog.String("instrument", ev.InstrumentID))
		return
	}
	infra.GlobalMetrics.RecordStatApplied()
	if !changed {
		return
	}

	// The instrument lock is already released here; slow subscriber
	// delivery can never stall the pricing pipeline.
	d.publisher.Publish(change)
	if d.history != nil {
		if err := d.history.SavePriceChange(change); err != nil {
			slog.Warn("Failed to persist price change", slog.Any("error", err))
		}
	}
}
