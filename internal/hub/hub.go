package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/infra"

	"github.com/shopspring/decimal"
)

// SnapshotSource provides the full current instrument state for
// initial delivery to new subscribers.
type SnapshotSource interface {
	Snapshot() []domain.Instrument
}

// Subscriber is one live connection handle. The hub owns the set of
// subscribers but never their transport; the transport layer drains Out.
type Subscriber struct {
	id        uint64
	out       chan []byte
	since     time.Time
	closeOnce sync.Once
}

// ID returns the connection id.
func (s *Subscriber) ID() uint64 { return s.id }

// Since returns the subscription timestamp.
func (s *Subscriber) Since() time.Time { return s.since }

// Out is the subscriber's bounded delivery queue. It is closed when the
// subscriber is dropped or unsubscribed.
func (s *Subscriber) Out() <-chan []byte { return s.out }

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.out) })
}

// Hub fans price changes out to every connected subscriber with a
// bounded per-subscriber queue. Enqueueing happens under one mutex, so
// for a single instrument all subscribers observe its price changes in
// the order they were produced.
type Hub struct {
	snapshots SnapshotSource
	queueSize int

	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	nextID uint64
}

// New creates a hub delivering snapshots from the given source.
func New(snapshots SnapshotSource, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		snapshots: snapshots,
		queueSize: queueSize,
		subs:      make(map[*Subscriber]struct{}),
	}
}

type snapshotInstrument struct {
	ID      string          `json:"id"`
	Price   decimal.Decimal `json:"price"`
	Goals   int             `json:"goals"`
	Assists int             `json:"assists"`
	Minutes int             `json:"minutes"`
	Injured bool            `json:"injured"`
}

type snapshotMessage struct {
	Type        string               `json:"type"`
	Instruments []snapshotInstrument `json:"instruments"`
}

type updateMessage struct {
	Type         string          `json:"type"`
	InstrumentID string          `json:"instrument_id"`
	NewPrice     decimal.Decimal `json:"new_price"`
	Goals        int             `json:"goals"`
	Assists      int             `json:"assists"`
	Minutes      int             `json:"minutes"`
}

// Subscribe registers a new subscriber. The full snapshot is enqueued
// before registration completes, so the subscriber's view is never
// missing the baseline and no delta can slip in ahead of it.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscriber{
		id:    h.nextID,
		out:   make(chan []byte, h.queueSize),
		since: time.Now(),
	}

	msg := snapshotMessage{Type: "snapshot"}
	for _, inst := range h.snapshots.Snapshot() {
		msg.Instruments = append(msg.Instruments, snapshotInstrument{
			ID:      inst.ID,
			Price:   inst.Price,
			Goals:   inst.Goals,
			Assists: inst.Assists,
			Minutes: inst.Minutes,
			Injured: inst.Injured,
		})
	}
	if payload, err := json.Marshal(msg); err == nil {
		sub.out <- payload
	}

	h.subs[sub] = struct{}{}
	infra.GlobalMetrics.IncrementSubscribers()
	return sub
}

// Unsubscribe removes the subscriber and closes its queue. Idempotent;
// it only cancels this subscriber's delivery, never anyone else's.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()

	if present {
		sub.close()
		infra.GlobalMetrics.DecrementSubscribers()
	}
}

// Publish fans a price change out to every subscriber, non-blocking per
// subscriber. A subscriber whose queue is full is dropped rather than
// stalling the publisher or skipping one of its updates; the policy
// choice keeps each surviving stream gap-free and in order.
func (h *Hub) Publish(change domain.PriceChange) {
	payload, err := json.Marshal(updateMessage{
		Type:         "update",
		InstrumentID: change.InstrumentID,
		NewPrice:     change.NewPrice,
		Goals:        change.Goals,
		Assists:      change.Assists,
		Minutes:      change.Minutes,
	})
	if err != nil {
		slog.Error("Failed to marshal price update", slog.Any("error", err))
		return
	}

	var dropped []*Subscriber
	h.mu.Lock()
	for sub := range h.subs {
		select {
		case sub.out <- payload:
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range dropped {
		slog.Warn("Dropping slow subscriber", slog.Uint64("subscriber", sub.id))
		sub.close()
		infra.GlobalMetrics.DecrementSubscribers()
	}
	infra.GlobalMetrics.RecordBroadcast()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
