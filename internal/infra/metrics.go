package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	statsApplied   atomic.Uint64
	broadcasts     atomic.Uint64
	tradesExecuted atomic.Uint64
	feedErrors     atomic.Uint64

	// Gauges
	activeSubscribers atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordStatApplied records one stat update applied through the pricing engine.
func (m *Metrics) RecordStatApplied() {
	m.statsApplied.Add(1)
}

// RecordBroadcast records one price change fanned out to subscribers.
func (m *Metrics) RecordBroadcast() {
	m.broadcasts.Add(1)
}

// RecordTrade records one executed trade.
func (m *Metrics) RecordTrade() {
	m.tradesExecuted.Add(1)
}

// RecordFeedError records a failed feed pull or rejected payload.
func (m *Metrics) RecordFeedError() {
	m.feedErrors.Add(1)
}

// IncrementSubscribers increments active subscribers by 1.
func (m *Metrics) IncrementSubscribers() {
	m.activeSubscribers.Add(1)
}

// DecrementSubscribers decrements active subscribers by 1.
func (m *Metrics) DecrementSubscribers() {
	m.activeSubscribers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	StatsApplied      uint64
	Broadcasts        uint64
	TradesExecuted    uint64
	FeedErrors        uint64
	ActiveSubscribers int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		StatsApplied:      m.statsApplied.Load(),
		Broadcasts:        m.broadcasts.Load(),
		TradesExecuted:    m.tradesExecuted.Load(),
		FeedErrors:        m.feedErrors.Load(),
		ActiveSubscribers: m.activeSubscribers.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.statsApplied.Store(0)
	m.broadcasts.Store(0)
	m.tradesExecuted.Store(0)
	m.feedErrors.Store(0)
	m.activeSubscribers.Store(0)
}
