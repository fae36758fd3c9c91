package shmlog

import "sync/atomic"

// Metrics tracks the transport-level statistics exposed by a consumer or
// producer handle: total_writes, total_reads, dropped_messages,
// current_usage, capacity. current_usage is derived,
// not stored, since it is write_index-read_index at read time; callers
// wanting it read the CurrentUsage field of a freshly taken snapshot.
type Metrics struct {
	TotalWrites      atomic.Uint64
	TotalReads       atomic.Uint64
	DroppedMessages  atomic.Uint64
	FallbackWrites   atomic.Uint64
	StaleReclaimed   atomic.Uint64
	writeIndexReader func() uint64
	readIndexReader  func() uint64
	capacity         uint32
}

// NewMetrics creates a new metrics instance. writeIndexReader and
// readIndexReader let Metrics compute current_usage without owning the
// ring buffer directly; either may be nil, in which case CurrentUsage
// reports 0.
func NewMetrics(capacity uint32, writeIndexReader, readIndexReader func() uint64) *Metrics {
	return &Metrics{
		writeIndexReader: writeIndexReader,
		readIndexReader:  readIndexReader,
		capacity:         capacity,
	}
}

// RecordWrite records a successful or failed reserve+write+commit.
func (m *Metrics) RecordWrite(success bool) {
	if success {
		m.TotalWrites.Add(1)
	} else {
		m.DroppedMessages.Add(1)
	}
}

// RecordFallback records a record routed to the fallback writer, either
// because the ring was full under the Drop policy with fallback enabled
// or because the GlobalSwitch was disabled.
func (m *Metrics) RecordFallback() {
	m.FallbackWrites.Add(1)
}

// RecordRead records a record drained and dispatched by the consumer.
func (m *Metrics) RecordRead() {
	m.TotalReads.Add(1)
}

// RecordStaleReclaimed records a slot recovered by skip_stale.
func (m *Metrics) RecordStaleReclaimed(n uint64) {
	m.StaleReclaimed.Add(n)
}

// BufferStats is a point-in-time snapshot of Metrics suitable for
// logging or exposing to a caller; unlike Metrics it carries no atomics
// and is safe to copy.
type BufferStats struct {
	TotalWrites     uint64
	TotalReads      uint64
	DroppedMessages uint64
	FallbackWrites  uint64
	StaleReclaimed  uint64
	CurrentUsage    uint32
	Capacity        uint32
}

// Snapshot takes a point-in-time reading of all counters.
func (m *Metrics) Snapshot() BufferStats {
	stats := BufferStats{
		TotalWrites:     m.TotalWrites.Load(),
		TotalReads:      m.TotalReads.Load(),
		DroppedMessages: m.DroppedMessages.Load(),
		FallbackWrites:  m.FallbackWrites.Load(),
		StaleReclaimed:  m.StaleReclaimed.Load(),
		Capacity:        m.capacity,
	}
	if m.writeIndexReader != nil && m.readIndexReader != nil {
		w, r := m.writeIndexReader(), m.readIndexReader()
		if w >= r {
			stats.CurrentUsage = uint32(w - r)
		}
	}
	return stats
}

// Reset zeroes all counters; used by tests.
func (m *Metrics) Reset() {
	m.TotalWrites.Store(0)
	m.TotalReads.Store(0)
	m.DroppedMessages.Store(0)
	m.FallbackWrites.Store(0)
	m.StaleReclaimed.Store(0)
}

// Observer allows pluggable metrics collection, mirroring
// internal/interfaces.Observer but expressed in terms of the public
// Metrics type so application code can supply its own.
type Observer interface {
	ObserveWrite(success bool)
	ObserveRead(success bool)
	ObserveDrop()
	ObserveQueueDepth(depth uint32)
	ObserveStaleReclaimed(count int)
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveWrite(bool)        {}
func (NoOpObserver) ObserveRead(bool)         {}
func (NoOpObserver) ObserveDrop()             {}
func (NoOpObserver) ObserveQueueDepth(uint32) {}
func (NoOpObserver) ObserveStaleReclaimed(int) {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveWrite(success bool) { o.metrics.RecordWrite(success) }
func (o *MetricsObserver) ObserveRead(success bool) {
	if success {
		o.metrics.RecordRead()
	}
}
func (o *MetricsObserver) ObserveDrop()             { o.metrics.DroppedMessages.Add(1) }
func (o *MetricsObserver) ObserveQueueDepth(uint32) {}
func (o *MetricsObserver) ObserveStaleReclaimed(count int) {
	o.metrics.RecordStaleReclaimed(uint64(count))
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
