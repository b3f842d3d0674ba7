package observability

import (
	"sync/atomic"
)

// MetricsCollector provides hooks for metrics collection
// Can be implemented to integrate with Prometheus, StatsD, etc.
type MetricsCollector interface {
	IncReceived(n int)
	IncArchived(n int)
	IncIndexed(n int)
	IncProcessorFailed()
	IncDeleted(n int)
	IncDeleteFailed(n int)
	IncReduced(n int)
}

// InMemoryMetrics is a simple in-memory implementation for testing/demo
type InMemoryMetrics struct {
	Received        atomic.Int64
	Archived        atomic.Int64
	Indexed         atomic.Int64
	ProcessorFailed atomic.Int64
	Deleted         atomic.Int64
	DeleteFailed    atomic.Int64
	Reduced         atomic.Int64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) IncReceived(n int) {
	m.Received.Add(int64(n))
}

func (m *InMemoryMetrics) IncArchived(n int) {
	m.Archived.Add(int64(n))
}

func (m *InMemoryMetrics) IncIndexed(n int) {
	m.Indexed.Add(int64(n))
}

func (m *InMemoryMetrics) IncProcessorFailed() {
	m.ProcessorFailed.Add(1)
}

func (m *InMemoryMetrics) IncDeleted(n int) {
	m.Deleted.Add(int64(n))
}

func (m *InMemoryMetrics) IncDeleteFailed(n int) {
	m.DeleteFailed.Add(int64(n))
}

func (m *InMemoryMetrics) IncReduced(n int) {
	m.Reduced.Add(int64(n))
}

func (m *InMemoryMetrics) GetReceived() int64 {
	return m.Received.Load()
}

func (m *InMemoryMetrics) GetArchived() int64 {
	return m.Archived.Load()
}

func (m *InMemoryMetrics) GetIndexed() int64 {
	return m.Indexed.Load()
}

func (m *InMemoryMetrics) GetProcessorFailed() int64 {
	return m.ProcessorFailed.Load()
}

func (m *InMemoryMetrics) GetDeleted() int64 {
	return m.Deleted.Load()
}

func (m *InMemoryMetrics) GetDeleteFailed() int64 {
	return m.DeleteFailed.Load()
}

func (m *InMemoryMetrics) GetReduced() int64 {
	return m.Reduced.Load()
}
