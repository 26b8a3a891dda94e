package fhircrawler

import (
	"sync/atomic"
)

// Metrics tracks crawl counters using lock-free atomic operations. All
// methods are safe for concurrent use, so one Metrics instance can be
// shared across parallel crawls. A nil *Metrics is a no-op.
type Metrics struct {
	objectsEntered    atomic.Uint64
	resourcesEntered  atomic.Uint64
	propertiesVisited atomic.Uint64
	valuesResolved    atomic.Uint64
	maxDepth          atomic.Uint64
}

// NewMetrics creates an empty Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordObject(depth int) {
	if m == nil {
		return
	}
	m.objectsEntered.Add(1)

	d := uint64(depth)
	for {
		cur := m.maxDepth.Load()
		if d <= cur || m.maxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

func (m *Metrics) recordResource() {
	if m == nil {
		return
	}
	m.resourcesEntered.Add(1)
}

func (m *Metrics) recordProperty(valueCount int) {
	if m == nil {
		return
	}
	m.propertiesVisited.Add(1)
	m.valuesResolved.Add(uint64(valueCount))
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ObjectsEntered    uint64 `json:"objectsEntered"`
	ResourcesEntered  uint64 `json:"resourcesEntered"`
	PropertiesVisited uint64 `json:"propertiesVisited"`
	ValuesResolved    uint64 `json:"valuesResolved"`
	MaxDepth          uint64 `json:"maxDepth"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		ObjectsEntered:    m.objectsEntered.Load(),
		ResourcesEntered:  m.resourcesEntered.Load(),
		PropertiesVisited: m.propertiesVisited.Load(),
		ValuesResolved:    m.valuesResolved.Load(),
		MaxDepth:          m.maxDepth.Load(),
	}
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.objectsEntered.Store(0)
	m.resourcesEntered.Store(0)
	m.propertiesVisited.Store(0)
	m.valuesResolved.Store(0)
	m.maxDepth.Store(0)
}
