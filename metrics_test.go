package fhircrawler

import (
	"sync"
	"testing"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.recordObject(3)
	m.recordResource()
	m.recordProperty(2)
	m.Reset()

	snap := m.Snapshot()
	if snap != (MetricsSnapshot{}) {
		t.Errorf("nil metrics snapshot = %+v; want zero", snap)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.recordResource()
	m.recordObject(1)
	m.recordObject(4)
	m.recordObject(2)
	m.recordProperty(3)
	m.recordProperty(0)

	snap := m.Snapshot()
	if snap.ResourcesEntered != 1 {
		t.Errorf("ResourcesEntered = %d; want 1", snap.ResourcesEntered)
	}
	if snap.ObjectsEntered != 3 {
		t.Errorf("ObjectsEntered = %d; want 3", snap.ObjectsEntered)
	}
	if snap.PropertiesVisited != 2 {
		t.Errorf("PropertiesVisited = %d; want 2", snap.PropertiesVisited)
	}
	if snap.ValuesResolved != 3 {
		t.Errorf("ValuesResolved = %d; want 3", snap.ValuesResolved)
	}
	if snap.MaxDepth != 4 {
		t.Errorf("MaxDepth = %d; want 4", snap.MaxDepth)
	}

	m.Reset()
	if snap := m.Snapshot(); snap != (MetricsSnapshot{}) {
		t.Errorf("snapshot after Reset = %+v; want zero", snap)
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(depth int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.recordObject(depth)
				m.recordProperty(1)
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.ObjectsEntered != 800 {
		t.Errorf("ObjectsEntered = %d; want 800", snap.ObjectsEntered)
	}
	if snap.PropertiesVisited != 800 {
		t.Errorf("PropertiesVisited = %d; want 800", snap.PropertiesVisited)
	}
	if snap.MaxDepth != 7 {
		t.Errorf("MaxDepth = %d; want 7", snap.MaxDepth)
	}
}
