package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCounters(t *testing.T) {
	m := NewMemory()
	labels := map[string]string{"outcome": "YES"}

	m.Inc(QueryOutcomes, labels)
	m.Inc(QueryOutcomes, labels)
	m.Inc(QueryOutcomes, map[string]string{"outcome": "NO"})

	assert.Equal(t, int64(2), m.Counter(QueryOutcomes, labels))
	assert.Equal(t, int64(1), m.Counter(QueryOutcomes, map[string]string{"outcome": "NO"}))
	assert.Equal(t, int64(0), m.Counter(QueryOutcomes, nil))
}

func TestSeriesKeyLabelOrderStable(t *testing.T) {
	a := seriesKey("x", map[string]string{"a": "1", "b": "2"})
	b := seriesKey("x", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
}

func TestMemoryObservationsAndGauges(t *testing.T) {
	m := NewMemory()
	m.Observe(QueryLatencyMS, 1.5, nil)
	m.Observe(QueryLatencyMS, 2.5, nil)
	m.Gauge(CacheSize, 7, nil)

	assert.Equal(t, []float64{1.5, 2.5}, m.Observations(QueryLatencyMS, nil))
	assert.Equal(t, 7.0, m.GaugeValue(CacheSize, nil))
}

func TestMemoryConcurrentUse(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(CacheHits, nil)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), m.Counter(CacheHits, nil))
}
