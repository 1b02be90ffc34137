// Package metrics defines the emission contract the rest of ontograph
// reports into: counters, histograms, and gauges with optional labels.
//
// Sinks never block and never fail the caller. The concrete sink is chosen
// at startup and injected explicitly; there is no process-wide registry.
package metrics

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Sink receives metric events. Implementations must be safe for concurrent
// use and must not block or return errors to the caller.
type Sink interface {
	// Inc increments a counter by 1.
	Inc(name string, labels map[string]string)
	// Observe records one observation of a histogram metric.
	Observe(name string, value float64, labels map[string]string)
	// Gauge sets a gauge to the given value.
	Gauge(name string, value float64, labels map[string]string)
}

// Nop is a Sink that discards everything. Useful as a default.
type Nop struct{}

func (Nop) Inc(string, map[string]string)              {}
func (Nop) Observe(string, float64, map[string]string) {}
func (Nop) Gauge(string, float64, map[string]string)   {}

// LogSink emits every metric event as a structured debug log line. It is the
// default production sink: downstream collectors scrape the log stream.
type LogSink struct {
	log *zap.SugaredLogger
}

// NewLogSink creates a sink that writes metric events to the given logger.
func NewLogSink(log *zap.SugaredLogger) *LogSink {
	return &LogSink{log: log.Named("metrics")}
}

func (s *LogSink) Inc(name string, labels map[string]string) {
	s.log.Debugw("counter", "name", name, "labels", labels)
}

func (s *LogSink) Observe(name string, value float64, labels map[string]string) {
	s.log.Debugw("histogram", "name", name, "value", value, "labels", labels)
}

func (s *LogSink) Gauge(name string, value float64, labels map[string]string) {
	s.log.Debugw("gauge", "name", name, "value", value, "labels", labels)
}

// Memory is an in-memory Sink for tests and introspection. It aggregates
// counters, keeps every histogram observation, and stores last gauge values.
type Memory struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		counters:   make(map[string]int64),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
	}
}

// seriesKey folds name and labels into a stable map key. Labels are sorted
// so emission order does not split series.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('{')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte('}')
	}
	return b.String()
}

func (m *Memory) Inc(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[seriesKey(name, labels)]++
}

func (m *Memory) Observe(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := seriesKey(name, labels)
	m.histograms[key] = append(m.histograms[key], value)
}

func (m *Memory) Gauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[seriesKey(name, labels)] = value
}

// Counter returns the current value of a counter series.
func (m *Memory) Counter(name string, labels map[string]string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[seriesKey(name, labels)]
}

// Observations returns a copy of the recorded observations for a series.
func (m *Memory) Observations(name string, labels map[string]string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	obs := m.histograms[seriesKey(name, labels)]
	out := make([]float64, len(obs))
	copy(out, obs)
	return out
}

// GaugeValue returns the last value set for a gauge series.
func (m *Memory) GaugeValue(name string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[seriesKey(name, labels)]
}
