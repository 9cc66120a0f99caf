package solve

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// Metrics collects solve counters and per-phase latency distributions.
// A nil or disabled collector records nothing, so callers never guard.
type Metrics struct {
	mu sync.RWMutex

	enabled bool

	solves int64
	hits   int64
	misses int64
	errors int64

	// Latency samples in microseconds.
	prepareUS []float64
	submitUS  []float64
	groundUS  []float64
	solveUS   []float64
	totalUS   []float64
}

// NewMetrics creates a collector. A disabled collector keeps all its
// methods as cheap no-ops.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{
		enabled:   enabled,
		prepareUS: make([]float64, 0, 1024),
		submitUS:  make([]float64, 0, 1024),
		groundUS:  make([]float64, 0, 1024),
		solveUS:   make([]float64, 0, 1024),
		totalUS:   make([]float64, 0, 1024),
	}
}

// RecordHit records a cache hit. Only preparation ran on this call, so
// engine phases are not sampled again.
func (m *Metrics) RecordHit(t ports.Timing) {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.solves++
	m.hits++
	m.prepareUS = append(m.prepareUS, us(t.Prepare))
}

// RecordMiss records a computed solve with its full phase breakdown.
func (m *Metrics) RecordMiss(t ports.Timing) {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.solves++
	m.misses++
	m.prepareUS = append(m.prepareUS, us(t.Prepare))
	m.submitUS = append(m.submitUS, us(t.Submit))
	m.groundUS = append(m.groundUS, us(t.Ground))
	m.solveUS = append(m.solveUS, us(t.Solve))
	m.totalUS = append(m.totalUS, us(t.Total()))
}

// RecordError counts a failed solve.
func (m *Metrics) RecordError() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.solves++
	m.errors++
}

// LatencySummary describes one phase's distribution in microseconds.
type LatencySummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_us"`
	P50   float64 `json:"p50_us"`
	P95   float64 `json:"p95_us"`
	P99   float64 `json:"p99_us"`
}

// Summary is a point-in-time view of the collector.
type Summary struct {
	Solves  int64          `json:"solves"`
	Hits    int64          `json:"hits"`
	Misses  int64          `json:"misses"`
	Errors  int64          `json:"errors"`
	Prepare LatencySummary `json:"prepare"`
	Submit  LatencySummary `json:"submit"`
	Ground  LatencySummary `json:"ground"`
	Solve   LatencySummary `json:"solve"`
	Total   LatencySummary `json:"total"`
}

// GetSummary snapshots counters and computes percentile summaries.
func (m *Metrics) GetSummary() Summary {
	if m == nil {
		return Summary{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Summary{
		Solves:  m.solves,
		Hits:    m.hits,
		Misses:  m.misses,
		Errors:  m.errors,
		Prepare: summarize(m.prepareUS),
		Submit:  summarize(m.submitUS),
		Ground:  summarize(m.groundUS),
		Solve:   summarize(m.solveUS),
		Total:   summarize(m.totalUS),
	}
}

// Reset clears all collected samples and counters.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.solves = 0
	m.hits = 0
	m.misses = 0
	m.errors = 0
	m.prepareUS = m.prepareUS[:0]
	m.submitUS = m.submitUS[:0]
	m.groundUS = m.groundUS[:0]
	m.solveUS = m.solveUS[:0]
	m.totalUS = m.totalUS[:0]
}

func summarize(samples []float64) LatencySummary {
	if len(samples) == 0 {
		return LatencySummary{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	return LatencySummary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}

func us(d time.Duration) float64 {
	return float64(d.Microseconds())
}
