package arbitrage

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// defaultReservoirSize bounds the number of retained samples; beyond
// this the tracker overwrites the oldest sample, trading perfect
// percentile accuracy for a bounded memory footprint on a hot path
// (a reservoir sample, as an HDR-style histogram would also allow).
const defaultReservoirSize = 4096

// LatencySnapshot is the percentile summary returned by Snapshot.
type LatencySnapshot struct {
	Count int
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// LatencyStats is a sampled latency histogram for hot-path measurement
// Safe for concurrent use; Record is expected to be called far more
// often than Snapshot.
type LatencyStats struct {
	mu        sync.Mutex
	samples   []time.Duration
	cursor    int
	count     int
	max       time.Duration
	histogram metric.Float64Histogram // optional OTel export, may be nil
}

// NewLatencyStats allocates a tracker with the default reservoir size.
// histogram may be nil when OTel export is not wired for this instance.
func NewLatencyStats(histogram metric.Float64Histogram) *LatencyStats {
	return &LatencyStats{
		samples:   make([]time.Duration, defaultReservoirSize),
		histogram: histogram,
	}
}

// Record adds one sample. d keeps the nanosecond granularity callers
// typically measure with.
func (s *LatencyStats) Record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[s.cursor] = d
	s.cursor = (s.cursor + 1) % len(s.samples)
	s.count++
	if d > s.max {
		s.max = d
	}

	if s.histogram != nil {
		s.histogram.Record(context.Background(), d.Seconds())
	}
}

// Snapshot computes P50/P95/P99 over the retained samples. Max is the
// largest sample recorded since the last Reset, including samples the
// reservoir has since overwritten.
func (s *LatencyStats) Snapshot() LatencySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.count
	if n > len(s.samples) {
		n = len(s.samples)
	}
	if n == 0 {
		return LatencySnapshot{}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, s.samples[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySnapshot{
		Count: s.count,
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		P99:   percentile(sorted, 0.99),
		Max:   s.max,
	}
}

// Reset clears all retained samples and the running count.
func (s *LatencyStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = 0
	s.count = 0
	s.max = 0
	for i := range s.samples {
		s.samples[i] = 0
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MeasureLatency runs f and returns its result alongside the elapsed
// duration.
func MeasureLatency[T any](f func() T) (T, time.Duration) {
	start := time.Now()
	result := f()
	return result, time.Since(start)
}

// MeasureAndRecord runs f, records its elapsed duration into stats,
// and returns f's result — the fused form of MeasureLatency.
func MeasureAndRecord[T any](stats *LatencyStats, f func() T) T {
	result, elapsed := MeasureLatency(f)
	stats.Record(elapsed)
	return result
}
