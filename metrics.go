package sessionkit

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricSignUpSuccess MetricID = iota
	MetricSignUpConflict
	MetricSignInSuccess
	MetricSignInFailure
	MetricSignOut
	MetricAuthorizeSuccess
	MetricAuthorizeRejected
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricVerifySuccess
	MetricVerifyFailure
	MetricVerificationSent
	MetricRecoverySuccess
	MetricRecoveryFailure
	MetricNotifyFailure
	MetricRateLimitHit
	MetricBackendFailure
	MetricPasswordRehash
	// MetricAuthorizeLatency is the only histogram.
	MetricAuthorizeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBucketBounds are the upper bounds of the latency buckets; the
// last bucket is unbounded.
var HistogramBucketBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sumNS   atomic.Uint64
}

// Metrics is a fixed set of lock-free counters. A nil *Metrics is a valid
// no-op sink.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter. Histograms
// holds per-bucket (non-cumulative) counts; HistogramSums holds the total
// observed seconds.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]float64
}

// NewMetrics returns counters honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Observe records one authorize latency sample.
func (m *Metrics) Observe(d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	m.latency.buckets[bucketIndex(d)].Add(1)
	if d > 0 {
		m.latency.sumNS.Add(uint64(d))
	}
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]float64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthorizeLatency {
			continue
		}
		s.Counters[id] = m.counters[id].value.Load()
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.latency.buckets[i].Load()
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
		s.HistogramSums[MetricAuthorizeLatency] = time.Duration(m.latency.sumNS.Load()).Seconds()
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
