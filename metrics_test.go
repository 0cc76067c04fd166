package sessionkit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricSignInSuccess)
	m.Observe(time.Millisecond)

	assert.Zero(t, m.Value(MetricSignInSuccess))
	snap := m.Snapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Histograms)

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricSignInSuccess)
	nilMetrics.Observe(time.Millisecond)
	assert.Empty(t, nilMetrics.Snapshot().Counters)
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				m.Inc(MetricRateLimitHit)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(16000), m.Value(MetricRateLimitHit))
	assert.Equal(t, uint64(16000), m.Snapshot().Counters[MetricRateLimitHit])
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(time.Millisecond)
	m.Observe(5 * time.Millisecond)
	m.Observe(30 * time.Millisecond)
	m.Observe(2 * time.Second)

	snap := m.Snapshot()
	assert.Equal(t, []uint64{2, 0, 0, 1, 0, 0, 0, 1}, snap.Histograms[MetricAuthorizeLatency])
	assert.InDelta(t, 2.036, snap.HistogramSums[MetricAuthorizeLatency], 1e-9)
	_, hasCounter := snap.Counters[MetricAuthorizeLatency]
	assert.False(t, hasCounter)
}

func TestMetricsLatencyOffByDefault(t *testing.T) {
	m := NewMetrics(DefaultConfig().Metrics)
	m.Observe(time.Millisecond)
	assert.Empty(t, m.Snapshot().Histograms)
	assert.False(t, m.LatencyEnabled())
	assert.True(t, m.Enabled())
}
