package otel

import (
	"context"
	"maps"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/sessionkit"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot sessionkit.MetricsSnapshot
}

func (f *fakeSource) MetricsSnapshot() sessionkit.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := sessionkit.MetricsSnapshot{
		Counters:      maps.Clone(f.snapshot.Counters),
		Histograms:    make(map[sessionkit.MetricID][]uint64, len(f.snapshot.Histograms)),
		HistogramSums: maps.Clone(f.snapshot.HistogramSums),
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func newMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newMeter()

	src := &fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricSignInSuccess: 3,
			},
			Histograms: map[sessionkit.MetricID][]uint64{
				sessionkit.MetricAuthorizeLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
			HistogramSums: map[sessionkit.MetricID]float64{
				sessionkit.MetricAuthorizeLatency: 0.25,
			},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("sessionkit-test"), src)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, exp.Close()) })

	got := collect(t, reader)

	signIn, ok := got["sessionkit_signin_success_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, signIn.DataPoints, 1)
	assert.Equal(t, int64(3), signIn.DataPoints[0].Value)

	count, ok := got["sessionkit_authorize_latency_seconds_count"].(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(8), count.DataPoints[0].Value)

	sum, ok := got["sessionkit_authorize_latency_seconds_sum"].(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.InDelta(t, 0.25, sum.DataPoints[0].Value, 1e-9)
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newMeter()

	_, err := NewExporterFromSource(provider.Meter("sessionkit-test"), nil)
	require.ErrorIs(t, err, ErrNilSource)

	_, err = NewExporter(provider.Meter("sessionkit-test"), nil)
	require.ErrorIs(t, err, ErrNilSource)

	_, err = NewExporterFromSource(nil, &fakeSource{})
	require.ErrorIs(t, err, ErrNilMeter)
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter()

	src := &fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricSignInSuccess: 1,
			},
			Histograms: map[sessionkit.MetricID][]uint64{},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("sessionkit-test"), src)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, exp.Close()) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[sessionkit.MetricSignInSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
