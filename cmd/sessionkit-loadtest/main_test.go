package main

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(9), percentile(samples, 95))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}

func TestRunPhaseCountsEveryOp(t *testing.T) {
	stats := runPhase(100, 8, func(_ *rand.Rand, i int) error {
		if i%10 == 0 {
			return errors.New("boom")
		}
		return nil
	})

	assert.Equal(t, 100, stats.ops)
	assert.Equal(t, int64(10), stats.failures)
	assert.LessOrEqual(t, stats.p50, stats.p99)
}

func TestConnectFallsBackToMiniredis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	client, cleanup, err := connect("")
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, client.Ping(t.Context()).Err())
}
