// Command sessionkit-loadtest measures the Redis paths every request
// crosses: the revocation denylist and the fixed-window rate limiter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionkit/internal/rate"
	"github.com/MrEthical07/sessionkit/revocation"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 50000, "number of credentials to revoke before the lookup phase")
		callers     = flag.Int("callers", 1000, "distinct client IPs in the rate limit phase")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", revocation.DefaultPrefix, "revocation key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *callers <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, callers, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	store := revocation.New(client, *prefix)
	limiter := rate.New(client)

	fmt.Printf("revoking %d credentials...\n", *tokens)
	seed := runPhase(*tokens, *concurrency, func(_ *rand.Rand, i int) error {
		return store.Revoke(ctx, tokenFor(i), time.Hour)
	})

	// Half of the lookups hit a revoked credential.
	lookup := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := store.IsRevoked(ctx, tokenFor(r.Intn(2 * *tokens)))
		return err
	})

	policy := rate.Policy{MaxPoints: 5, Window: 5 * time.Minute}
	var limited atomic.Int64
	limit := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		n := r.Intn(*callers)
		caller := fmt.Sprintf("198.51.%d.%d", n/256, n%256)
		_, err := limiter.CheckAndIncrement(ctx, "signin", caller, policy)
		if errors.Is(err, rate.ErrRateLimited) {
			limited.Add(1)
			return nil
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("revoke", seed)
	printStats("is-revoked", lookup)
	printStats("rate-limit", limit)
	fmt.Printf("rate-limit: limited=%d\n", limited.Load())
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

// runPhase calls op ops times across concurrency workers and records the
// latency of each call.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(cursor.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// tokenFor is a stand-in credential; the store only hashes it.
func tokenFor(i int) string {
	return fmt.Sprintf("loadtest.credential.%d", i)
}
