// Package prometheus exposes engine counters as a Prometheus collector.
//
// The collector holds no state of its own: each scrape takes a fresh
// MetricsSnapshot, so it can be registered on any registry next to the
// process and Go runtime collectors.
package prometheus
