// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector for RecapBot. It outputs text/plain in Prometheus exposition
// format without requiring the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewMetricsCollector()

// MetricsCollector aggregates counters and gauges.
type MetricsCollector struct {
	counters  sync.Map // name -> *Counter
	gauges    sync.Map // name -> *Gauge
	startTime time.Time
}

// NewMetricsCollector creates a new collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// Set sets the gauge value.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.value.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.value.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

// CounterNamed returns (registering if needed) the counter with the given name.
func (c *MetricsCollector) CounterNamed(name, help string) *Counter {
	if v, ok := c.counters.Load(name); ok {
		return v.(*Counter)
	}
	counter := &Counter{name: name, help: help}
	actual, _ := c.counters.LoadOrStore(name, counter)
	return actual.(*Counter)
}

// GaugeNamed returns (registering if needed) the gauge with the given name.
func (c *MetricsCollector) GaugeNamed(name, help string) *Gauge {
	if v, ok := c.gauges.Load(name); ok {
		return v.(*Gauge)
	}
	gauge := &Gauge{name: name, help: help}
	actual, _ := c.gauges.LoadOrStore(name, gauge)
	return actual.(*Gauge)
}

// Render produces the Prometheus exposition format output.
func (c *MetricsCollector) Render() string {
	var sb strings.Builder

	var counters []*Counter
	c.counters.Range(func(_, v any) bool {
		counters = append(counters, v.(*Counter))
		return true
	})
	sort.Slice(counters, func(i, j int) bool { return counters[i].name < counters[j].name })
	for _, ctr := range counters {
		fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
		fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
		fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
	}

	var gauges []*Gauge
	c.gauges.Range(func(_, v any) bool {
		gauges = append(gauges, v.(*Gauge))
		return true
	})
	sort.Slice(gauges, func(i, j int) bool { return gauges[i].name < gauges[j].name })
	for _, g := range gauges {
		fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(&sb, "%s %d\n", g.name, g.Value())
	}

	fmt.Fprintf(&sb, "# HELP recapbot_uptime_seconds Time since process start\n")
	fmt.Fprintf(&sb, "# TYPE recapbot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "recapbot_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	return sb.String()
}

// Handler serves the exposition format over HTTP.
func (c *MetricsCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, c.Render())
	})
}

// Named metrics used across the bot.
var (
	EventsSeen          = Collector.CounterNamed("recapbot_events_total", "Inbound chat events received")
	EventsFiltered      = Collector.CounterNamed("recapbot_events_filtered_total", "Events ignored by the dispatcher filter")
	CommandsDispatched  = Collector.CounterNamed("recapbot_commands_dispatched_total", "Commands resolved and executed")
	CommandsFailed      = Collector.CounterNamed("recapbot_commands_failed_total", "Command executions answered with the generic failure reply")
	RecordingsStarted   = Collector.CounterNamed("recapbot_recordings_started_total", "Recording sessions started")
	RecordingsCompleted = Collector.CounterNamed("recapbot_recordings_completed_total", "Recording sessions completed")
	EnrichmentLookups   = Collector.CounterNamed("recapbot_enrichment_lookups_total", "Catalog lookups issued")
)
