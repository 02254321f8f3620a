// Package metrics records per-run counters in a private Prometheus registry
// and writes them in text exposition format for node_exporter's textfile
// collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "genomefetch"

// Recorder collects metrics for one run.
type Recorder struct {
	registry *prometheus.Registry

	matches   prometheus.Gauge
	linked    prometheus.Gauge
	outcomes  *prometheus.CounterVec
	bytes     prometheus.Counter
	duration  prometheus.Gauge
	completed prometheus.Gauge
}

// New registers the run metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		matches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_matches",
			Help:      "BioProject records matching the last search.",
		}),
		linked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "linked_assemblies",
			Help:      "Assembly ids linked from the matched projects.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "genomes_total",
			Help:      "Genomes processed, by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Compressed bytes downloaded from the archive.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.matches, r.linked, r.outcomes, r.bytes, r.duration, r.completed)
	return r
}

// SetMatches records the esearch match count.
func (r *Recorder) SetMatches(n int) {
	r.matches.Set(float64(n))
}

// SetLinked records the number of linked assembly ids.
func (r *Recorder) SetLinked(n int) {
	r.linked.Set(float64(n))
}

// ObserveOutcome counts one genome outcome.
func (r *Recorder) ObserveOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

// AddBytes adds downloaded bytes.
func (r *Recorder) AddBytes(n int64) {
	if n > 0 {
		r.bytes.Add(float64(n))
	}
}

// Finish records the run duration and completion time.
func (r *Recorder) Finish(started, finished time.Time) {
	r.duration.Set(finished.Sub(started).Seconds())
	r.completed.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
