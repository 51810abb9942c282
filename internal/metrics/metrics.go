package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline groups the counters of one CLI invocation. A nil *Pipeline is a
// valid no-op sink.
type Pipeline struct {
	registry *prometheus.Registry

	MatchesProduced  *prometheus.CounterVec
	AdapterFailures  *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	SandboxSignals   *prometheus.CounterVec
	NotesComposed    prometheus.Counter
	MatchingDuration prometheus.Histogram
}

func New() *Pipeline {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Pipeline{
		registry: registry,
		MatchesProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apply_queue_matches_total",
				Help: "Total number of job matches produced, by priority",
			},
			[]string{"priority"},
		),
		AdapterFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apply_queue_adapter_failures_total",
				Help: "Total number of failed embedding or reasoning calls",
			},
			[]string{"op"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apply_queue_fallbacks_total",
				Help: "Total number of degraded match fields",
			},
			[]string{"kind"},
		),
		SandboxSignals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apply_queue_sandbox_signals_total",
				Help: "Total number of simulated outcomes, by signal",
			},
			[]string{"signal"},
		),
		NotesComposed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apply_queue_notes_composed_total",
				Help: "Total number of recruiter notes composed",
			},
		),
		MatchingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apply_queue_matching_duration_seconds",
				Help:    "Duration of a full matching request in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
}

func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Pipeline) ObserveMatch(priority string) {
	if p == nil {
		return
	}
	p.MatchesProduced.WithLabelValues(priority).Inc()
}

func (p *Pipeline) ObserveAdapterFailure(op string) {
	if p == nil {
		return
	}
	p.AdapterFailures.WithLabelValues(op).Inc()
}

func (p *Pipeline) ObserveFallback(kind string) {
	if p == nil {
		return
	}
	p.Fallbacks.WithLabelValues(kind).Inc()
}

func (p *Pipeline) ObserveSignal(signal string) {
	if p == nil {
		return
	}
	p.SandboxSignals.WithLabelValues(signal).Inc()
}

func (p *Pipeline) ObserveNotes(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.NotesComposed.Add(float64(n))
}

func (p *Pipeline) ObserveMatching(started time.Time) {
	if p == nil {
		return
	}
	p.MatchingDuration.Observe(time.Since(started).Seconds())
}

// WriteFile dumps all metrics in the text exposition format, for node
// exporter's textfile collector.
func (p *Pipeline) WriteFile(path string) error {
	if p == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
