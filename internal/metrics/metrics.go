// Package metrics exposes lifecycle outcomes as Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intrusion-sim/internal/lifecycle"
)

// Run outcome labels.
const (
	OutcomeBlocked   = "blocked"
	OutcomeContained = "contained"
	OutcomeImpact    = "impact"
)

// Outcome classifies a finished run: blocked before persistence, contained
// after persistence but short of impact, or impact.
func Outcome(t *lifecycle.Trace) string {
	switch {
	case t.Impacted():
		return OutcomeImpact
	case t.Compromised():
		return OutcomeContained
	default:
		return OutcomeBlocked
	}
}

// Recorder holds the simulator's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	stageAttempts  *prometheus.CounterVec
	stageSuccesses *prometheus.CounterVec
	stageGated     *prometheus.CounterVec
	stageChance    *prometheus.HistogramVec
	runs           *prometheus.CounterVec
	detections     prometheus.Counter
	evictions      prometheus.Counter
	batchDuration  prometheus.Histogram
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	return NewRecorderWith(reg, reg)
}

// NewRecorderWith registers the collectors on reg and serves them from g.
func NewRecorderWith(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: g,
		stageAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "isim_stage_attempts_total",
			Help: "Total stage attempts by stage.",
		}, []string{"stage"}),
		stageSuccesses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "isim_stage_successes_total",
			Help: "Total successful stage attempts by stage.",
		}, []string{"stage"}),
		stageGated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "isim_stage_gated_total",
			Help: "Total stage attempts forced to zero chance by an unmet prerequisite.",
		}, []string{"stage"}),
		stageChance: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "isim_stage_chance",
			Help:    "Clamped success chance per stage attempt.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"stage"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "isim_runs_total",
			Help: "Total lifecycle runs by outcome.",
		}, []string{"outcome"}),
		detections: f.NewCounter(prometheus.CounterOpts{
			Name: "isim_detections_total",
			Help: "Total established intrusions the defender detected.",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "isim_evictions_total",
			Help: "Total detected attackers the defender evicted.",
		}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "isim_batch_duration_seconds",
			Help:    "Wall time of a batch of runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveTrace records every stage attempt of t and its outcome.
func (r *Recorder) ObserveTrace(t *lifecycle.Trace) {
	if r == nil {
		return
	}
	for _, rec := range t.Records {
		name := string(rec.Stage)
		r.stageAttempts.WithLabelValues(name).Inc()
		r.stageChance.WithLabelValues(name).Observe(rec.Chance)
		if rec.Success {
			r.stageSuccesses.WithLabelValues(name).Inc()
		}
		if rec.Gated {
			r.stageGated.WithLabelValues(name).Inc()
		}
	}
	r.runs.WithLabelValues(Outcome(t)).Inc()
	if t.Detected {
		r.detections.Inc()
	}
	if t.Evicted() {
		r.evictions.Inc()
	}
}

// ObserveBatch records how long a batch took.
func (r *Recorder) ObserveBatch(d time.Duration) {
	if r == nil {
		return
	}
	r.batchDuration.Observe(d.Seconds())
}

// Handler serves the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
