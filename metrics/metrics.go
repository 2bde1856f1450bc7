// Package metrics exposes Prometheus counters for routing, discussions and jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the orchestrator's metrics. A nil *Recorder records nothing.
type Recorder struct {
	eventsRouted       *prometheus.CounterVec
	discussionsStarted *prometheus.CounterVec
	contributions      *prometheus.CounterVec
	jobsTotal          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
}

// NewRecorder registers the metrics with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		eventsRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nightwatch_events_routed_total",
				Help: "Inbound chat events by the handler that took them (or none)",
			},
			[]string{"handler"},
		),
		discussionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nightwatch_discussions_started_total",
				Help: "Persona discussions started by trigger type",
			},
			[]string{"trigger_type"},
		),
		contributions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nightwatch_discussion_contributions_total",
				Help: "Per-persona discussion turns by outcome (spoke or skip)",
			},
			[]string{"outcome"},
		),
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nightwatch_jobs_total",
				Help: "Background jobs by kind and final status",
			},
			[]string{"kind", "status"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nightwatch_job_duration_seconds",
				Help:    "Wall time of background jobs",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"kind"},
		),
	}
}

func (r *Recorder) EventRouted(handler string) {
	if r == nil {
		return
	}
	r.eventsRouted.WithLabelValues(handler).Inc()
}

func (r *Recorder) DiscussionStarted(triggerType string) {
	if r == nil {
		return
	}
	r.discussionsStarted.WithLabelValues(triggerType).Inc()
}

func (r *Recorder) Contribution(spoke bool) {
	if r == nil {
		return
	}
	outcome := "skip"
	if spoke {
		outcome = "spoke"
	}
	r.contributions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) JobFinished(kind, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.jobsTotal.WithLabelValues(kind, status).Inc()
	if duration > 0 {
		r.jobDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}
