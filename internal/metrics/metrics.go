// Package metrics holds the bot's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RepliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "channels_replies_total",
		Help: "Reactive reply decisions by persona and outcome",
	}, []string{"persona", "outcome"})

	CheckinsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "channels_checkins_total",
		Help: "Proactive check-in attempts by persona and outcome",
	}, []string{"persona", "outcome"})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "channels_sweep_duration_seconds",
		Help:    "Duration of one scheduler sweep",
		Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	SweepsDue = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "channels_sweeps_due_total",
		Help: "Number of sweeps in which a persona was due",
	}, []string{"persona"})

	AIGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ai_generation_duration_seconds",
		Help:    "Duration of AI reply generation",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})
)

// Reply outcomes.
const (
	OutcomeSent        = "sent"
	OutcomeRateLimited = "rate_limited"
	OutcomeIrrelevant  = "irrelevant"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// MustRegister registers all collectors on registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		RepliesTotal,
		CheckinsTotal,
		SweepDuration,
		SweepsDue,
		AIGenerationDuration,
	)
}

// ObserveReply counts one reactive decision.
func ObserveReply(persona, outcome string) {
	RepliesTotal.WithLabelValues(persona, outcome).Inc()
}

// ObserveCheckin counts one check-in send attempt.
func ObserveCheckin(persona string, err error) {
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
	}
	CheckinsTotal.WithLabelValues(persona, outcome).Inc()
}

// ObserveSweep records a sweep's duration and which personas were due.
func ObserveSweep(start time.Time, due []string) {
	SweepDuration.Observe(time.Since(start).Seconds())
	for _, p := range due {
		SweepsDue.WithLabelValues(p).Inc()
	}
}

// ObserveGeneration records one AI call.
func ObserveGeneration(provider string, start time.Time, err error) {
	if provider == "" {
		provider = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	AIGenerationDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
}
