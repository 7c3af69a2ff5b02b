package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskflow"

var (
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job runs by job and result.",
	}, []string{"job", "result"})

	JobEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_entities_total",
		Help:      "Entities handled by scheduled jobs by outcome.",
	}, []string{"job", "outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Dispatcher results by notification type and outcome.",
	}, []string{"type", "outcome"})

	OutboxDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_deliveries_total",
		Help:      "Outbox delivery attempts by result.",
	}, []string{"result"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of scheduled job runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

// Dispatcher outcomes.
const (
	OutcomeCreated    = "created"
	OutcomeSuppressed = "suppressed"
	OutcomeDuplicate  = "duplicate"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
)
