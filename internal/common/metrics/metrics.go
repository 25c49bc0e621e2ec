// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total notifications delivered, by channel and type",
		},
		[]string{"channel", "type"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total per-channel delivery failures",
		},
		[]string{"channel", "type"},
	)

	DedupSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dedup_suppressed_total",
			Help: "Notifications skipped because they already fired today",
		},
		[]string{"type"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_runs_total",
			Help: "Orchestrator runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reminder_run_duration_seconds",
			Help: "Duration of one orchestrator run",
		},
		[]string{"trigger"},
	)
)
