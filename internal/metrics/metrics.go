// Package metrics holds the Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kidzone",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	trophyChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "economy",
			Name:      "trophy_changes_total",
			Help:      "Trophies credited or debited, by ledger type.",
		},
		[]string{"type"},
	)

	economyRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "economy",
			Name:      "rejections_total",
			Help:      "Operations refused by the economy, by reason.",
		},
		[]string{"reason"},
	)

	spins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "spin",
			Name:      "spins_total",
			Help:      "Total number of wheel spins, by reward type.",
		},
		[]string{"reward"},
	)

	approvalDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "approval",
			Name:      "transitions_total",
			Help:      "Approval records moved to a status.",
		},
		[]string{"status"},
	)

	activityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "activity",
			Name:      "events_total",
			Help:      "Activity events appended, by type.",
		},
		[]string{"type"},
	)

	sideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "service",
			Name:      "side_effect_failures_total",
			Help:      "Best-effort secondary writes that failed and were swallowed.",
		},
		[]string{"operation"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kidzone",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		trophyChanges,
		economyRejections,
		spins,
		approvalDecisions,
		activityEvents,
		sideEffectFailures,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "/metrics" {
			return err
		}

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordTrophyChange counts a balance change by ledger type.
func RecordTrophyChange(entryType string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	trophyChanges.WithLabelValues(entryType).Add(float64(amount))
}

// RecordRejection counts a refused economy operation.
func RecordRejection(reason string) {
	economyRejections.WithLabelValues(reason).Inc()
}

// RecordSpin counts a spin by reward type.
func RecordSpin(reward string) {
	spins.WithLabelValues(reward).Inc()
}

// RecordApproval counts a transition into status.
func RecordApproval(status string) {
	approvalDecisions.WithLabelValues(status).Inc()
}

// RecordActivity counts an appended activity event.
func RecordActivity(eventType string) {
	activityEvents.WithLabelValues(eventType).Inc()
}

// RecordSideEffectFailure counts a swallowed best-effort failure.
func RecordSideEffectFailure(operation string) {
	sideEffectFailures.WithLabelValues(operation).Inc()
}

// RecordJob counts a scheduler job run.
func RecordJob(job string, err error) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
}
