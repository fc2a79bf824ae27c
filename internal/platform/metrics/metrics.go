// Package metrics exposes Prometheus counters for the gestation engine.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	profilesResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "gestation",
		Name:      "profiles_resolved_total",
		Help:      "Pregnancy profiles resolved, by dating source.",
	}, []string{"source"})

	validationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "gestation",
		Name:      "validation_failures_total",
		Help:      "Rejected profile inputs, by offending field.",
	}, []string{"field"})

	examTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "schedule",
		Name:      "exam_transitions_total",
		Help:      "Exam status transitions.",
	}, []string{"from", "to"})

	remindersScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "reminder",
		Name:      "scheduled_total",
		Help:      "Reminders handed to the notification scheduler.",
	})

	remindersSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "reminder",
		Name:      "skipped_total",
		Help:      "Exams for which no reminder was produced, by reason.",
	}, []string{"reason"})

	refreshRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "refresh",
		Name:      "users_total",
		Help:      "Users processed by the periodic refresh, by outcome.",
	}, []string{"outcome"})

	panicsRecovered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestcare",
		Subsystem: "http",
		Name:      "panics_recovered_total",
		Help:      "Handler panics turned into 500 responses, by route.",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(
		profilesResolved,
		validationFailures,
		examTransitions,
		remindersScheduled,
		remindersSkipped,
		refreshRuns,
		panicsRecovered,
	)
}

// ProfileResolved counts one resolution from source.
func ProfileResolved(source string) {
	profilesResolved.WithLabelValues(source).Inc()
}

// ValidationFailed counts one rejected field.
func ValidationFailed(field string) {
	validationFailures.WithLabelValues(field).Inc()
}

// ExamTransition counts one status change.
func ExamTransition(from, to string) {
	examTransitions.WithLabelValues(from, to).Inc()
}

// RemindersPlanned records the outcome of one batch refresh.
func RemindersPlanned(scheduled int, skipped map[string]int) {
	remindersScheduled.Add(float64(scheduled))
	for reason, n := range skipped {
		remindersSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// RefreshOutcome counts one user processed by the periodic refresh.
func RefreshOutcome(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	refreshRuns.WithLabelValues(outcome).Inc()
}

// PanicRecovered counts one recovered handler panic on route.
func PanicRecovered(route string) {
	panicsRecovered.WithLabelValues(route).Inc()
}

// Handler serves the default registry for echo.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
