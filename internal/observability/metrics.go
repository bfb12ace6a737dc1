// Package observability exposes prometheus collectors for the roster client.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh results.
const (
	RefreshApplied   = "applied"
	RefreshFailed    = "failed"
	RefreshDiscarded = "discarded"
)

var (
	refreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_client",
		Subsystem: "store",
		Name:      "refreshes_total",
		Help:      "Roster refreshes grouped by result (applied, failed, discarded).",
	}, []string{"result"})

	refreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roster_client",
		Subsystem: "store",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent fetching the activity roster from the authority.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	snapshotGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "roster_client",
		Subsystem: "store",
		Name:      "last_snapshot_timestamp_seconds",
		Help:      "Unix timestamp of the most recently applied roster snapshot.",
	})

	actionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_client",
		Subsystem: "action",
		Name:      "actions_total",
		Help:      "Signup and withdraw actions grouped by kind and outcome.",
	}, []string{"kind", "outcome"})

	messageCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_client",
		Subsystem: "status",
		Name:      "messages_shown_total",
		Help:      "Status messages shown to the user, labeled by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(refreshCounter, refreshDuration, snapshotGauge, actionCounter, messageCounter)
}

// RecordRefresh counts a finished refresh and observes its fetch latency.
func RecordRefresh(result string, elapsed time.Duration) {
	refreshCounter.WithLabelValues(result).Inc()
	refreshDuration.Observe(elapsed.Seconds())
}

// RecordSnapshotApplied updates the snapshot watermark gauge.
func RecordSnapshotApplied(ts time.Time) {
	if ts.IsZero() {
		return
	}
	snapshotGauge.Set(float64(ts.Unix()))
}

// RecordAction counts a settled action.
func RecordAction(kind, outcome string) {
	actionCounter.WithLabelValues(kind, outcome).Inc()
}

// RecordMessage counts a status message shown to the user.
func RecordMessage(kind string) {
	messageCounter.WithLabelValues(kind).Inc()
}
