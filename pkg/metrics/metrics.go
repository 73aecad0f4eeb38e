package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts fetch-merge-derive cycles by outcome
	// result: ok, feed_error, skipped (previous cycle still running), stale (discarded), panic
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_poll_cycles_total",
		Help: "Total number of reconciliation cycles by result",
	}, []string{"result"})

	// CycleDuration measures a full cycle including both feed reads
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "queue_cycle_duration_seconds",
		Help:    "Duration of a reconciliation cycle in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// FeedErrors breaks feed failures down by taxonomy kind
	FeedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_feed_errors_total",
		Help: "Feed read failures by kind",
	}, []string{"kind"}) // kind: unavailable, not_public, empty, misconfigured

	// StatusReads tracks which fallback tier produced the remote serving value
	StatusReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_status_reads_total",
		Help: "Remote serving reads by resolving tier",
	}, []string{"tier"}) // tier: label, cell, responses, none

	// ActiveQueueLength is the number of people still waiting after the last applied cycle
	ActiveQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queue_active_length",
		Help: "Entries whose number is above the authoritative serving value",
	})

	// ServingNumber is the numeric suffix of the authoritative serving value
	ServingNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queue_serving_number",
		Help: "Numeric suffix of the authoritative now-serving value",
	})

	// ServingUpdates counts accepted serving changes by source
	ServingUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_serving_updates_total",
		Help: "Accepted changes of the authoritative serving value",
	}, []string{"source"}) // source: remote, device, admin

	// Submissions counts registration attempts by result
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_submissions_total",
		Help: "Registration submissions by result",
	}, []string{"result"}) // result: dispatched, invalid, in_flight, transport_error

	// PendingMatches counts how pending registrations were resolved
	PendingMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_pending_matches_total",
		Help: "Pending registration outcomes",
	}, []string{"outcome"}) // outcome: matched, timeout

	// BrokerHealth provides a binary 0/1 signal for the event broker link
	BrokerHealth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queue_broker_healthy",
		Help: "Current health of the event broker link (1 healthy, 0 down)",
	})
)
