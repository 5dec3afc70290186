// Package services: Prometheus collectors for the core pipeline.
//
// Labels are kept to bounded sets (policy names, transaction kinds) so
// cardinality stays flat regardless of traffic.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// rateDenials counts admissions refused by the rate gate, per policy.
	// The reason label separates limit exhaustion from fail-closed store errors.
	rateDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_gate_denials_total",
			Help: "Total admissions denied by the rate gate.",
		},
		[]string{"policy", "reason"},
	)

	// txReplays counts idempotent replays served by the executor, per kind.
	txReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_replays_total",
			Help: "Total idempotent replays of already-applied transactions.",
		},
		[]string{"kind"},
	)

	// txFailures counts transitions that ended in the failed state, per kind.
	txFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_failures_total",
			Help: "Total state transitions that failed.",
		},
		[]string{"kind"},
	)

	// notifierDrops counts notifications lost to store errors or burst dedupe.
	notifierDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_drops_total",
			Help: "Total notifications dropped (store failure or burst dedupe).",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(rateDenials, txReplays, txFailures, notifierDrops)
}
