package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouterStage1Total counts heuristic decisions by the rule that fired
	RouterStage1Total = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "router",
		Name:      "stage1_total",
		Help:      "Heuristic routing decisions by rule: visual, navigation, datastore, entity_verb, none",
	}, []string{"rule"})

	// RouterStage2Total counts classifier calls by outcome
	RouterStage2Total = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "router",
		Name:      "stage2_total",
		Help:      "Classifier outcomes: ok, error, timeout, unparseable, skipped, disabled",
	}, []string{"outcome"})

	// RouterStage2Latency observes classifier latency
	RouterStage2Latency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "copilot",
		Subsystem: "router",
		Name:      "stage2_latency_seconds",
		Help:      "Latency of classifier model calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 3.0, 5.0},
	})

	// RouterDecisionsTotal counts final routing decisions by intent
	RouterDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "router",
		Name:      "decisions_total",
		Help:      "Final routing decisions by intent",
	}, []string{"intent"})

	// OperationsTotal counts operation invocations by verb and outcome
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "executor",
		Name:      "operations_total",
		Help:      "Operation invocations by verb and outcome: succeeded, rejected, failed, dry_run",
	}, []string{"verb", "outcome"})

	// OperationLatency observes execution latency by verb
	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "copilot",
		Subsystem: "executor",
		Name:      "operation_latency_seconds",
		Help:      "Latency of operation execution",
		Buckets:   prometheus.DefBuckets,
	}, []string{"verb"})

	// AuditWriteFailuresTotal counts audit records that could not be written
	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Audit records that failed to persist",
	})

	// TurnsTotal counts completed turns by tier
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "turn",
		Name:      "completed_total",
		Help:      "Completed turns by tier",
	}, []string{"tier"})
)
