// Package metrics exposes Prometheus metrics for the monitoring agent.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for inframon.
type Metrics struct {
	// Workflow metrics
	CyclesTotal       *prometheus.CounterVec
	CycleOutcome      *prometheus.CounterVec
	ApprovalDecisions *prometheus.CounterVec

	// Step metrics
	StepDuration *prometheus.HistogramVec
	StepErrors   *prometheus.CounterVec

	// Oracle metrics
	OracleRequests *prometheus.CounterVec
	OracleLatency  prometheus.Histogram
	OracleTokens   prometheus.Counter

	// Gate metrics
	ToolsExecuted *prometheus.CounterVec
	ToolsSkipped  prometheus.Counter
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics. Registration is
// process-wide, so repeated calls return the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			CyclesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "inframon_cycles_total",
					Help: "Number of repair cycles started, by workflow variant",
				},
				[]string{"variant"},
			),
			CycleOutcome: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "inframon_cycle_outcome_total",
					Help: "Terminal status of repair cycles",
				},
				[]string{"status"},
			),
			ApprovalDecisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "inframon_approval_decisions_total",
					Help: "Approve/reject signals applied to workflows",
				},
				[]string{"decision"},
			),
			StepDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "inframon_step_duration_seconds",
					Help:    "Duration of workflow steps",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"step"},
			),
			StepErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "inframon_step_errors_total",
					Help: "Step failures by step name",
				},
				[]string{"step"},
			),
			OracleRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "inframon_oracle_requests_total",
					Help: "Oracle completion requests by outcome",
				},
				[]string{"outcome"},
			),
			OracleLatency: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "inframon_oracle_latency_seconds",
					Help:    "Oracle completion latency",
					Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
				},
			),
			OracleTokens: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "inframon_oracle_tokens_total",
					Help: "Total tokens consumed by oracle calls",
				},
			),
			ToolsExecuted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "inframon_tools_executed_total",
					Help: "Repair tools executed by tool name",
				},
				[]string{"tool"},
			),
			ToolsSkipped: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "inframon_tools_skipped_total",
					Help: "Proposed tools skipped below the confidence threshold",
				},
			),
		}
	})
	return sharedMetrics
}
