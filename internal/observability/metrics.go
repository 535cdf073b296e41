package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the handful of Prometheus series the orchestrator
// actually emits: tool-call outcomes from both runtimes, trigger firings
// from the scheduler, and a component-tagged error counter covering
// duplicate-message suppression and loop-cutoff terminations.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	start := time.Now()
//	// ... execute a tool ...
//	metrics.RecordToolExecution("send_message_to_agent", "success", time.Since(start).Seconds())
type Metrics struct {
	// ToolExecutionCounter counts tool invocations, including trigger
	// firings (recorded under a "trigger.<agent>" tool name).
	// Labels: tool_name, status (success|error|rejected|fired|failed)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (interaction|execution|scheduler), error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates and registers every metric with Prometheus's default
// registry. Call this exactly once per process — promauto panics on a
// duplicate registration, which is why callers share one *Metrics instance
// across the interaction runtime, every execution runtime, and the
// scheduler rather than constructing one per component.
func NewMetrics() *Metrics {
	return &Metrics{
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poke_tool_executions_total",
				Help: "Total number of tool executions and trigger firings by name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poke_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poke_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// RecordToolExecution records the outcome and duration of a tool call, or
// of a trigger firing when toolName is "trigger.<agent-name>".
//
// Example:
//
//	start := time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a given component and error
// type.
//
// Example:
//
//	metrics.RecordError("scheduler", "trigger_failed")
//	metrics.RecordError("interaction", "loop_cutoff")
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
