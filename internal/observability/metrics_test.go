package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics builds a *Metrics against an isolated registry so tests
// don't collide with NewMetrics's promauto registration against the
// default registerer (which panics on a second call).
func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	registry := prometheus.NewRegistry()

	toolCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "poke_tool_executions_total", Help: "test"},
		[]string{"tool_name", "status"},
	)
	toolDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "poke_tool_execution_duration_seconds", Help: "test"},
		[]string{"tool_name"},
	)
	errCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "poke_errors_total", Help: "test"},
		[]string{"component", "error_type"},
	)
	registry.MustRegister(toolCounter, toolDuration, errCounter)

	return &Metrics{
		ToolExecutionCounter:  toolCounter,
		ToolExecutionDuration: toolDuration,
		ErrorCounter:          errCounter,
	}
}

func TestRecordToolExecution(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordToolExecution("send_message_to_agent", "success", 0.25)
	m.RecordToolExecution("send_message_to_agent", "success", 0.10)
	m.RecordToolExecution("create_trigger", "error", 0.05)

	expected := `
		# HELP poke_tool_executions_total test
		# TYPE poke_tool_executions_total counter
		poke_tool_executions_total{status="error",tool_name="create_trigger"} 1
		poke_tool_executions_total{status="success",tool_name="send_message_to_agent"} 2
	`
	if err := testutil.CollectAndCompare(m.ToolExecutionCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected tool execution counter: %v", err)
	}
	if count := testutil.CollectAndCount(m.ToolExecutionDuration); count < 1 {
		t.Error("expected tool execution duration to have observations")
	}
}

func TestRecordToolExecutionForTriggerFiring(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordToolExecution("trigger.researcher", "fired", 0)
	m.RecordToolExecution("trigger.researcher", "failed", 0)

	expected := `
		# HELP poke_tool_executions_total test
		# TYPE poke_tool_executions_total counter
		poke_tool_executions_total{status="fired",tool_name="trigger.researcher"} 1
		poke_tool_executions_total{status="failed",tool_name="trigger.researcher"} 1
	`
	if err := testutil.CollectAndCompare(m.ToolExecutionCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected trigger firing counter: %v", err)
	}
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordError("interaction", "duplicate_user_message")
	m.RecordError("interaction", "duplicate_user_message")
	m.RecordError("scheduler", "trigger_failed")

	expected := `
		# HELP poke_errors_total test
		# TYPE poke_errors_total counter
		poke_errors_total{component="interaction",error_type="duplicate_user_message"} 2
		poke_errors_total{component="scheduler",error_type="trigger_failed"} 1
	`
	if err := testutil.CollectAndCompare(m.ErrorCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected error counter: %v", err)
	}
}
