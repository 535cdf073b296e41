package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracerNoEndpointReturnsNoop(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "poke-test"})
	defer shutdown(context.Background())

	if tracer == nil {
		t.Fatal("expected a non-nil tracer")
	}
	if tracer.tracer == nil {
		t.Fatal("expected an underlying otel tracer even in no-op mode")
	}
	if tracer.provider != nil {
		t.Error("expected no provider when no endpoint is configured")
	}
}

func TestNewTracerDefaultsServiceName(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer shutdown(context.Background())

	if tracer == nil || tracer.tracer == nil {
		t.Fatal("expected a usable no-op tracer with a default service name")
	}
}

func TestTracerStartAndEnd(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "poke-interaction"})
	defer shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "interaction.turn")
	if ctx == nil {
		t.Fatal("expected a non-nil context")
	}
	if span == nil {
		t.Fatal("expected a non-nil span")
	}
	span.End()
}

func TestTracerRecordErrorNilIsNoop(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "poke-test"})
	defer shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "scheduler.tick")
	defer span.End()

	tracer.RecordError(span, nil)
}

func TestTracerRecordError(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "poke-test"})
	defer shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "execution.loop")
	defer span.End()

	tracer.RecordError(span, errors.New("tool execution failed"))
}

func TestTracerSetAttributes(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "poke-test"})
	defer shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "scheduler.tick")
	defer span.End()

	tracer.SetAttributes(span, "trigger.due_count", 3, "agent", "researcher")
}

func TestTracerSetAttributesDropsUnkeyedTrailingValue(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "poke-test"})
	defer shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "scheduler.tick")
	defer span.End()

	// Odd-length keyvals: the trailing value with no key must be dropped,
	// not panic.
	tracer.SetAttributes(span, "trigger.due_count", 3, "dangling")
}

func TestAttributeFromValue(t *testing.T) {
	cases := []struct {
		name string
		val  any
	}{
		{"string", "researcher"},
		{"int", 3},
		{"int64", int64(3)},
		{"float64", 1.5},
		{"bool", true},
		{"fallback", struct{ X int }{X: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attr := attributeFromValue("key", tc.val)
			if string(attr.Key) != "key" {
				t.Errorf("expected key %q, got %q", "key", attr.Key)
			}
		})
	}
}
