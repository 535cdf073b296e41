package trigger

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

func TestCreateTrigger_OneShotComputesNextTrigger(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)
	record, err := CreateTrigger(context.Background(), store, now, "email-agent", "check inbox", "", "2026-07-30T09:00:00Z", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if record.NextTrigger.IsZero() {
		t.Fatal("expected a computed next trigger time")
	}
	if record.Status != string(StatusActive) {
		t.Fatalf("status = %s, want active", record.Status)
	}
}

func TestScheduler_FiresDueTriggersOnce(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	record, err := CreateTrigger(ctx, store, now.Add(-time.Minute), "email-agent", "check inbox", "", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	_ = record

	var calls int32
	runner := RunnerFunc(func(ctx context.Context, agentName, instruction string) (*models.ExecutionResult, error) {
		atomic.AddInt32(&calls, 1)
		return &models.ExecutionResult{Success: true, Response: "done"}, nil
	})

	sched := New(store, runner, WithNow(func() time.Time { return now }))
	fired := sched.RunOnce(ctx)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestScheduler_SkipsAlreadyInFlightTrigger(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := CreateTrigger(ctx, store, now.Add(-time.Minute), "email-agent", "check inbox", "", "", "", ""); err != nil {
		t.Fatal(err)
	}

	block := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, agentName, instruction string) (*models.ExecutionResult, error) {
		<-block
		return &models.ExecutionResult{Success: true}, nil
	})

	sched := New(store, runner, WithNow(func() time.Time { return now }))
	first := sched.RunOnce(ctx)
	second := sched.RunOnce(ctx)
	close(block)

	if first != 1 {
		t.Fatalf("first RunOnce fired %d, want 1", first)
	}
	if second != 0 {
		t.Fatalf("second RunOnce fired %d while in flight, want 0", second)
	}
}
