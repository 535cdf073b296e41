package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Scheduler polls the Store for due triggers and invokes the execution
// runtime for each, at most once per tick, guarding against re-firing a
// trigger while its previous run is still in flight.
type Scheduler struct {
	store          Store
	runner         Runner
	executionStore ExecutionStore
	logger         *slog.Logger
	now            func() time.Time
	tracer         *observability.Tracer
	metrics        *observability.Metrics

	tickInterval time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
	started  bool
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTickInterval overrides the poll interval.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// WithExecutionHistory records every firing into an ExecutionStore.
func WithExecutionHistory(store ExecutionStore) Option {
	return func(s *Scheduler) {
		if store != nil {
			s.executionStore = store
		}
	}
}

// WithTracer sets the scheduler's tracer, wrapping each tick in a span.
func WithTracer(tracer *observability.Tracer) Option {
	return func(s *Scheduler) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics records triggers fired/failed against the given Metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// New creates a Scheduler over the given store, firing due triggers through
// runner.
func New(store Store, runner Runner, opts ...Option) *Scheduler {
	noopTracer, _ := observability.NewTracer(observability.TraceConfig{ServiceName: "poke-scheduler"})
	s := &Scheduler{
		store:        store,
		runner:       runner,
		logger:       slog.Default().With("component", "trigger"),
		now:          time.Now,
		tracer:       noopTracer,
		tickInterval: time.Second,
		inFlight:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the poll loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.mu.Lock()
		interval := s.tickInterval
		s.mu.Unlock()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
				s.mu.Lock()
				current := s.tickInterval
				s.mu.Unlock()
				if current != interval {
					interval = current
					ticker.Reset(interval)
				}
			}
		}
	}()
}

// Stop waits for the poll loop to exit.
func (s *Scheduler) Stop() {
	s.wg.Wait()
}

// SetTickInterval changes the poll interval used by the next tick after the
// current one. It does not reset an in-flight ticker early.
func (s *Scheduler) SetTickInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	s.tickInterval = interval
	s.mu.Unlock()
}

// RunOnce fires every currently due trigger, skipping any already in
// flight, and returns the count fired.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ctx, span := s.tracer.Start(ctx, "scheduler.tick")
	defer span.End()

	now := s.now()
	due, err := s.store.Due(ctx, now)
	if err != nil {
		s.tracer.RecordError(span, err)
		s.logger.Warn("trigger lookup failed", "error", err)
		return 0
	}
	s.tracer.SetAttributes(span, "trigger.due_count", len(due))

	fired := 0
	for _, record := range due {
		if !s.markInFlight(record.TriggerID) {
			continue
		}
		fired++
		go func(record *models.TriggerRecord) {
			defer s.clearInFlight(record.TriggerID)
			s.fire(ctx, record, now)
		}(record)
	}
	return fired
}

func (s *Scheduler) markInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) clearInFlight(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Scheduler) fire(ctx context.Context, record *models.TriggerRecord, firedAt time.Time) {
	var exec *JobExecution
	if s.executionStore != nil {
		exec = &JobExecution{ID: uuid.NewString(), JobID: record.TriggerID, Status: ExecutionRunning, StartedAt: firedAt}
		if err := s.executionStore.Create(ctx, exec); err != nil {
			s.logger.Warn("failed to record trigger execution start", "trigger_id", record.TriggerID, "error", err)
		}
	}

	result, runErr := s.runner.Run(ctx, record.AgentName, record.Payload)

	if exec != nil {
		exec.CompletedAt = s.now()
		exec.Duration = exec.CompletedAt.Sub(exec.StartedAt)
		if runErr != nil {
			exec.Status = ExecutionFailed
			exec.Error = runErr.Error()
		} else {
			exec.Status = ExecutionSucceeded
			if result != nil {
				exec.Output = result.Response
			}
		}
		if err := s.executionStore.Update(ctx, exec); err != nil {
			s.logger.Warn("failed to record trigger execution end", "trigger_id", record.TriggerID, "error", err)
		}
	}

	updated := *record
	if runErr != nil {
		updated.LastError = runErr.Error()
		s.logger.Warn("trigger execution failed", "trigger_id", record.TriggerID, "agent", record.AgentName, "error", runErr)
		if s.metrics != nil {
			s.metrics.RecordError("scheduler", "trigger_failed")
		}
	} else {
		updated.LastError = ""
		if result != nil && !result.Success {
			updated.LastError = result.Error
		}
		if s.metrics != nil {
			status := "fired"
			if result != nil && !result.Success {
				status = "failed"
			}
			s.metrics.RecordToolExecution("trigger."+record.AgentName, status, 0)
		}
	}

	next, ok, err := NextFireTime(record.StartTime, record.RecurrenceRule, record.Timezone, firedAt.Add(time.Second))
	switch {
	case err != nil:
		updated.LastError = err.Error()
		updated.Status = string(StatusCompleted)
		updated.NextTrigger = time.Time{}
	case !ok:
		updated.Status = string(StatusCompleted)
		updated.NextTrigger = time.Time{}
	default:
		updated.NextTrigger = next
	}

	if err := s.store.Update(ctx, &updated); err != nil {
		s.logger.Warn("failed to update trigger after firing", "trigger_id", record.TriggerID, "error", err)
	}
}

// CreateTrigger validates and persists a new TriggerRecord, computing its
// first NextTrigger from the provided start time / recurrence rule.
func CreateTrigger(ctx context.Context, store Store, now time.Time, agentName, payload, recurrenceRule, startTime, timezone, status string) (*models.TriggerRecord, error) {
	if agentName == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if payload == "" {
		return nil, fmt.Errorf("payload is required")
	}

	var start time.Time
	if startTime != "" {
		parsed, err := parseTimestamp(startTime)
		if err != nil {
			return nil, fmt.Errorf("invalid start_time: %w", err)
		}
		start = parsed
	} else {
		start = now
	}

	st := status
	if st == "" {
		st = string(StatusActive)
	}

	record := &models.TriggerRecord{
		AgentName:      agentName,
		Payload:        payload,
		RecurrenceRule: recurrenceRule,
		StartTime:      start,
		Timezone:       timezone,
		Status:         st,
	}

	if st == string(StatusActive) {
		next, ok, err := NextFireTime(start, recurrenceRule, timezone, now)
		if err != nil {
			return nil, err
		}
		if ok {
			record.NextTrigger = next
		} else {
			record.Status = string(StatusCompleted)
		}
	}

	if err := store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %s", value)
}
