// Package trigger implements the trigger scheduler: a poll loop that fires
// due TriggerRecords by invoking an execution agent, and the Store that
// backs the createTrigger/updateTrigger/listTriggers tool surface.
package trigger

import (
	"context"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// Status is the lifecycle state of a trigger.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Store persists TriggerRecords, scoped by owning agent.
type Store interface {
	Create(ctx context.Context, record *models.TriggerRecord) error
	Update(ctx context.Context, record *models.TriggerRecord) error
	Get(ctx context.Context, id string) (*models.TriggerRecord, error)
	ListByAgent(ctx context.Context, agentName string) ([]*models.TriggerRecord, error)
	// Due returns active triggers whose NextTrigger is at or before now.
	Due(ctx context.Context, now time.Time) ([]*models.TriggerRecord, error)
}

// Runner invokes the execution agent runtime for a trigger firing.
type Runner interface {
	Run(ctx context.Context, agentName, instruction string) (*models.ExecutionResult, error)
}

// RunnerFunc adapts a function to a Runner.
type RunnerFunc func(ctx context.Context, agentName, instruction string) (*models.ExecutionResult, error)

// Run invokes the runner function.
func (f RunnerFunc) Run(ctx context.Context, agentName, instruction string) (*models.ExecutionResult, error) {
	return f(ctx, agentName, instruction)
}
