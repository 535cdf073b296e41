package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/execution"
	"github.com/haasonsaas/nexus/internal/interaction"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/trigger"
	"github.com/haasonsaas/nexus/pkg/models"
)

// agentDispatcher bridges the Interaction Runtime to the Execution Runtime:
// Dispatch returns immediately and runs the execution agent on its own
// goroutine, feeding the eventual result back into the interaction runtime
// via HandleAgentMessage on its own turn, never within the call to Dispatch.
type agentDispatcher struct {
	provider     agent.Provider
	defaultModel string
	journals     *interaction.FileAgentJournals
	triggerStore trigger.Store
	tracer       *observability.Tracer
	metrics      *observability.Metrics
	logger       *slog.Logger

	overrides func() map[string]config.AgentOverride

	mu      sync.RWMutex
	runtime *interaction.Runtime
}

// setRuntime wires the interaction runtime back into the dispatcher. It must
// be called once, after both the runtime and dispatcher have been
// constructed, since each needs a reference to the other.
func (d *agentDispatcher) setRuntime(rt *interaction.Runtime) {
	d.mu.Lock()
	d.runtime = rt
	d.mu.Unlock()
}

func (d *agentDispatcher) Dispatch(agentName, instructions string) {
	go d.run(agentName, instructions)
}

func (d *agentDispatcher) run(agentName, instructions string) {
	ctx := context.Background()
	result := d.runSync(ctx, agentName, instructions)

	reply := result.Response
	if !result.Success {
		reply = fmt.Sprintf("Execution agent %s failed: %s", agentName, result.Error)
	}

	d.mu.RLock()
	interactionRuntime := d.runtime
	d.mu.RUnlock()
	if interactionRuntime == nil {
		d.logger.Warn("dispatcher has no interaction runtime wired, dropping agent reply", "agent", agentName)
		return
	}
	interactionRuntime.HandleAgentMessage(ctx, reply)
}

// runSync builds a fresh execution runtime for agentName and runs
// instructions to completion, blocking until done. Dispatch wraps this in a
// goroutine to satisfy the non-blocking AgentDispatcher contract; the
// trigger scheduler's Runner calls it directly since a trigger firing is
// already asynchronous at the scheduler level.
func (d *agentDispatcher) runSync(ctx context.Context, agentName, instructions string) *models.ExecutionResult {
	journal, err := d.journals.Journal(agentName)
	if err != nil {
		d.logger.Error("failed to open agent journal", "agent", agentName, "error", err)
		return &models.ExecutionResult{Success: false, Error: err.Error(), Response: fmt.Sprintf("could not open journal for %s", agentName)}
	}

	tools := agent.NewToolRegistry()
	if d.triggerStore != nil {
		_ = tools.Register(trigger.NewCreateTriggerTool(agentName, d.triggerStore))
		_ = tools.Register(trigger.NewUpdateTriggerTool(agentName, d.triggerStore))
		_ = tools.Register(trigger.NewListTriggersTool(agentName, d.triggerStore))
	}

	model := d.defaultModel
	if d.overrides != nil {
		if override, ok := d.overrides()[agentName]; ok && override.Model != "" {
			model = override.Model
		}
	}

	runtime := execution.New(agentName, d.provider, model, executionSystemPrompt(agentName), tools, journal)
	runtime.Tracer = d.tracer
	runtime.Metrics = d.metrics

	return runtime.Execute(ctx, instructions)
}

func executionSystemPrompt(agentName string) string {
	return fmt.Sprintf("You are %s, an execution agent. Complete the instructions you were given, "+
		"using tools where helpful, and produce one final plain-text status update for the user.", agentName)
}
