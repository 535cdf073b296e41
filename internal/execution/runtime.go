// Package execution implements the Execution Agent Runtime: a bounded,
// synchronous tool-calling loop run on behalf of one named execution agent.
package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/convlog"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/pkg/models"
)

// MaxToolIterations bounds how many LLM calls a single execution run may
// make before it is treated as having failed to converge.
const MaxToolIterations = 5

// RepeatedPlanThreshold is how many times the same (content, tool-calls)
// plan may recur before the loop stops early, treating the repeat as the
// agent's final answer.
const RepeatedPlanThreshold = 2

// Runtime executes one request for a single named execution agent: it
// drives the tool-calling loop, enforces the iteration and repeat-plan
// cutoffs, and records every tool call and the final response to the
// agent's own journal.
type Runtime struct {
	AgentName    string
	Provider     agent.Provider
	Model        string
	SystemPrompt string
	Tools        *agent.ToolRegistry
	Journal      *convlog.AgentJournal
	Logger       *slog.Logger
	Tracer       *observability.Tracer
	Metrics      *observability.Metrics
}

// New creates a Runtime for the named execution agent.
func New(agentName string, provider agent.Provider, model, systemPrompt string, tools *agent.ToolRegistry, journal *convlog.AgentJournal) *Runtime {
	noopTracer, _ := observability.NewTracer(observability.TraceConfig{ServiceName: "poke-execution"})
	return &Runtime{
		AgentName:    agentName,
		Provider:     provider,
		Model:        model,
		SystemPrompt: systemPrompt,
		Tools:        tools,
		Journal:      journal,
		Logger:       slog.Default().With("component", "execution", "agent", agentName),
		Tracer:       noopTracer,
	}
}

// Execute runs the tool-calling loop for a single instruction, returning
// the final textual response or an error result — never a Go error for
// loop-internal failures, matching spec.md's "never retry automatically"
// policy: every failure mode becomes a failed ExecutionResult.
func (r *Runtime) Execute(ctx context.Context, instruction string) *models.ExecutionResult {
	result, err := r.execute(ctx, instruction)
	if err != nil {
		r.Logger.Error("execution failed", "error", err)
		if r.Journal != nil {
			_ = r.Journal.RecordError(err.Error())
		}
		return &models.ExecutionResult{Success: false, Response: fmt.Sprintf("Failed to complete task: %s", err), Error: err.Error()}
	}
	return result
}

func (r *Runtime) execute(ctx context.Context, instruction string) (*models.ExecutionResult, error) {
	ctx, span := r.Tracer.Start(ctx, "execution.loop")
	defer span.End()

	messages := []agent.CompletionMessage{{Role: "user", Content: instruction}}

	planSignatures := make(map[string]int)
	executedToolSignatures := make(map[string]struct{})

	var finalResponse string
	haveFinalResponse := false

	for iteration := 0; iteration < MaxToolIterations; iteration++ {
		r.Logger.Info("requesting plan", "iteration", iteration+1)

		chunk, err := r.call(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("llm call phase: %w", err)
		}

		toolCalls := r.extractToolCalls(chunk)
		if len(toolCalls) > 1 {
			r.Logger.Warn("multiple tool calls detected, using only the first", "names", toolCallNames(toolCalls))
			toolCalls = toolCalls[:1]
		}

		content := strings.TrimSpace(chunk.Text)
		messages = append(messages, agent.CompletionMessage{Role: "assistant", Content: content, ToolCalls: toolCalls})

		signature := planSignature(content, toolCalls)
		if signature != "" {
			planSignatures[signature]++
			if planSignatures[signature] >= RepeatedPlanThreshold {
				r.Logger.Info("repeated plan detected; terminating early", "iteration", iteration+1)
				finalResponse = firstNonEmpty(content, "Plan repeated; no further action taken.")
				haveFinalResponse = true
			}
		}

		if len(toolCalls) == 0 {
			finalResponse = firstNonEmpty(content, "No action required.")
			haveFinalResponse = true
		}

		if haveFinalResponse {
			break
		}

		stop := false
		for _, call := range toolCalls {
			toolSig := toolSignature(call)
			if _, seen := executedToolSignatures[toolSig]; seen {
				r.Logger.Info("identical tool invocation detected; ending execution early")
				finalResponse = firstNonEmpty(content, "Repeated tool invocation; stopping.")
				haveFinalResponse = true
				stop = true
				break
			}
			executedToolSignatures[toolSig] = struct{}{}

			toolResult, toolErr := r.runTool(ctx, call)
			messages = append(messages, agent.CompletionMessage{
				Role:        "tool",
				ToolResults: []models.ToolResult{r.formatToolResult(call, toolResult, toolErr)},
			})
		}
		if stop {
			break
		}
	}

	if !haveFinalResponse {
		err := fmt.Errorf("reached tool iteration limit (%d) without a final response", MaxToolIterations)
		r.Tracer.RecordError(span, err)
		if r.Metrics != nil {
			r.Metrics.RecordError("execution", "loop_cutoff")
		}
		return nil, err
	}

	if r.Journal != nil {
		_ = r.Journal.RecordResponse(finalResponse)
	}
	return &models.ExecutionResult{Success: true, Response: finalResponse}, nil
}

func (r *Runtime) call(ctx context.Context, messages []agent.CompletionMessage) (*agent.CompletionChunk, error) {
	system := r.SystemPrompt
	if r.Journal != nil {
		if history, err := r.Journal.Transcript(); err == nil && strings.TrimSpace(history) != "" {
			system += "\n\n# Execution History\n" + history
		}
	}
	req := &agent.CompletionRequest{
		Model:    r.Model,
		System:   system,
		Messages: messages,
		Tools:    r.Tools.AsTools(),
	}
	stream, err := r.Provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	final := &agent.CompletionChunk{}
	var text strings.Builder
	for chunk := range stream {
		if chunk == nil {
			continue
		}
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		text.WriteString(chunk.Text)
		if chunk.ToolCall != nil {
			final.ToolCall = chunk.ToolCall
		}
	}
	final.Text = text.String()
	return final, nil
}

// extractToolCalls rejects obviously malformed tool calls using the same
// narrow heuristic as the original execution runtime: a name containing a
// separator character that also splits into more than one whitespace-
// delimited word is almost certainly a mangled concatenation, and is
// dropped rather than passed to the registry. This is deliberately looser
// than the shared parser in internal/toolcall, which the interaction
// runtime uses instead.
func (r *Runtime) extractToolCalls(chunk *agent.CompletionChunk) []models.ToolCall {
	if chunk == nil || chunk.ToolCall == nil {
		return nil
	}
	call := *chunk.ToolCall
	name := strings.TrimSpace(call.Name)
	if name == "" {
		return nil
	}
	if looksConcatenated(name) {
		r.Logger.Warn("tool call rejected - concatenated name", "name", name)
		return nil
	}
	if len(call.Input) == 0 {
		call.Input = json.RawMessage("{}")
	}
	return []models.ToolCall{call}
}

func looksConcatenated(name string) bool {
	hasSeparator := strings.ContainsAny(name, "_ -+")
	return hasSeparator && len(strings.Fields(name)) > 1
}

func (r *Runtime) runTool(ctx context.Context, call models.ToolCall) (*agent.ToolResult, error) {
	r.Logger.Info("executing tool", "tool", call.Name)
	start := time.Now()
	result, err := r.Tools.Execute(ctx, call.Name, call.Input)
	duration := time.Since(start).Seconds()
	if err != nil {
		r.Logger.Warn("tool failed", "tool", call.Name, "error", err)
		if r.Metrics != nil {
			r.Metrics.RecordToolExecution(call.Name, "error", duration)
			r.Metrics.RecordError("execution", "tool_failed")
		}
	} else {
		r.Logger.Info("tool completed", "tool", call.Name)
		if r.Metrics != nil {
			r.Metrics.RecordToolExecution(call.Name, "success", duration)
		}
	}
	if r.Journal != nil {
		status := "ok"
		detail := ""
		if result != nil {
			detail = result.Content
		}
		if err != nil {
			status = "error"
			detail = err.Error()
		}
		_ = r.Journal.RecordToolExecution(call.Name, status, detail)
	}
	return result, err
}

func (r *Runtime) formatToolResult(call models.ToolCall, result *agent.ToolResult, err error) models.ToolResult {
	if err != nil {
		return models.ToolResult{ToolCallID: call.ID, IsError: true, Success: false, Error: err.Error(), Content: fmt.Sprintf(`{"tool":%q,"status":"error","error":%q}`, call.Name, err.Error())}
	}
	content := ""
	if result != nil {
		content = result.Content
	}
	return models.ToolResult{ToolCallID: call.ID, Success: true, Content: fmt.Sprintf(`{"tool":%q,"status":"success","result":%q}`, call.Name, content)}
}

func planSignature(content string, toolCalls []models.ToolCall) string {
	type planCall struct {
		Name string `json:"name"`
		Args string `json:"arguments"`
	}
	calls := make([]planCall, 0, len(toolCalls))
	for _, call := range toolCalls {
		calls = append(calls, planCall{Name: call.Name, Args: string(call.Input)})
	}
	data, err := json.Marshal(struct {
		Content string     `json:"content"`
		Tools   []planCall `json:"tools"`
	}{Content: content, Tools: calls})
	if err != nil {
		return ""
	}
	return string(data)
}

func toolSignature(call models.ToolCall) string {
	return call.Name + "\x00" + string(call.Input)
}

func toolCallNames(calls []models.ToolCall) []string {
	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Name)
	}
	sort.Strings(names)
	return names
}

func firstNonEmpty(primary, fallback string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}
