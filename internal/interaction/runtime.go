// Package interaction implements the Interaction Agent Runtime: the
// single synchronous loop that turns one inbound user or execution-agent
// message into zero or more tool dispatches and, at most, one reply.
package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/convlog"
	"github.com/haasonsaas/nexus/internal/dedupe"
	"github.com/haasonsaas/nexus/internal/lessons"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/reminder"
	"github.com/haasonsaas/nexus/internal/toolcall"
	"github.com/haasonsaas/nexus/pkg/models"
)

// MaxToolIterations bounds how many LLM calls a single turn may make
// before it is treated as having failed to converge.
const MaxToolIterations = 8

// Roster is the minimal agent-roster contract the runtime needs: ensure
// an agent exists, check membership, list names for prompt construction,
// and remove an agent the user no longer wants.
type Roster interface {
	Add(name string) error
	Has(name string) bool
	Names() []string
	Remove(name string) (bool, error)
}

// AgentDispatcher submits instructions to a named execution agent. Dispatch
// must return without waiting for the agent's run to finish — its eventual
// reply arrives back into this runtime via HandleAgentMessage on its own
// turn, never within the turn that called Dispatch.
type AgentDispatcher interface {
	Dispatch(agentName, instructions string)
}

// AgentJournals records the instructions handed to, and optionally erases
// the history of, a named execution agent.
type AgentJournals interface {
	RecordRequest(agentName, instructions string) error
	Clear(agentName string) error
}

// Result is the outcome of one call to Execute or HandleAgentMessage.
type Result struct {
	Success             bool
	Response            string
	Error               string
	ExecutionAgentsUsed int
}

// Runtime drives the interaction loop: one LLM call per iteration, parsing
// and dispatching tool calls, until the model stops calling tools or the
// iteration limit is reached.
type Runtime struct {
	Provider agent.Provider
	Model    string
	Tools    *agent.ToolRegistry

	ConversationLog *convlog.ConversationLog
	Roster          Roster
	Journals        AgentJournals
	Dispatcher      AgentDispatcher
	Lessons         *lessons.Store
	Duplicates      *dedupe.Detector
	ReminderParser  *reminder.Parser

	Logger  *slog.Logger
	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// New creates a Runtime. provider, tools, conversationLog, roster, and
// duplicates are required; journals, dispatcher, lessonsStore, and the
// reminder parser may be nil if the corresponding tools are not wired in.
func New(provider agent.Provider, model string, tools *agent.ToolRegistry, convLog *convlog.ConversationLog, roster Roster, journals AgentJournals, dispatcher AgentDispatcher, lessonsStore *lessons.Store, duplicates *dedupe.Detector) *Runtime {
	noopTracer, _ := observability.NewTracer(observability.TraceConfig{ServiceName: "poke-interaction"})
	return &Runtime{
		Provider:        provider,
		Model:           model,
		Tools:           tools,
		ConversationLog: convLog,
		Roster:          roster,
		Journals:        journals,
		Dispatcher:      dispatcher,
		Lessons:         lessonsStore,
		Duplicates:      duplicates,
		ReminderParser:  reminder.NewParser(),
		Logger:          slog.Default().With("component", "interaction"),
		Tracer:          noopTracer,
	}
}

// loopSummary accumulates what happened across every iteration of one turn.
type loopSummary struct {
	lastAssistantText string
	userMessages       []string
	toolNames          []string
	executionAgents    map[string]struct{}
}

// Execute handles a user-authored message.
func (r *Runtime) Execute(ctx context.Context, userMessage string) *Result {
	r.Logger.Info("processing user message", "length", len(userMessage))

	if r.Duplicates != nil && r.Duplicates.CheckAndMark(userMessage, models.RoleUser, true) {
		r.Logger.Info("duplicate user message detected, skipping")
		if r.Metrics != nil {
			r.Metrics.RecordError("interaction", "duplicate_user_message")
		}
		return &Result{Success: true}
	}

	transcriptBefore, err := r.ConversationLog.Transcript()
	if err != nil {
		return &Result{Error: fmt.Sprintf("load transcript: %s", err)}
	}
	if err := r.ConversationLog.RecordUserMessage(userMessage); err != nil {
		return &Result{Error: fmt.Sprintf("record user message: %s", err)}
	}

	message := r.prepareMessage(userMessage, transcriptBefore, "user")
	return r.runTurn(ctx, message)
}

// HandleAgentMessage handles a status update relayed from an execution
// agent. Reminder-shaped messages are classified without an LLM call.
func (r *Runtime) HandleAgentMessage(ctx context.Context, agentMessage string) *Result {
	r.Logger.Info("received agent message", "preview", preview(agentMessage, 100))

	if r.Duplicates != nil && r.Duplicates.CheckAndMark(agentMessage, models.RoleExecutionAgent, true) {
		r.Logger.Info("duplicate agent message detected, skipping")
		return &Result{Success: true}
	}

	if r.ReminderParser != nil {
		parsed := r.ReminderParser.Parse(agentMessage)
		switch parsed.Type {
		case reminder.TypeNotification:
			return r.recordReminderReply(reminder.FormatNotification(parsed))
		case reminder.TypeCreation:
			return r.recordReminderReply(reminder.FormatCreation(parsed))
		case reminder.TypeGeneral:
			return r.recordReminderReply(reminder.FormatGeneral(parsed))
		}
	}

	transcriptBefore, err := r.ConversationLog.Transcript()
	if err != nil {
		return &Result{Error: fmt.Sprintf("load transcript: %s", err)}
	}
	if err := r.ConversationLog.RecordAgentMessage(agentMessage); err != nil {
		return &Result{Error: fmt.Sprintf("record agent message: %s", err)}
	}

	message := r.prepareMessage(agentMessage, transcriptBefore, "agent")
	return r.runTurn(ctx, message)
}

func (r *Runtime) recordReminderReply(text string) *Result {
	if err := r.ConversationLog.RecordReply(text); err != nil {
		return &Result{Error: fmt.Sprintf("record reminder reply: %s", err)}
	}
	return &Result{Success: true, Response: text, ExecutionAgentsUsed: 1}
}

func (r *Runtime) runTurn(ctx context.Context, message string) *Result {
	ctx, span := r.Tracer.Start(ctx, "interaction.turn")
	defer span.End()

	summary, err := r.runLoop(ctx, message)
	if err != nil {
		r.Tracer.RecordError(span, err)
		r.Logger.Warn("interaction loop failed", "error", err)
		return &Result{Error: err.Error()}
	}

	response := r.finalizeResponse(summary)
	if response != "" {
		if r.shouldEmitAssistantReply(response) {
			if len(summary.userMessages) == 0 {
				if err := r.ConversationLog.RecordReply(response); err != nil {
					r.Logger.Warn("failed to record assistant reply", "error", err)
				}
			}
		} else {
			response = ""
		}
	}

	return &Result{Success: true, Response: response, ExecutionAgentsUsed: len(summary.executionAgents)}
}

func (r *Runtime) runLoop(ctx context.Context, firstMessage string) (*loopSummary, error) {
	messages := []agent.CompletionMessage{{Role: "user", Content: firstMessage}}
	summary := &loopSummary{executionAgents: make(map[string]struct{})}
	knownTools := toolcall.ToolNameSet(r.Tools.Names())

	for iteration := 0; iteration < MaxToolIterations; iteration++ {
		chunk, err := r.call(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("llm call: %w", err)
		}

		content := strings.TrimSpace(chunk.Text)
		if content != "" {
			summary.lastAssistantText = content
		}

		raw := toRawCalls(chunk.ToolCalls)
		parsed := toolcall.Parse(raw, knownTools)

		assistantMsg := agent.CompletionMessage{Role: "assistant", Content: chunk.Text}
		if len(raw) > 0 {
			assistantMsg.ToolCalls = toolcall.ToToolCalls(parsed)
		}
		messages = append(messages, assistantMsg)

		if len(parsed) == 0 {
			return summary, nil
		}

		for _, call := range parsed {
			summary.toolNames = append(summary.toolNames, call.Name)

			result := r.executeTool(ctx, call)
			if result.UserMessage != "" {
				summary.userMessages = append(summary.userMessages, result.UserMessage)
			}
			if call.Name == "send_message_to_agent" {
				if name, ok := agentNameFromArguments(call.Arguments); ok {
					summary.executionAgents[name] = struct{}{}
				}
			}

			messages = append(messages, agent.CompletionMessage{
				Role:        "tool",
				ToolResults: []models.ToolResult{formatToolResult(call, result)},
			})
		}
	}

	if r.Metrics != nil {
		r.Metrics.RecordError("interaction", "loop_cutoff")
	}
	return nil, fmt.Errorf("reached tool iteration limit (%d) without a final response", MaxToolIterations)
}

func (r *Runtime) call(ctx context.Context, messages []agent.CompletionMessage) (*aggregatedChunk, error) {
	req := &agent.CompletionRequest{
		Model:    r.Model,
		System:   r.buildSystemPrompt(),
		Messages: messages,
		Tools:    r.Tools.AsTools(),
	}
	stream, err := r.Provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	agg := &aggregatedChunk{}
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
			agg.ToolCalls = append(agg.ToolCalls, *chunk.ToolCall)
		}
	}
	agg.Text = text.String()
	return agg, nil
}

// aggregatedChunk is the fully-drained result of one LLM call, unlike
// agent.CompletionChunk which carries at most one tool call per streamed
// increment: the interaction runtime may legitimately see several tool
// calls proposed within a single turn and must collect them all.
type aggregatedChunk struct {
	Text      string
	ToolCalls []models.ToolCall
}

func (r *Runtime) executeTool(ctx context.Context, call toolcall.Parsed) *agent.ToolResult {
	if call.Invalid() {
		r.Logger.Warn("tool call rejected", "tool", call.Name, "reason", call.InvalidReason)
		if r.Metrics != nil {
			r.Metrics.RecordToolExecution(call.Name, "rejected", 0)
		}
		return &agent.ToolResult{IsError: true, Content: call.InvalidReason}
	}

	start := time.Now()
	result, err := r.Tools.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		r.Logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		if r.Metrics != nil {
			r.Metrics.RecordToolExecution(call.Name, "error", time.Since(start).Seconds())
		}
		return &agent.ToolResult{IsError: true, Content: err.Error()}
	}
	r.Logger.Debug("tool executed", "tool", call.Name)
	if r.Metrics != nil {
		r.Metrics.RecordToolExecution(call.Name, "success", time.Since(start).Seconds())
	}
	return result
}

func (r *Runtime) shouldEmitAssistantReply(reply string) bool {
	if strings.TrimSpace(reply) == "" {
		return false
	}
	if r.Duplicates != nil && r.Duplicates.CheckAndMark(reply, models.RoleAssistant, true) {
		r.Logger.Warn("duplicate assistant reply detected", "preview", preview(reply, 160))
		return false
	}
	return true
}

func (r *Runtime) finalizeResponse(summary *loopSummary) string {
	if len(summary.userMessages) > 0 {
		return summary.userMessages[len(summary.userMessages)-1]
	}
	return summary.lastAssistantText
}

func formatToolResult(call toolcall.Parsed, result *agent.ToolResult) models.ToolResult {
	content := ""
	isError := false
	userMessage := ""
	if result != nil {
		content = result.Content
		isError = result.IsError
		userMessage = result.UserMessage
	}
	data, err := json.Marshal(map[string]any{"tool": call.Name, "success": !isError, "result": content})
	if err != nil {
		data = []byte(fmt.Sprintf(`{"tool":%q,"success":%v}`, call.Name, !isError))
	}
	return models.ToolResult{Content: string(data), IsError: isError, Success: !isError, UserMessage: userMessage}
}

func toRawCalls(calls []models.ToolCall) []toolcall.RawCall {
	raw := make([]toolcall.RawCall, 0, len(calls))
	for _, c := range calls {
		raw = append(raw, toolcall.RawCall{ID: c.ID, Name: c.Name, Arguments: string(c.Input)})
	}
	return raw
}

func agentNameFromArguments(args json.RawMessage) (string, bool) {
	var payload struct {
		AgentName string `json:"agent_name"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return "", false
	}
	if strings.TrimSpace(payload.AgentName) == "" {
		return "", false
	}
	return payload.AgentName, true
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
