package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/models"
)

const maxTriggerExport = 10

// CreateTriggerTool is the execution agent's createTrigger tool, bound to
// one agent name.
type CreateTriggerTool struct {
	agentName string
	store     Store
	now       func() time.Time
}

// NewCreateTriggerTool binds a createTrigger tool to agentName.
func NewCreateTriggerTool(agentName string, store Store) *CreateTriggerTool {
	return &CreateTriggerTool{agentName: agentName, store: store, now: time.Now}
}

func (t *CreateTriggerTool) Name() string        { return "createTrigger" }
func (t *CreateTriggerTool) Description() string { return "Create a reminder trigger for the current execution agent." }

func (t *CreateTriggerTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"payload": {"type": "string", "description": "Raw instruction text that should run when the trigger fires."},
			"recurrence_rule": {"type": "string", "description": "iCalendar RRULE string describing how often to fire (optional)."},
			"start_time": {"type": "string", "description": "ISO 8601 start time for the first firing. Defaults to now if omitted."},
			"status": {"type": "string", "description": "Initial status; usually 'active' or 'paused'."}
		},
		"required": ["payload"],
		"additionalProperties": false
	}`)
}

type createTriggerArgs struct {
	Payload        string `json:"payload"`
	RecurrenceRule string `json:"recurrence_rule"`
	StartTime      string `json:"start_time"`
	Status         string `json:"status"`
}

func (t *CreateTriggerTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args createTriggerArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	record, err := CreateTrigger(ctx, t.store, t.now(), t.agentName, args.Payload, args.RecurrenceRule, args.StartTime, "", args.Status)
	if err != nil {
		return &agent.ToolResult{IsError: true, Content: err.Error()}, nil
	}

	payload := triggerRecordPayload(record)
	payload["trigger_id"] = record.TriggerID
	return &agent.ToolResult{Content: fmt.Sprintf("trigger %s created", record.TriggerID), Payload: payload}, nil
}

// UpdateTriggerTool is the execution agent's updateTrigger tool.
type UpdateTriggerTool struct {
	agentName string
	store     Store
	now       func() time.Time
}

// NewUpdateTriggerTool binds an updateTrigger tool to agentName.
func NewUpdateTriggerTool(agentName string, store Store) *UpdateTriggerTool {
	return &UpdateTriggerTool{agentName: agentName, store: store, now: time.Now}
}

func (t *UpdateTriggerTool) Name() string        { return "updateTrigger" }
func (t *UpdateTriggerTool) Description() string {
	return "Update or pause an existing trigger owned by this execution agent."
}

func (t *UpdateTriggerTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"trigger_id": {"type": "string", "description": "Identifier returned when the trigger was created."},
			"payload": {"type": "string", "description": "Replace the instruction payload (optional)."},
			"recurrence_rule": {"type": "string", "description": "New RRULE definition (optional)."},
			"start_time": {"type": "string", "description": "New ISO 8601 start time for the schedule (optional)."},
			"status": {"type": "string", "description": "Set trigger status to 'active', 'paused', or 'completed'."}
		},
		"required": ["trigger_id"],
		"additionalProperties": false
	}`)
}

type updateTriggerArgs struct {
	TriggerID      string `json:"trigger_id"`
	Payload        string `json:"payload"`
	RecurrenceRule string `json:"recurrence_rule"`
	StartTime      string `json:"start_time"`
	Status         string `json:"status"`
}

func (t *UpdateTriggerTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args updateTriggerArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if strings.TrimSpace(args.TriggerID) == "" {
		return &agent.ToolResult{IsError: true, Content: "trigger_id is required"}, nil
	}

	record, err := t.store.Get(ctx, args.TriggerID)
	if err != nil {
		return &agent.ToolResult{IsError: true, Content: err.Error()}, nil
	}
	if record == nil || record.AgentName != t.agentName {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("trigger %s not found", args.TriggerID)}, nil
	}

	if args.Payload != "" {
		record.Payload = args.Payload
	}
	if args.RecurrenceRule != "" {
		record.RecurrenceRule = args.RecurrenceRule
	}
	if args.StartTime != "" {
		parsed, parseErr := parseTimestamp(args.StartTime)
		if parseErr != nil {
			return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid start_time: %v", parseErr)}, nil
		}
		record.StartTime = parsed
	}
	if args.Status != "" {
		record.Status = args.Status
	}

	now := t.now()
	if record.Status == string(StatusActive) {
		next, ok, nextErr := NextFireTime(record.StartTime, record.RecurrenceRule, record.Timezone, now)
		if nextErr != nil {
			return &agent.ToolResult{IsError: true, Content: nextErr.Error()}, nil
		}
		if ok {
			record.NextTrigger = next
		} else {
			record.Status = string(StatusCompleted)
			record.NextTrigger = time.Time{}
		}
	} else {
		record.NextTrigger = time.Time{}
	}

	if err := t.store.Update(ctx, record); err != nil {
		return &agent.ToolResult{IsError: true, Content: err.Error()}, nil
	}

	payload := triggerRecordPayload(record)
	payload["trigger_id"] = record.TriggerID
	return &agent.ToolResult{Content: fmt.Sprintf("trigger %s updated", record.TriggerID), Payload: payload}, nil
}

// ListTriggersTool is the execution agent's listTriggers tool.
type ListTriggersTool struct {
	agentName string
	store     Store
}

// NewListTriggersTool binds a listTriggers tool to agentName.
func NewListTriggersTool(agentName string, store Store) *ListTriggersTool {
	return &ListTriggersTool{agentName: agentName, store: store}
}

func (t *ListTriggersTool) Name() string        { return "listTriggers" }
func (t *ListTriggersTool) Description() string { return "List all triggers belonging to this execution agent." }

func (t *ListTriggersTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}, "required": [], "additionalProperties": false}`)
}

func (t *ListTriggersTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	records, err := t.store.ListByAgent(ctx, t.agentName)
	if err != nil {
		return &agent.ToolResult{IsError: true, Content: err.Error()}, nil
	}

	total := len(records)
	if total > maxTriggerExport {
		records = records[:maxTriggerExport]
	}

	summaries := make([]map[string]any, 0, len(records))
	for _, record := range records {
		payload := triggerRecordPayload(record)
		payload["trigger_id"] = record.TriggerID
		summaries = append(summaries, payload)
	}

	return &agent.ToolResult{
		Content: fmt.Sprintf("%d trigger(s)", total),
		Payload: map[string]any{"triggers": summaries},
	}, nil
}

const maxPayloadSummaryLength = 160

// summarizePayload condenses a trigger payload to avoid bloating LLM prompts.
func summarizePayload(payload string) string {
	normalized := strings.Join(strings.Fields(payload), " ")
	if len(normalized) <= maxPayloadSummaryLength {
		return normalized
	}
	return strings.TrimRight(normalized[:maxPayloadSummaryLength-1], " ") + "…"
}

func triggerRecordPayload(record *models.TriggerRecord) map[string]any {
	payload := map[string]any{
		"id":             record.TriggerID,
		"payload_summary": summarizePayload(record.Payload),
		"status":         record.Status,
	}
	if !record.NextTrigger.IsZero() {
		payload["next_trigger"] = record.NextTrigger.Format(time.RFC3339)
	}
	if !record.StartTime.IsZero() {
		payload["start_time"] = record.StartTime.Format(time.RFC3339)
	}
	if record.RecurrenceRule != "" {
		payload["recurrence_rule"] = record.RecurrenceRule
	}
	if record.Timezone != "" {
		payload["timezone"] = record.Timezone
	}
	if record.LastError != "" {
		payload["last_error"] = record.LastError
	}
	return payload
}
