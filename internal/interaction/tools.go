package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/convlog"
	"github.com/haasonsaas/nexus/internal/lessons"
)

// DefaultTools builds every interaction tool bound to rt's collaborators,
// for the caller to register into rt.Tools. Tools whose collaborator is
// nil are skipped rather than returned in a broken state.
func DefaultTools(rt *Runtime) []agent.Tool {
	var tools []agent.Tool
	if rt.Roster != nil && rt.Journals != nil && rt.Dispatcher != nil {
		tools = append(tools, &SendMessageToAgentTool{roster: rt.Roster, journals: rt.Journals, dispatcher: rt.Dispatcher})
	}
	if rt.ConversationLog != nil {
		tools = append(tools, &SendMessageToUserTool{log: rt.ConversationLog})
		tools = append(tools, &SendDraftTool{log: rt.ConversationLog})
		tools = append(tools, &WaitTool{log: rt.ConversationLog})
	}
	if rt.Roster != nil {
		tools = append(tools, &RemoveAgentTool{roster: rt.Roster, journals: rt.Journals})
	}
	if rt.Lessons != nil {
		tools = append(tools, &AddLessonTool{lessons: rt.Lessons})
		tools = append(tools, &GetLessonsTool{lessons: rt.Lessons})
		tools = append(tools, &DeleteLessonTool{lessons: rt.Lessons})
	}
	return tools
}

// SendMessageToAgentTool delivers instructions to a named execution agent,
// creating the agent in the roster on first use.
type SendMessageToAgentTool struct {
	roster     Roster
	journals   AgentJournals
	dispatcher AgentDispatcher
}

func (t *SendMessageToAgentTool) Name() string { return "send_message_to_agent" }
func (t *SendMessageToAgentTool) Description() string {
	return "Deliver instructions to a named execution agent, creating it if it doesn't already exist in the roster."
}
func (t *SendMessageToAgentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"agent_name": {"type": "string", "description": "Human-readable agent name, e.g. 'Email to Sharanjeet'."},
			"instructions": {"type": "string", "description": "Instructions for the agent to execute."}
		},
		"required": ["agent_name", "instructions"],
		"additionalProperties": false
	}`)
}

func (t *SendMessageToAgentTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		AgentName    string `json:"agent_name"`
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if strings.TrimSpace(args.AgentName) == "" {
		return &agent.ToolResult{IsError: true, Content: "agent_name is required"}, nil
	}

	isNew := !t.roster.Has(args.AgentName)
	if err := t.roster.Add(args.AgentName); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("add to roster: %v", err)}, nil
	}
	if err := t.journals.RecordRequest(args.AgentName, args.Instructions); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("record request: %v", err)}, nil
	}

	t.dispatcher.Dispatch(args.AgentName, args.Instructions)

	return &agent.ToolResult{
		Content: fmt.Sprintf("submitted to %s", args.AgentName),
		Payload: map[string]any{"status": "submitted", "agent_name": args.AgentName, "new_agent_created": isNew},
	}, nil
}

// SendMessageToUserTool records a user-visible reply.
type SendMessageToUserTool struct {
	log *convlog.ConversationLog
}

func (t *SendMessageToUserTool) Name() string { return "send_message_to_user" }
func (t *SendMessageToUserTool) Description() string {
	return "Deliver a natural-language response directly to the user."
}
func (t *SendMessageToUserTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"message": {"type": "string", "description": "Plain-text message shown to the user."}},
		"required": ["message"],
		"additionalProperties": false
	}`)
}

func (t *SendMessageToUserTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if err := t.log.RecordReply(args.Message); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("record reply: %v", err)}, nil
	}
	return &agent.ToolResult{
		Content:     "delivered",
		UserMessage: args.Message,
		Payload:     map[string]any{"status": "delivered"},
	}, nil
}

// SendDraftTool records a formatted draft for the user to review.
type SendDraftTool struct {
	log *convlog.ConversationLog
}

func (t *SendDraftTool) Name() string        { return "send_draft" }
func (t *SendDraftTool) Description() string { return "Record a draft (e.g. an email) for the user to review." }
func (t *SendDraftTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"to": {"type": "string"},
			"subject": {"type": "string"},
			"body": {"type": "string"}
		},
		"required": ["to", "subject", "body"],
		"additionalProperties": false
	}`)
}

func (t *SendDraftTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	message := fmt.Sprintf("To: %s\nSubject: %s\n\n%s", args.To, args.Subject, args.Body)
	if err := t.log.RecordReply(message); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("record draft: %v", err)}, nil
	}
	return &agent.ToolResult{
		Content: "draft recorded",
		Payload: map[string]any{"status": "draft_recorded", "to": args.To, "subject": args.Subject},
	}, nil
}

// WaitTool records a silent wait marker, never surfaced to the user.
type WaitTool struct {
	log *convlog.ConversationLog
}

func (t *WaitTool) Name() string { return "wait" }
func (t *WaitTool) Description() string {
	return "Wait silently when a message is already in conversation history, to avoid duplicating a response."
}
func (t *WaitTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"reason": {"type": "string", "description": "Brief explanation of why waiting."}},
		"required": ["reason"],
		"additionalProperties": false
	}`)
}

func (t *WaitTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if err := t.log.RecordWait(args.Reason); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("record wait: %v", err)}, nil
	}
	return &agent.ToolResult{Content: "waiting", Payload: map[string]any{"status": "waiting", "reason": args.Reason}}, nil
}

// RemoveAgentTool removes an agent from the roster, optionally wiping its journal.
type RemoveAgentTool struct {
	roster   Roster
	journals AgentJournals
}

func (t *RemoveAgentTool) Name() string { return "remove_agent" }
func (t *RemoveAgentTool) Description() string {
	return "Remove an execution agent from the roster when it is no longer needed or is a duplicate."
}
func (t *RemoveAgentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"agent_name": {"type": "string"},
			"clear_logs": {"type": "boolean", "default": false}
		},
		"required": ["agent_name"],
		"additionalProperties": false
	}`)
}

func (t *RemoveAgentTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		AgentName string `json:"agent_name"`
		ClearLogs bool   `json:"clear_logs"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	removed, err := t.roster.Remove(args.AgentName)
	if err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("remove from roster: %v", err)}, nil
	}
	if !removed {
		return &agent.ToolResult{
			Content: "not found",
			Payload: map[string]any{"status": "not_found", "agent_name": args.AgentName},
		}, nil
	}

	if args.ClearLogs && t.journals != nil {
		if err := t.journals.Clear(args.AgentName); err != nil {
			return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("clear journal: %v", err)}, nil
		}
	}

	return &agent.ToolResult{
		Content: fmt.Sprintf("removed %s", args.AgentName),
		Payload: map[string]any{"status": "removed", "agent_name": args.AgentName, "logs_cleared": args.ClearLogs},
	}, nil
}

// AddLessonTool appends a new lesson the user explicitly asked to be remembered.
type AddLessonTool struct {
	lessons *lessons.Store
}

func (t *AddLessonTool) Name() string { return "add_lesson" }
func (t *AddLessonTool) Description() string {
	return "Add a new lesson learned. Use this when the user explicitly asks you to remember something or learn from a mistake."
}
func (t *AddLessonTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "e.g. 'email', 'calendar', 'user_preference'."},
			"problem": {"type": "string", "description": "The problem or situation that occurred."},
			"solution": {"type": "string", "description": "How to avoid or fix this in the future."},
			"context": {"type": "string", "description": "Optional context about when this lesson matters."}
		},
		"required": ["category", "problem", "solution"],
		"additionalProperties": false
	}`)
}

func (t *AddLessonTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		Category string `json:"category"`
		Problem  string `json:"problem"`
		Solution string `json:"solution"`
		Context  string `json:"context"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	content := fmt.Sprintf("[%s] %s -> %s", args.Category, args.Problem, args.Solution)
	if args.Context != "" {
		content += fmt.Sprintf(" (%s)", args.Context)
	}

	lesson, err := t.lessons.Add(content)
	if err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("add lesson: %v", err)}, nil
	}

	return &agent.ToolResult{
		Content: fmt.Sprintf("lesson added in category %q", args.Category),
		Payload: map[string]any{"status": "lesson_added", "category": args.Category, "id": lesson.ID},
	}, nil
}

// GetLessonsTool retrieves every stored lesson.
type GetLessonsTool struct {
	lessons *lessons.Store
}

func (t *GetLessonsTool) Name() string        { return "get_lessons" }
func (t *GetLessonsTool) Description() string { return "Retrieve lessons learned so far." }
func (t *GetLessonsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}, "additionalProperties": false}`)
}

func (t *GetLessonsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	all := t.lessons.All()
	summaries := make([]map[string]any, 0, len(all))
	for _, lesson := range all {
		summaries = append(summaries, map[string]any{"id": lesson.ID, "content": lesson.Content})
	}
	return &agent.ToolResult{
		Content: fmt.Sprintf("%d lesson(s)", len(all)),
		Payload: map[string]any{"lessons": summaries},
	}, nil
}

// DeleteLessonTool removes a stored lesson by ID.
type DeleteLessonTool struct {
	lessons *lessons.Store
}

func (t *DeleteLessonTool) Name() string { return "delete_lesson" }
func (t *DeleteLessonTool) Description() string {
	return "Delete a specific lesson by its ID. Use this when the user explicitly asks to remove a lesson."
}
func (t *DeleteLessonTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"lesson_id": {"type": "string"}},
		"required": ["lesson_id"],
		"additionalProperties": false
	}`)
}

func (t *DeleteLessonTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		LessonID string `json:"lesson_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	found, err := t.lessons.Delete(args.LessonID)
	if err != nil {
		return &agent.ToolResult{IsError: true, Content: fmt.Sprintf("delete lesson: %v", err)}, nil
	}
	if !found {
		return &agent.ToolResult{Content: "not found", Payload: map[string]any{"status": "not_found"}}, nil
	}
	return &agent.ToolResult{Content: "deleted", Payload: map[string]any{"status": "deleted", "id": args.LessonID}}, nil
}
