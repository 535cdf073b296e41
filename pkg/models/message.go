// Package models defines the shared data types passed between the
// interaction runtime, execution runtime, conversation log, duplicate
// detector, and trigger scheduler.
package models

import (
	"encoding/json"
	"time"
)

// Role indicates the author of a message or conversation entry.
type Role string

const (
	RoleUser           Role = "user"
	RoleAssistant      Role = "assistant"
	RoleSystem         Role = "system"
	RoleTool           Role = "tool"
	RoleExecutionAgent Role = "execution_agent"
)

// Message is a single turn exchanged with an LLM provider.
type Message struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id,omitempty"`
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	ToolCalls   []ToolCall     `json:"tool_calls,omitempty"`
	ToolResults []ToolResult   `json:"tool_results,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	TraceID     string         `json:"trace_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Attachment represents a file or media attachment on a message.
type Attachment struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	AgentName string          `json:"agent_name,omitempty"`
}

// ToolResult represents the outcome of a tool execution.
type ToolResult struct {
	ToolCallID  string         `json:"tool_call_id"`
	Content     string         `json:"content"`
	IsError     bool           `json:"is_error,omitempty"`
	Success     bool           `json:"success"`
	Payload     map[string]any `json:"payload,omitempty"`
	UserMessage string         `json:"user_message,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// EntryKind identifies the shape of a recorded conversation log line.
type EntryKind string

const (
	EntryUserMessage      EntryKind = "user_message"
	EntryAssistantReply   EntryKind = "alyn_reply"
	EntryExecutionMessage EntryKind = "execution_agent_message"
	EntryToolCall         EntryKind = "tool_call"
	EntryToolResult       EntryKind = "tool_result"
)

// ConversationEntry is one line of a conversation transcript: the
// interaction agent's log, or a single execution agent's log.
type ConversationEntry struct {
	Kind      EntryKind `json:"kind"`
	AgentName string    `json:"agent_name,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentRosterEntry is a single named execution agent tracked by the roster.
type AgentRosterEntry struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionResult is the outcome of one execution agent run.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Response string `json:"response"`
	Error   string `json:"error,omitempty"`
}

// TriggerRecord describes a scheduled wake-up owned by one execution agent.
type TriggerRecord struct {
	TriggerID      string    `json:"trigger_id"`
	AgentName      string    `json:"agent_name"`
	Payload        string    `json:"payload"`
	Status         string    `json:"status"`
	NextTrigger    time.Time `json:"next_trigger,omitempty"`
	StartTime      time.Time `json:"start_time,omitempty"`
	RecurrenceRule string    `json:"recurrence_rule,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MessageFingerprint is the deduplication key derived from a message:
// its content hash, the role that produced it, and when it was seen.
type MessageFingerprint struct {
	Hash      string    `json:"hash"`
	Role      Role      `json:"role"`
	SeenAt    time.Time `json:"seen_at"`
}
