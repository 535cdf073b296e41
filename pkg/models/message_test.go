package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		constant Role
		expected string
	}{
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleSystem, "system"},
		{RoleTool, "tool"},
		{RoleExecutionAgent, "execution_agent"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	original := Message{
		ID:          "msg-123",
		SessionID:   "session-456",
		Role:        RoleAssistant,
		Content:     "Hello!",
		Attachments: []Attachment{{ID: "att-1", Type: "image", URL: "http://example.com/img.png"}},
		ToolCalls:   []ToolCall{{ID: "tc-1", Name: "search", Input: json.RawMessage(`{"q":"test"}`)}},
		ToolResults: []ToolResult{{ToolCallID: "tc-1", Content: "result", Success: true}},
		Metadata:    map[string]any{"source": "test"},
		CreatedAt:   now,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.ID != original.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, original.ID)
	}
	if len(decoded.Attachments) != 1 {
		t.Errorf("Attachments length = %d, want 1", len(decoded.Attachments))
	}
	if len(decoded.ToolCalls) != 1 {
		t.Errorf("ToolCalls length = %d, want 1", len(decoded.ToolCalls))
	}
	if len(decoded.ToolResults) != 1 {
		t.Errorf("ToolResults length = %d, want 1", len(decoded.ToolResults))
	}
}

func TestToolResult_Struct(t *testing.T) {
	tr := ToolResult{ToolCallID: "tc-123", Content: "ok", Success: true}
	if tr.IsError {
		t.Error("IsError should default to false")
	}

	trError := ToolResult{ToolCallID: "tc-456", Error: "boom", Success: false, IsError: true}
	if !trError.IsError {
		t.Error("IsError should be true")
	}
	if trError.Success {
		t.Error("Success should be false on failure")
	}
}

func TestTriggerRecord_Struct(t *testing.T) {
	now := time.Now()
	rec := TriggerRecord{
		TriggerID:      "trig-1",
		AgentName:      "gym-coach",
		Payload:        "time to stretch",
		NextTrigger:    now.Add(time.Hour),
		RecurrenceRule: "FREQ=DAILY",
		Timezone:       "America/Los_Angeles",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rec.AgentName != "gym-coach" {
		t.Errorf("AgentName = %q, want %q", rec.AgentName, "gym-coach")
	}
	if rec.RecurrenceRule == "" {
		t.Error("RecurrenceRule should be set")
	}
}

func TestAgentRosterEntry_Struct(t *testing.T) {
	entry := AgentRosterEntry{Name: "gym-coach", CreatedAt: time.Now()}
	if entry.Name != "gym-coach" {
		t.Errorf("Name = %q, want %q", entry.Name, "gym-coach")
	}
}
