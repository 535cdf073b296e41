package trigger

import (
	"context"
	"encoding/json"
	"testing"
)

func TestCreateTriggerTool_CreatesActiveTrigger(t *testing.T) {
	store := NewMemoryStore()
	tool := NewCreateTriggerTool("email-agent", store)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"payload":"check inbox"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if _, ok := result.Payload["trigger_id"]; !ok {
		t.Fatal("expected trigger_id in payload")
	}
}

func TestUpdateTriggerTool_RejectsUnknownAgent(t *testing.T) {
	store := NewMemoryStore()
	create := NewCreateTriggerTool("email-agent", store)
	created, err := create.Execute(context.Background(), json.RawMessage(`{"payload":"check inbox"}`))
	if err != nil {
		t.Fatal(err)
	}
	triggerID := created.Payload["trigger_id"].(string)

	update := NewUpdateTriggerTool("other-agent", store)
	args, _ := json.Marshal(map[string]string{"trigger_id": triggerID, "status": "paused"})
	result, err := update.Execute(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected error when updating another agent's trigger")
	}
}

func TestListTriggersTool_ReturnsOwnTriggersOnly(t *testing.T) {
	store := NewMemoryStore()
	createA := NewCreateTriggerTool("agent-a", store)
	createB := NewCreateTriggerTool("agent-b", store)
	if _, err := createA.Execute(context.Background(), json.RawMessage(`{"payload":"a1"}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := createB.Execute(context.Background(), json.RawMessage(`{"payload":"b1"}`)); err != nil {
		t.Fatal(err)
	}

	list := NewListTriggersTool("agent-a", store)
	result, err := list.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	triggers := result.Payload["triggers"].([]map[string]any)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger for agent-a, got %d", len(triggers))
	}
}
