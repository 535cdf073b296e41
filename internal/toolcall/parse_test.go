package toolcall

import "testing"

func knownTools(names ...string) map[string]struct{} {
	return ToolNameSet(names)
}

func TestParse_ValidCall(t *testing.T) {
	calls := Parse([]RawCall{
		{ID: "1", Name: "send_message_to_user", Arguments: `{"message":"hi"}`},
	}, knownTools("send_message_to_user"))

	if len(calls) != 1 {
		t.Fatalf("len = %d, want 1", len(calls))
	}
	if calls[0].Invalid() {
		t.Fatalf("unexpected invalid reason: %s", calls[0].InvalidReason)
	}
	if calls[0].Name != "send_message_to_user" {
		t.Errorf("Name = %q", calls[0].Name)
	}
}

func TestParse_EmptyArguments(t *testing.T) {
	calls := Parse([]RawCall{{ID: "1", Name: "wait", Arguments: ""}}, knownTools("wait"))
	if len(calls) != 1 || calls[0].Invalid() {
		t.Fatalf("expected one valid call, got %+v", calls)
	}
	if string(calls[0].Arguments) != "{}" {
		t.Errorf("Arguments = %s, want {}", calls[0].Arguments)
	}
}

func TestParse_UnknownTool(t *testing.T) {
	calls := Parse([]RawCall{{ID: "1", Name: "delete_database", Arguments: "{}"}}, knownTools("wait"))
	if len(calls) != 1 || !calls[0].Invalid() {
		t.Fatalf("expected an invalid call, got %+v", calls)
	}
}

func TestParse_ConcatenatedToolNames(t *testing.T) {
	tools := knownTools("send_message_to_agent", "send_draft")
	calls := Parse([]RawCall{
		{ID: "1", Name: "send_message_to_agentsend_draft", Arguments: "{}"},
	}, tools)

	if len(calls) != 1 {
		t.Fatalf("len = %d, want 1", len(calls))
	}
	if !calls[0].Invalid() {
		t.Fatal("concatenated tool name should be flagged invalid")
	}
	if calls[0].Name != "send_message_to_agent" {
		t.Errorf("Name = %q, want first component", calls[0].Name)
	}
}

func TestParse_ConcatenatedWithSeparator(t *testing.T) {
	tools := knownTools("send_message_to_agent", "send_draft")
	calls := Parse([]RawCall{
		{ID: "1", Name: "send_message_to_agent_send_draft", Arguments: "{}"},
	}, tools)

	if len(calls) != 1 || !calls[0].Invalid() {
		t.Fatalf("expected concatenation with separator to be flagged, got %+v", calls)
	}
}

func TestParse_SingleToolNotTreatedAsConcatenation(t *testing.T) {
	tools := knownTools("gmail_send_email")
	calls := Parse([]RawCall{{ID: "1", Name: "gmail_send_email", Arguments: "{}"}}, tools)
	if len(calls) != 1 || calls[0].Invalid() {
		t.Fatalf("single known tool should not be treated as a concatenation: %+v", calls)
	}
}

func TestParse_InvalidJSONArguments(t *testing.T) {
	calls := Parse([]RawCall{{ID: "1", Name: "wait", Arguments: "{not json"}}, knownTools("wait"))
	if len(calls) != 1 || !calls[0].Invalid() {
		t.Fatalf("expected invalid JSON to be flagged, got %+v", calls)
	}
}

func TestParse_SkipsNamelessCalls(t *testing.T) {
	calls := Parse([]RawCall{{ID: "1", Name: "", Arguments: "{}"}}, knownTools("wait"))
	if len(calls) != 0 {
		t.Fatalf("len = %d, want 0", len(calls))
	}
}
