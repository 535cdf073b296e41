package interaction

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/convlog"
	"github.com/haasonsaas/nexus/internal/dedupe"
	"github.com/haasonsaas/nexus/internal/lessons"
	"github.com/haasonsaas/nexus/pkg/models"
)

type scriptedProvider struct {
	responses []agent.CompletionChunk
	calls     int
	failIfCalled bool
	t         *testing.T
}

func (p *scriptedProvider) Name() string         { return "scripted" }
func (p *scriptedProvider) Models() []agent.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool   { return true }

func (p *scriptedProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.failIfCalled {
		p.t.Fatal("provider should not have been called")
	}
	idx := p.calls
	p.calls++
	ch := make(chan *agent.CompletionChunk, 1)
	if idx < len(p.responses) {
		resp := p.responses[idx]
		ch <- &resp
	} else {
		ch <- &agent.CompletionChunk{Text: "done"}
	}
	close(ch)
	return ch, nil
}

type fakeRoster struct {
	mu    sync.Mutex
	names []string
}

func (r *fakeRoster) Add(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return nil
		}
	}
	r.names = append(r.names, name)
	return nil
}
func (r *fakeRoster) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}
func (r *fakeRoster) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
func (r *fakeRoster) Remove(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeJournals struct {
	mu       sync.Mutex
	requests map[string][]string
	cleared  map[string]bool
}

func newFakeJournals() *fakeJournals {
	return &fakeJournals{requests: make(map[string][]string), cleared: make(map[string]bool)}
}
func (j *fakeJournals) RecordRequest(agentName, instructions string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.requests[agentName] = append(j.requests[agentName], instructions)
	return nil
}
func (j *fakeJournals) Clear(agentName string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cleared[agentName] = true
	return nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	dispatched []string
}

func (d *fakeDispatcher) Dispatch(agentName, instructions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, agentName)
}

func newTestRuntime(t *testing.T, provider agent.Provider, tools *agent.ToolRegistry, roster Roster, journals AgentJournals, dispatcher AgentDispatcher, lessonsStore *lessons.Store) *Runtime {
	t.Helper()
	log, err := convlog.New(filepath.Join(t.TempDir(), "conversation.log"))
	if err != nil {
		t.Fatal(err)
	}
	convLog := convlog.NewConversationLog(log)
	if tools == nil {
		tools = agent.NewToolRegistry()
	}
	rt := New(provider, "test-model", tools, convLog, roster, journals, dispatcher, lessonsStore, dedupe.New())
	return rt
}

func toolCallChunk(id, name string, args map[string]any) agent.CompletionChunk {
	data, _ := json.Marshal(args)
	return agent.CompletionChunk{ToolCall: &models.ToolCall{ID: id, Name: name, Input: data}}
}

func TestExecute_NoToolCallsRecordsReply(t *testing.T) {
	provider := &scriptedProvider{responses: []agent.CompletionChunk{{Text: "Hi there!"}}}
	rt := newTestRuntime(t, provider, nil, &fakeRoster{}, nil, nil, nil)

	result := rt.Execute(context.Background(), "hello")
	if !result.Success || result.Response != "Hi there!" {
		t.Fatalf("result = %+v", result)
	}
}

func TestExecute_DuplicateUserMessageIsSkipped(t *testing.T) {
	provider := &scriptedProvider{responses: []agent.CompletionChunk{{Text: "reply"}}, t: t}
	rt := newTestRuntime(t, provider, nil, &fakeRoster{}, nil, nil, nil)

	first := rt.Execute(context.Background(), "remind me to call mom")
	if !first.Success {
		t.Fatalf("first call failed: %+v", first)
	}

	provider.failIfCalled = true
	second := rt.Execute(context.Background(), "remind me to call mom")
	if !second.Success || second.Response != "" {
		t.Fatalf("expected duplicate to be swallowed, got %+v", second)
	}
}

func TestExecute_SendMessageToAgent_DispatchesAndRegistersRoster(t *testing.T) {
	tools := agent.NewToolRegistry()
	roster := &fakeRoster{}
	journals := newFakeJournals()
	dispatcher := &fakeDispatcher{}
	rt := newTestRuntime(t, nil, tools, roster, journals, dispatcher, nil)
	for _, tool := range DefaultTools(rt) {
		_ = tools.Register(tool)
	}

	handoff := toolCallChunk("1", "send_message_to_agent", map[string]any{
		"agent_name":   "Email to John",
		"instructions": "tell John the meeting moved to 3pm",
	})
	rt.Provider = &scriptedProvider{responses: []agent.CompletionChunk{handoff, {Text: "Done, I notified the agent."}}}

	result := rt.Execute(context.Background(), "email john that the meeting moved")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if !roster.Has("Email to John") {
		t.Fatal("expected agent to be added to the roster")
	}
	if len(dispatcher.dispatched) != 1 || dispatcher.dispatched[0] != "Email to John" {
		t.Fatalf("dispatched = %v", dispatcher.dispatched)
	}
	if result.ExecutionAgentsUsed != 1 {
		t.Fatalf("execution agents used = %d, want 1", result.ExecutionAgentsUsed)
	}
}

func TestExecute_SendMessageToUser_BecomesFinalResponse(t *testing.T) {
	tools := agent.NewToolRegistry()
	rt := newTestRuntime(t, nil, tools, &fakeRoster{}, nil, nil, nil)
	for _, tool := range DefaultTools(rt) {
		_ = tools.Register(tool)
	}

	call := toolCallChunk("1", "send_message_to_user", map[string]any{"message": "Your flight is confirmed."})
	rt.Provider = &scriptedProvider{responses: []agent.CompletionChunk{call, {Text: "(internal note, not user-visible)"}}}

	result := rt.Execute(context.Background(), "did you confirm my flight?")
	if !result.Success || result.Response != "Your flight is confirmed." {
		t.Fatalf("result = %+v", result)
	}
}

func TestHandleAgentMessage_NotificationShortCircuitsWithoutLLMCall(t *testing.T) {
	provider := &scriptedProvider{t: t, failIfCalled: true}
	rt := newTestRuntime(t, provider, nil, &fakeRoster{}, nil, nil, nil)

	result := rt.HandleAgentMessage(context.Background(), "[SUCCESS] Rappels personnels: Take out the trash")
	if !result.Success || result.Response != "Take out the trash" {
		t.Fatalf("result = %+v", result)
	}
}

func TestExecute_ExceedsIterationLimitFails(t *testing.T) {
	tools := agent.NewToolRegistry()
	rt := newTestRuntime(t, nil, tools, &fakeRoster{}, nil, nil, nil)
	for _, tool := range DefaultTools(rt) {
		_ = tools.Register(tool)
	}

	responses := make([]agent.CompletionChunk, 0, MaxToolIterations+1)
	for i := 0; i < MaxToolIterations+1; i++ {
		responses = append(responses, toolCallChunk("1", "wait", map[string]any{"reason": "still thinking"}))
	}
	rt.Provider = &scriptedProvider{responses: responses}

	result := rt.Execute(context.Background(), "do something open-ended")
	if result.Success {
		t.Fatal("expected failure after exceeding the iteration limit")
	}
}

func TestAddLessonThenGetLessons_RoundTrips(t *testing.T) {
	store, err := lessons.Open(filepath.Join(t.TempDir(), "lessons.json"))
	if err != nil {
		t.Fatal(err)
	}
	tools := agent.NewToolRegistry()
	rt := newTestRuntime(t, nil, tools, &fakeRoster{}, nil, nil, store)
	for _, tool := range DefaultTools(rt) {
		_ = tools.Register(tool)
	}

	addCall := toolCallChunk("1", "add_lesson", map[string]any{
		"category": "email", "problem": "sent duplicate drafts", "solution": "check the log before sending",
	})
	getCall := toolCallChunk("2", "get_lessons", map[string]any{})
	rt.Provider = &scriptedProvider{responses: []agent.CompletionChunk{addCall, getCall, {Text: "Noted, and here are your lessons."}}}

	result := rt.Execute(context.Background(), "remember not to send duplicate drafts, then show me lessons")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if len(store.All()) != 1 {
		t.Fatalf("expected 1 stored lesson, got %d", len(store.All()))
	}
}
