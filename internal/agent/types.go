package agent

import (
	"context"

	"github.com/haasonsaas/nexus/pkg/models"
)

// Model describes one LLM model offered by a provider.
type Model struct {
	ID             string
	Name           string
	ContextSize    int
	SupportsVision bool
}

// CompletionMessage is one turn sent to an LLM provider.
type CompletionMessage struct {
	Role        string
	Content     string
	Attachments []models.Attachment
	ToolCalls   []models.ToolCall
	ToolResults []models.ToolResult
}

// CompletionRequest is a single (non-streamed, from the caller's point of
// view) LLM call: a model, a message history, and the tools on offer.
type CompletionRequest struct {
	Model                string
	System               string
	Messages             []CompletionMessage
	Tools                []Tool
	MaxTokens            int
	Temperature          float64
	EnableThinking       bool
	ThinkingBudgetTokens int
}

// CompletionChunk is one increment of a provider's response stream. Every
// provider in this module streams internally (that's how their SDKs
// work), but both agent runtimes drain the channel fully before acting,
// since the orchestrator itself never relies on streaming.
type CompletionChunk struct {
	Text          string
	Thinking      string
	ThinkingStart bool
	ThinkingEnd   bool
	ToolCall      *models.ToolCall
	Error         error
	Done          bool
	InputTokens   int
	OutputTokens  int
}

// Provider is an LLM backend capable of producing completions.
type Provider interface {
	Name() string
	Models() []Model
	SupportsTools() bool
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
}
