// Package llm abstracts the chat-completion providers agents run on.
package llm

import "context"

type Message struct {
	Role       string // "user", "assistant" or "tool"
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDef is a tool offered to the model, carrying its JSON Schema pieces.
type ToolDef struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDef
	MaxTokens   int
	Temperature float64
}

type Response struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
}

type Provider interface {
	Name() string
	Chat(ctx context.Context, req Request) (*Response, error)
}
