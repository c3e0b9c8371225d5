package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/llm"
	"github.com/agentbus/agentbus/internal/mcptools"
)

// executor is one agent+model pairing: the provider connection, resolved
// model name, and bound tools. Safe for concurrent runs; all per-run state
// lives on the stack.
type executor struct {
	config   datum.AgentConfig
	provider llm.Provider
	model    string
	tools    []*mcptools.Tool
}

// run drives the tool loop: ask the model, execute any tool calls it makes,
// feed the results back, and stop when the model answers without tools or
// the iteration cap is hit.
func (e *executor) run(ctx context.Context, prompt string) (string, map[string]any, error) {
	messages := []llm.Message{{Role: "user", Content: prompt}}
	defs := e.toolDefs()

	toolCallCount := 0
	inputTokens := 0
	outputTokens := 0

	maxIter := e.config.MaxIterations
	for i := 0; i < maxIter; i++ {
		resp, err := e.provider.Chat(ctx, llm.Request{
			Model:    e.model,
			System:   e.config.SystemPrompt,
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			return "", nil, fmt.Errorf("chat with %s: %w", e.provider.Name(), err)
		}
		inputTokens += resp.InputTokens
		outputTokens += resp.OutputTokens

		if len(resp.ToolCalls) == 0 {
			return resp.Content, map[string]any{
				"model":         e.model,
				"iterations":    i + 1,
				"tool_calls":    toolCallCount,
				"input_tokens":  inputTokens,
				"output_tokens": outputTokens,
			}, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			toolCallCount++
			result := e.callTool(ctx, tc)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", nil, fmt.Errorf("agent %s exceeded %d iterations", e.config.Name, maxIter)
}

// callTool executes one tool call. Errors come back as text so the model can
// see what went wrong and recover.
func (e *executor) callTool(ctx context.Context, tc llm.ToolCall) string {
	for _, tool := range e.tools {
		if tool.Name != tc.Name {
			continue
		}
		out, err := tool.Call(ctx, tc.Arguments)
		if err != nil {
			slog.Warn("tool call failed", "agent", e.config.Name, "tool", tc.Name, "error", err)
			return fmt.Sprintf("Error: %v", err)
		}
		return out
	}
	slog.Warn("tool not bound to agent", "agent", e.config.Name, "tool", tc.Name)
	return fmt.Sprintf("Error: tool %q is not available", tc.Name)
}

func (e *executor) toolDefs() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(e.tools))
	for _, tool := range e.tools {
		properties := make(map[string]any, len(tool.Spec.Fields))
		var required []string
		for _, f := range tool.Spec.Fields {
			prop := map[string]any{"type": string(f.Kind)}
			if f.Description != "" {
				prop["description"] = f.Description
			}
			properties[f.Name] = prop
			if f.Required {
				required = append(required, f.Name)
			}
		}
		defs = append(defs, llm.ToolDef{
			Name:        tool.Name,
			Description: tool.Description,
			Properties:  properties,
			Required:    required,
		})
	}
	return defs
}
