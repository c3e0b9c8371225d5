package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCaller is the slice of the MCP client a wrapped tool needs.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tool is a remote MCP tool wrapped as a locally invocable unit. Input
// validation comes from the server's declared schema.
type Tool struct {
	Name        string
	Description string
	Server      string
	Spec        InputSpec

	caller ToolCaller
}

// NewTool wraps a remote tool definition. The caller is the connection the
// tool will be invoked over.
func NewTool(server string, t mcp.Tool, caller ToolCaller) *Tool {
	desc := t.Description
	if desc == "" {
		desc = fmt.Sprintf("Tool from %s", server)
	}
	return &Tool{
		Name:        t.Name,
		Description: desc,
		Server:      server,
		Spec:        SpecFromSchema(t.InputSchema),
		caller:      caller,
	}
}

// Call validates args against the tool's input spec, invokes the remote
// tool, and returns its text content blocks joined by newlines.
func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := t.Spec.Validate(args); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", t.Name, err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.Name
	req.Params.Arguments = args

	result, err := t.caller.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", t.Name, err)
	}

	var parts []string
	for _, block := range result.Content {
		if tc, ok := mcp.AsTextContent(block); ok {
			parts = append(parts, tc.Text)
		} else {
			parts = append(parts, fmt.Sprintf("%v", block))
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return "", fmt.Errorf("tool %s failed: %s", t.Name, text)
	}
	return text, nil
}
