package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Discovery connects to every MCP server declared in the datum directory,
// lists the tools each exposes, and wraps them for local invocation. Servers
// are rebuilt on every discovery pass; nothing is persisted.
type Discovery struct {
	servers []ServerConfig
	tools   []*Tool
	clients []*client.Client
}

func NewDiscovery() *Discovery {
	return &Discovery{}
}

// Initialize parses the MCP datums under dir and connects to each declared
// server. A server that fails to connect is skipped with a warning; it does
// not abort discovery of the remaining servers.
func (d *Discovery) Initialize(ctx context.Context, dir string) error {
	servers, err := ParseServerDatums(dir)
	if err != nil {
		return err
	}
	d.servers = servers
	slog.Info("mcp servers discovered", "count", len(servers))

	for _, srv := range servers {
		if err := d.connect(ctx, srv); err != nil {
			slog.Warn("failed to connect to mcp server", "server", srv.Name, "error", err)
			continue
		}
	}

	slog.Info("mcp tools available", "count", len(d.tools))
	return nil
}

func (d *Discovery) connect(ctx context.Context, srv ServerConfig) error {
	var (
		c   *client.Client
		err error
	)

	switch srv.Transport {
	case "stdio":
		c, err = client.NewStdioMCPClient(srv.Command, os.Environ(), srv.Args...)
	case "http":
		c, err = client.NewStreamableHttpClient(srv.URL)
	default:
		return fmt.Errorf("unsupported transport %q", srv.Transport)
	}
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		c.Close()
		return fmt.Errorf("start transport: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agentbus",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	d.clients = append(d.clients, c)
	for _, t := range listed.Tools {
		d.tools = append(d.tools, NewTool(srv.Name, t, c))
	}

	slog.Info("mcp server connected", "server", srv.Name, "tools", len(listed.Tools))
	return nil
}

// All returns every discovered tool.
func (d *Discovery) All() []*Tool {
	return d.tools
}

// Servers returns the parsed server descriptors from the last discovery pass.
func (d *Discovery) Servers() []ServerConfig {
	return d.servers
}

// ByNames resolves tool names to tools. Exact name match takes precedence;
// otherwise the name is treated as a server-level prefix and every tool whose
// name starts with it matches (e.g. "crawl4ai" matches "crawl4ai_crawl").
func (d *Discovery) ByNames(names []string) []*Tool {
	var matched []*Tool
	for _, name := range names {
		var exact []*Tool
		for _, t := range d.tools {
			if t.Name == name {
				exact = append(exact, t)
			}
		}
		if len(exact) > 0 {
			matched = append(matched, exact...)
			continue
		}
		for _, t := range d.tools {
			if strings.HasPrefix(t.Name, name) {
				matched = append(matched, t)
			}
		}
	}
	return matched
}

// Shutdown closes all server connections.
func (d *Discovery) Shutdown() {
	for _, c := range d.clients {
		if err := c.Close(); err != nil {
			slog.Warn("error closing mcp client", "error", err)
		}
	}
	d.clients = nil
	d.tools = nil
}
