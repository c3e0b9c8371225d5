package mcptools

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const datumSuffix = ".mcp.toml"

// ServerConfig describes one remote MCP tool server: either a subprocess
// spoken to over stdio or a streamable HTTP endpoint.
type ServerConfig struct {
	Name      string
	Transport string // "stdio" or "http"
	URL       string
	Command   string
	Args      []string
}

type serverDatum struct {
	B00t struct {
		Name string `toml:"name"`
		MCP  struct {
			Stdio []struct {
				Command string   `toml:"command"`
				Args    []string `toml:"args"`
			} `toml:"stdio"`
			HTTP []struct {
				URL string `toml:"url"`
			} `toml:"http"`
		} `toml:"mcp"`
	} `toml:"b00t"`
}

// ParseServerDatums globs "*.mcp.toml" under dir and extracts every declared
// tool server. A malformed datum file is logged and skipped.
func ParseServerDatums(dir string) ([]ServerConfig, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+datumSuffix))
	if err != nil {
		return nil, fmt.Errorf("glob mcp datums: %w", err)
	}

	var servers []ServerConfig
	for _, path := range matches {
		found, err := parseDatumFile(path)
		if err != nil {
			slog.Warn("skipping malformed mcp datum", "path", path, "error", err)
			continue
		}
		servers = append(servers, found...)
	}
	return servers, nil
}

func parseDatumFile(path string) ([]ServerConfig, error) {
	var doc serverDatum
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, err
	}

	name := doc.B00t.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), datumSuffix)
	}

	var servers []ServerConfig
	for i, stdio := range doc.B00t.MCP.Stdio {
		if stdio.Command == "" {
			continue
		}
		srvName := name
		if len(doc.B00t.MCP.Stdio) > 1 {
			srvName = fmt.Sprintf("%s-%d", name, i)
		}
		servers = append(servers, ServerConfig{
			Name:      srvName,
			Transport: "stdio",
			Command:   stdio.Command,
			Args:      stdio.Args,
		})
	}

	for i, http := range doc.B00t.MCP.HTTP {
		if http.URL == "" {
			continue
		}
		srvName := name + "-http"
		if len(doc.B00t.MCP.HTTP) > 1 {
			srvName = fmt.Sprintf("%s-http-%d", name, i)
		}
		servers = append(servers, ServerConfig{
			Name:      srvName,
			Transport: "http",
			URL:       http.URL,
		})
	}

	return servers, nil
}
