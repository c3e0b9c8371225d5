// Package agent runs tool-calling agents from their datum presets: single
// runs, pool broadcasts, and sequential chains. Results are values, not
// errors; a failed run is still a result the caller can publish.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/llm"
	"github.com/agentbus/agentbus/internal/mcptools"
)

// ToolSource resolves preset tool names to invocable tools.
type ToolSource interface {
	ByNames(names []string) []*mcptools.Tool
}

// ProviderResolver maps a model identifier to a chat provider and the model
// name to send on the wire.
type ProviderResolver interface {
	ProviderFor(model string) (llm.Provider, string, error)
}

// Result is the outcome of one agent run. Success=false carries the failure
// in Error; Output holds the final text either way.
type Result struct {
	Success   bool           `json:"success"`
	AgentName string         `json:"agent_name"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Message   string         `json:"message,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Service owns the executor cache. Executors are built lazily per
// agent+model pair and reused across runs.
type Service struct {
	library *datum.Library
	tools   ToolSource
	llms    ProviderResolver

	mu        sync.Mutex
	executors map[string]*executor
}

func NewService(library *datum.Library, tools ToolSource, llms ProviderResolver) *Service {
	return &Service{
		library:   library,
		tools:     tools,
		llms:      llms,
		executors: make(map[string]*executor),
	}
}

// Run executes the named agent with the prompt. modelOverride, when
// non-empty, replaces the preset's model for this executor. Run never
// returns an error; failures are reported in the result.
func (s *Service) Run(ctx context.Context, name, prompt, modelOverride string) Result {
	exec, err := s.executorFor(name, modelOverride)
	if err != nil {
		return failure(name, err)
	}

	timeout := time.Duration(exec.config.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	output, meta, err := exec.run(runCtx, prompt)
	elapsed := time.Since(started)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			slog.Warn("agent run timed out", "agent", name, "timeout", timeout)
			return failure(name, fmt.Errorf("agent execution timed out after %s", timeout))
		}
		slog.Error("agent run failed", "agent", name, "error", err)
		return failure(name, err)
	}

	meta["elapsed_ms"] = elapsed.Milliseconds()
	slog.Info("agent run completed", "agent", name, "elapsed", elapsed)
	return Result{
		Success:   true,
		AgentName: name,
		Output:    output,
		Message:   fmt.Sprintf("agent %s completed", name),
		Metadata:  meta,
	}
}

// Delete evicts every cached executor for the named agent, forcing a rebuild
// on next use. Reports whether anything was evicted.
func (s *Service) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := false
	for key, exec := range s.executors {
		if exec.config.Name == name {
			delete(s.executors, key)
			deleted = true
		}
	}
	return deleted
}

// Active returns the cache keys of all live executors, sorted.
func (s *Service) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.executors))
	for key := range s.executors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Library exposes the preset library the service runs from.
func (s *Service) Library() *datum.Library {
	return s.library
}

func (s *Service) executorFor(name, modelOverride string) (*executor, error) {
	cfg, ok := s.library.Agent(name)
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", name)
	}

	model := cfg.Model
	if modelOverride != "" {
		model = modelOverride
	}
	key := name + ":" + model

	s.mu.Lock()
	defer s.mu.Unlock()

	if exec, ok := s.executors[key]; ok {
		return exec, nil
	}

	provider, resolved, err := s.llms.ProviderFor(model)
	if err != nil {
		return nil, fmt.Errorf("build agent %q: %w", name, err)
	}

	var tools []*mcptools.Tool
	if s.tools != nil && len(cfg.Tools) > 0 {
		tools = s.tools.ByNames(cfg.Tools)
	}

	exec := &executor{
		config:   cfg,
		provider: provider,
		model:    resolved,
		tools:    tools,
	}
	s.executors[key] = exec
	slog.Debug("executor created", "agent", name, "model", model, "tools", len(tools))
	return exec, nil
}

func failure(name string, err error) Result {
	return Result{
		Success:   false,
		AgentName: name,
		Error:     err.Error(),
		Message:   fmt.Sprintf("agent %s failed", name),
	}
}
