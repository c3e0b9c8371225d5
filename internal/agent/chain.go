package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ChainResult is the outcome of a chain run: per-step results plus, on
// success, the accumulated context map rendered as JSON. A failed step
// aborts the chain and leaves later steps unrecorded.
type ChainResult struct {
	Success   bool     `json:"success"`
	ChainName string   `json:"chain_name"`
	Steps     []Result `json:"steps"`
	Output    string   `json:"output,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// RunChain executes the named chain sequentially. params seed the shared
// context; each step sees that context plus the outputs of all earlier steps
// as JSON appended to its task.
func (s *Service) RunChain(ctx context.Context, name string, params map[string]string) ChainResult {
	cfg, ok := s.library.Chain(name)
	if !ok {
		return ChainResult{
			ChainName: name,
			Error:     fmt.Sprintf("unknown chain %q", name),
		}
	}

	slog.Info("chain started", "chain", name, "steps", len(cfg.Steps))

	chainCtx := make(map[string]string, len(params))
	for k, v := range params {
		chainCtx[k] = v
	}

	result := ChainResult{ChainName: name}
	for i, step := range cfg.Steps {
		if step.Agent == "" {
			slog.Debug("chain step has no agent, skipping", "chain", name, "step", i)
			continue
		}

		prompt := stepPrompt(step.Task, chainCtx)
		stepResult := s.Run(ctx, step.Agent, prompt, "")
		result.Steps = append(result.Steps, stepResult)

		if !stepResult.Success {
			result.Error = fmt.Sprintf("step %d (%s) failed: %s", i, step.Agent, stepResult.Error)
			slog.Warn("chain aborted", "chain", name, "step", i, "agent", step.Agent)
			return result
		}

		chainCtx[fmt.Sprintf("step_%d_result", i)] = stepResult.Output
	}

	result.Success = true
	if blob, err := json.Marshal(chainCtx); err == nil {
		result.Output = string(blob)
	}
	slog.Info("chain completed", "chain", name)
	return result
}

// stepPrompt appends accumulated chain context to the step's task. The
// context rides along as JSON so steps can pick out what they need.
func stepPrompt(task string, chainCtx map[string]string) string {
	if len(chainCtx) == 0 {
		return task
	}
	blob, err := json.MarshalIndent(chainCtx, "", "  ")
	if err != nil {
		return task
	}
	return fmt.Sprintf("%s\n\nContext from previous steps:\n%s", task, blob)
}
