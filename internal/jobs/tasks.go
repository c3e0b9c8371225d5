// Package jobs queues agent and chain runs through asynq so slow executions
// happen off the command listener's goroutine and survive restarts.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeAgentRun = "agent:run"
	TypeChainRun = "chain:run"
)

// AgentRunPayload carries one queued agent invocation.
type AgentRunPayload struct {
	Agent       string `json:"agent"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model,omitempty"`
	Channel     string `json:"channel"`
	RunID       string `json:"run_id,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ChainRunPayload carries one queued chain invocation.
type ChainRunPayload struct {
	Chain       string            `json:"chain"`
	Params      map[string]string `json:"params,omitempty"`
	Channel     string            `json:"channel"`
	RunID       string            `json:"run_id,omitempty"`
	RequestedBy string            `json:"requested_by,omitempty"`
}

func NewAgentRunTask(p AgentRunPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal agent run payload: %w", err)
	}
	return asynq.NewTask(TypeAgentRun, payload), nil
}

func NewChainRunTask(p ChainRunPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal chain run payload: %w", err)
	}
	return asynq.NewTask(TypeChainRun, payload), nil
}
