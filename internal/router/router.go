// Package router dispatches inbound slash-command messages to agent and
// chain operations and republishes results on the status channel. One bad
// message never takes down the listener: malformed input is logged and
// dropped, handler failures become error payloads.
package router

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/agentbus/agentbus/internal/agent"
	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/jobs"
	"github.com/agentbus/agentbus/internal/redisbus"
	"github.com/agentbus/agentbus/internal/store"
)

// Runner is the agent service surface the router drives.
type Runner interface {
	Run(ctx context.Context, name, prompt, modelOverride string) agent.Result
	Broadcast(ctx context.Context, prompt, sender, modelOverride string) []agent.Result
	RunChain(ctx context.Context, name string, params map[string]string) agent.ChainResult
	Delete(name string) bool
	Active() []string
}

// Publisher pushes results onto the status channel.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any) error
}

// Enqueuer defers runs to the job queue when a command asks for it.
type Enqueuer interface {
	EnqueueAgentRun(ctx context.Context, p jobs.AgentRunPayload) (string, error)
	EnqueueChainRun(ctx context.Context, p jobs.ChainRunPayload) (string, error)
}

// History records run outcomes. Nil-able; the router works without it.
type History interface {
	CreateRun(kind, name, input, requestedBy string) (string, error)
	CompleteRun(id, output, runErr, metadata string) error
}

type Router struct {
	runner  Runner
	library *datum.Library
	pub     Publisher
	queue   Enqueuer
	history History
	channel string
}

func New(runner Runner, library *datum.Library, pub Publisher, queue Enqueuer, history History, channel string) *Router {
	return &Router{
		runner:  runner,
		library: library,
		pub:     pub,
		queue:   queue,
		history: history,
		channel: channel,
	}
}

// Handle processes one inbound message. It never returns an error: failures
// are logged or published, and the message is done with either way.
func (r *Router) Handle(ctx context.Context, data []byte) {
	msg, err := parseMessage(data)
	if err != nil {
		slog.Error("dropping malformed message", "error", err)
		return
	}

	slog.Info("command received", "verb", msg.Verb, "from", msg.AgentID)

	switch msg.Verb {
	case "agent":
		r.handleAgent(ctx, msg)
	case "chain":
		r.handleChain(ctx, msg)
	default:
		slog.Warn("unknown verb", "verb", msg.Verb)
	}
}

func (r *Router) handleAgent(ctx context.Context, msg *Message) {
	action := msg.Params["action"]
	if action == "" {
		action = "run"
	}

	switch action {
	case "run", "create":
		name := msg.param("name", "agent")
		if name == "" {
			slog.Error("agent command missing name", "action", action)
			return
		}
		input := msg.param("input")
		if input == "" {
			input = msg.Content
		}
		model := msg.Params["model"]

		if r.queued(msg) {
			r.enqueueAgent(ctx, name, input, model, msg.AgentID)
			return
		}

		runID := r.openRun(store.RunKindAgent, name, input, msg.AgentID)
		result := r.runner.Run(ctx, name, input, model)
		r.closeRun(runID, result.Output, result.Error, result.Metadata)
		r.publish(ctx, result)

	case "broadcast":
		prompt := msg.param("message")
		if prompt == "" {
			prompt = msg.Content
		}
		sender := msg.Params["from"]

		runID := r.openRun(store.RunKindBroadcast, "broadcast", prompt, msg.AgentID)
		results := r.runner.Broadcast(ctx, prompt, sender, "")
		if out, err := json.Marshal(results); err == nil {
			r.closeRun(runID, string(out), "", nil)
		}
		r.publish(ctx, map[string]any{
			"action":  "broadcast",
			"results": results,
		})

	case "status":
		r.publish(ctx, map[string]any{
			"available_agents": r.library.AgentNames(),
			"active_agents":    r.runner.Active(),
		})

	case "delete":
		name := msg.Params["name"]
		if name == "" {
			slog.Error("agent delete missing name")
			return
		}
		deleted := r.runner.Delete(name)
		slog.Info("agent deleted", "agent", name, "evicted", deleted)
		r.publish(ctx, map[string]any{
			"action":  "delete",
			"agent":   name,
			"deleted": deleted,
		})

	default:
		slog.Warn("unknown agent action", "action", action)
	}
}

func (r *Router) handleChain(ctx context.Context, msg *Message) {
	action := msg.Params["action"]
	if action == "" {
		action = "run"
	}

	switch action {
	case "run":
		name := msg.param("name", "chain")
		if name == "" {
			slog.Error("chain command missing name")
			return
		}
		params := chainParams(msg.Params)

		if r.queued(msg) {
			r.enqueueChain(ctx, name, params, msg.AgentID)
			return
		}

		runID := r.openRun(store.RunKindChain, name, msg.Content, msg.AgentID)
		result := r.runner.RunChain(ctx, name, params)
		r.closeRun(runID, result.Output, result.Error, nil)
		r.publish(ctx, result)

	case "status":
		r.publish(ctx, map[string]any{
			"available_chains": r.library.ChainNames(),
		})

	default:
		slog.Warn("unknown chain action", "action", action)
	}
}

func (r *Router) enqueueAgent(ctx context.Context, name, input, model, requestedBy string) {
	runID := r.openRun(store.RunKindAgent, name, input, requestedBy)
	taskID, err := r.queue.EnqueueAgentRun(ctx, jobs.AgentRunPayload{
		Agent:       name,
		Prompt:      input,
		Model:       model,
		Channel:     r.channel,
		RunID:       runID,
		RequestedBy: requestedBy,
	})
	if err != nil {
		r.closeRun(runID, "", err.Error(), nil)
		r.publish(ctx, map[string]any{"error": err.Error()})
		return
	}
	r.publish(ctx, map[string]any{
		"status":  "queued",
		"agent":   name,
		"task_id": taskID,
		"run_id":  runID,
	})
}

func (r *Router) enqueueChain(ctx context.Context, name string, params map[string]string, requestedBy string) {
	runID := r.openRun(store.RunKindChain, name, "", requestedBy)
	taskID, err := r.queue.EnqueueChainRun(ctx, jobs.ChainRunPayload{
		Chain:       name,
		Params:      params,
		Channel:     r.channel,
		RunID:       runID,
		RequestedBy: requestedBy,
	})
	if err != nil {
		r.closeRun(runID, "", err.Error(), nil)
		r.publish(ctx, map[string]any{"error": err.Error()})
		return
	}
	r.publish(ctx, map[string]any{
		"status":  "queued",
		"chain":   name,
		"task_id": taskID,
		"run_id":  runID,
	})
}

// queued reports whether the command asked to run through the job queue.
// Only honored when a queue is wired.
func (r *Router) queued(msg *Message) bool {
	return r.queue != nil && msg.Params["queue"] == "true"
}

func (r *Router) publish(ctx context.Context, result any) {
	if err := r.pub.PublishJSON(ctx, redisbus.StatusChannel(r.channel), result); err != nil {
		slog.Error("publish result failed", "error", err)
	}
}

func (r *Router) openRun(kind, name, input, requestedBy string) string {
	if r.history == nil {
		return ""
	}
	id, err := r.history.CreateRun(kind, name, input, requestedBy)
	if err != nil {
		slog.Error("create run record failed", "kind", kind, "name", name, "error", err)
		return ""
	}
	return id
}

func (r *Router) closeRun(id, output, runErr string, metadata map[string]any) {
	if r.history == nil || id == "" {
		return
	}
	meta := ""
	if metadata != nil {
		if blob, err := json.Marshal(metadata); err == nil {
			meta = string(blob)
		}
	}
	if err := r.history.CompleteRun(id, output, runErr, meta); err != nil {
		slog.Error("complete run record failed", "run_id", id, "error", err)
	}
}

// chainParams strips the routing keys, leaving the parameters the chain
// itself sees.
func chainParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch k {
		case "action", "name", "chain", "queue":
			continue
		}
		out[k] = v
	}
	return out
}
