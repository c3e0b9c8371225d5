package router

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentbus/agentbus/internal/agent"
	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/jobs"
)

type fakeRunner struct {
	runs       []string
	lastPrompt string
	lastModel  string
	broadcasts int
	lastSender string
	chains     []string
	lastParams map[string]string
	deleted    []string
}

func (f *fakeRunner) Run(ctx context.Context, name, prompt, modelOverride string) agent.Result {
	f.runs = append(f.runs, name)
	f.lastPrompt, f.lastModel = prompt, modelOverride
	return agent.Result{Success: true, AgentName: name, Output: "ok"}
}

func (f *fakeRunner) Broadcast(ctx context.Context, prompt, sender, modelOverride string) []agent.Result {
	f.broadcasts++
	f.lastPrompt, f.lastSender = prompt, sender
	return []agent.Result{
		{Success: true, AgentName: "researcher"},
		{Success: false, AgentName: "writer", Error: "boom"},
	}
}

func (f *fakeRunner) RunChain(ctx context.Context, name string, params map[string]string) agent.ChainResult {
	f.chains = append(f.chains, name)
	f.lastParams = params
	return agent.ChainResult{Success: true, ChainName: name, Output: "chained"}
}

func (f *fakeRunner) Delete(name string) bool {
	f.deleted = append(f.deleted, name)
	return true
}

func (f *fakeRunner) Active() []string {
	return []string{"researcher:anthropic/claude-sonnet-4"}
}

type fakePublisher struct {
	channels []string
	payloads []map[string]any
}

func (f *fakePublisher) PublishJSON(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeQueue struct {
	agentRuns []jobs.AgentRunPayload
	chainRuns []jobs.ChainRunPayload
	err       error
}

func (f *fakeQueue) EnqueueAgentRun(ctx context.Context, p jobs.AgentRunPayload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.agentRuns = append(f.agentRuns, p)
	return "task-1", nil
}

func (f *fakeQueue) EnqueueChainRun(ctx context.Context, p jobs.ChainRunPayload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.chainRuns = append(f.chainRuns, p)
	return "task-2", nil
}

type fakeHistory struct {
	created   int
	completed int
	lastErr   string
}

func (f *fakeHistory) CreateRun(kind, name, input, requestedBy string) (string, error) {
	f.created++
	return "run-1", nil
}

func (f *fakeHistory) CompleteRun(id, output, runErr, metadata string) error {
	f.completed++
	f.lastErr = runErr
	return nil
}

func testLibrary(t *testing.T) *datum.Library {
	t.Helper()
	dir := t.TempDir()
	presets := `
[langchain.agents.researcher]
description = "Finds things out"

[langchain.agents.writer]
description = "Writes things up"

[langchain.chains.report]
steps = [{ agent = "researcher", task = "gather" }]
`
	if err := os.WriteFile(filepath.Join(dir, "langchain.ai.toml"), []byte(presets), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := datum.LoadLibrary(dir, "langchain.ai.toml")
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func newTestRouter(t *testing.T) (*Router, *fakeRunner, *fakePublisher, *fakeQueue, *fakeHistory) {
	t.Helper()
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	queue := &fakeQueue{}
	history := &fakeHistory{}
	r := New(runner, testLibrary(t), pub, queue, history, "k0mmand3r")
	return r, runner, pub, queue, history
}

func handle(r *Router, msg Message) {
	data, _ := json.Marshal(msg)
	r.Handle(context.Background(), data)
}

func TestAgentRun(t *testing.T) {
	r, runner, pub, _, history := newTestRouter(t)

	handle(r, Message{
		Verb:    "agent",
		Params:  map[string]string{"action": "run", "name": "researcher", "input": "find it", "model": "anthropic/claude-opus-4"},
		AgentID: "laptop",
	})

	if len(runner.runs) != 1 || runner.runs[0] != "researcher" {
		t.Fatalf("runs = %v", runner.runs)
	}
	if runner.lastPrompt != "find it" || runner.lastModel != "anthropic/claude-opus-4" {
		t.Errorf("prompt=%q model=%q", runner.lastPrompt, runner.lastModel)
	}
	if len(pub.channels) != 1 || pub.channels[0] != "k0mmand3r:status" {
		t.Fatalf("published to %v", pub.channels)
	}
	if pub.payloads[0]["success"] != true {
		t.Errorf("payload = %v", pub.payloads[0])
	}
	if history.created != 1 || history.completed != 1 {
		t.Errorf("history created=%d completed=%d", history.created, history.completed)
	}
}

func TestAgentRunDefaults(t *testing.T) {
	r, runner, _, _, _ := newTestRouter(t)

	// No action defaults to run; "agent" aliases "name"; content is the
	// input fallback.
	handle(r, Message{
		Verb:    "agent",
		Params:  map[string]string{"agent": "writer"},
		Content: "write it up",
	})

	if len(runner.runs) != 1 || runner.runs[0] != "writer" {
		t.Fatalf("runs = %v", runner.runs)
	}
	if runner.lastPrompt != "write it up" {
		t.Errorf("prompt = %q", runner.lastPrompt)
	}
}

func TestAgentCreateAliasesRun(t *testing.T) {
	r, runner, _, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "agent", Params: map[string]string{"action": "create", "name": "writer"}})
	if len(runner.runs) != 1 {
		t.Errorf("runs = %v", runner.runs)
	}
}

func TestAgentRunMissingName(t *testing.T) {
	r, runner, pub, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "agent", Params: map[string]string{"action": "run"}})

	if len(runner.runs) != 0 {
		t.Errorf("expected no runs, got %v", runner.runs)
	}
	if len(pub.payloads) != 0 {
		t.Errorf("expected nothing published, got %v", pub.payloads)
	}
}

func TestAgentBroadcast(t *testing.T) {
	r, runner, pub, _, history := newTestRouter(t)
	handle(r, Message{
		Verb:   "agent",
		Params: map[string]string{"action": "broadcast", "message": "all hands", "from": "researcher"},
	})

	if runner.broadcasts != 1 || runner.lastSender != "researcher" {
		t.Fatalf("broadcasts=%d sender=%q", runner.broadcasts, runner.lastSender)
	}
	payload := pub.payloads[0]
	if payload["action"] != "broadcast" {
		t.Errorf("payload = %v", payload)
	}
	results, ok := payload["results"].([]any)
	if !ok || len(results) != 2 {
		t.Errorf("results = %v", payload["results"])
	}
	if history.created != 1 || history.completed != 1 {
		t.Errorf("history created=%d completed=%d", history.created, history.completed)
	}
}

func TestAgentStatus(t *testing.T) {
	r, _, pub, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "agent", Params: map[string]string{"action": "status"}})

	payload := pub.payloads[0]
	available, _ := payload["available_agents"].([]any)
	if len(available) != 2 || available[0] != "researcher" || available[1] != "writer" {
		t.Errorf("available_agents = %v", payload["available_agents"])
	}
	if _, ok := payload["active_agents"]; !ok {
		t.Error("missing active_agents")
	}
}

func TestAgentDelete(t *testing.T) {
	r, runner, pub, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "agent", Params: map[string]string{"action": "delete", "name": "writer"}})

	if len(runner.deleted) != 1 || runner.deleted[0] != "writer" {
		t.Errorf("deleted = %v", runner.deleted)
	}
	if pub.payloads[0]["deleted"] != true {
		t.Errorf("payload = %v", pub.payloads[0])
	}
}

func TestChainRun(t *testing.T) {
	r, runner, pub, _, _ := newTestRouter(t)
	handle(r, Message{
		Verb: "chain",
		Params: map[string]string{
			"action": "run",
			"chain":  "report",
			"topic":  "quarterly numbers",
		},
	})

	if len(runner.chains) != 1 || runner.chains[0] != "report" {
		t.Fatalf("chains = %v", runner.chains)
	}
	// Routing keys are stripped; domain params pass through verbatim.
	if runner.lastParams["topic"] != "quarterly numbers" {
		t.Errorf("params = %v", runner.lastParams)
	}
	if _, ok := runner.lastParams["action"]; ok {
		t.Errorf("action leaked into chain params: %v", runner.lastParams)
	}
	if pub.payloads[0]["chain_name"] != "report" {
		t.Errorf("payload = %v", pub.payloads[0])
	}
}

func TestChainStatus(t *testing.T) {
	r, _, pub, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "chain", Params: map[string]string{"action": "status"}})

	chains, _ := pub.payloads[0]["available_chains"].([]any)
	if len(chains) != 1 || chains[0] != "report" {
		t.Errorf("available_chains = %v", pub.payloads[0]["available_chains"])
	}
}

func TestUnknownVerbDropped(t *testing.T) {
	r, runner, pub, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "swarm", Params: map[string]string{"action": "run"}})

	if len(runner.runs)+len(runner.chains) != 0 || len(pub.payloads) != 0 {
		t.Error("unknown verb must be dropped silently")
	}
}

func TestUnknownActionDropped(t *testing.T) {
	r, runner, pub, _, _ := newTestRouter(t)
	handle(r, Message{Verb: "agent", Params: map[string]string{"action": "explode"}})

	if len(runner.runs) != 0 || len(pub.payloads) != 0 {
		t.Error("unknown action must be dropped silently")
	}
}

func TestMalformedJSONDropped(t *testing.T) {
	r, runner, pub, _, _ := newTestRouter(t)
	r.Handle(context.Background(), []byte("not json at all"))

	if len(runner.runs) != 0 || len(pub.payloads) != 0 {
		t.Error("malformed message must be dropped silently")
	}
}

func TestQueuedAgentRun(t *testing.T) {
	r, runner, pub, queue, history := newTestRouter(t)
	handle(r, Message{
		Verb:    "agent",
		Params:  map[string]string{"name": "researcher", "input": "slow job", "queue": "true"},
		AgentID: "laptop",
	})

	if len(runner.runs) != 0 {
		t.Error("queued run must not execute inline")
	}
	if len(queue.agentRuns) != 1 {
		t.Fatalf("enqueued = %d", len(queue.agentRuns))
	}
	p := queue.agentRuns[0]
	if p.Agent != "researcher" || p.Prompt != "slow job" || p.RequestedBy != "laptop" {
		t.Errorf("payload = %+v", p)
	}
	if p.RunID != "run-1" {
		t.Errorf("run id = %q", p.RunID)
	}
	if pub.payloads[0]["status"] != "queued" {
		t.Errorf("ack = %v", pub.payloads[0])
	}
	if history.completed != 0 {
		t.Error("queued run must stay open until the worker finishes it")
	}
}

func TestQueuedChainRun(t *testing.T) {
	r, runner, pub, queue, _ := newTestRouter(t)
	handle(r, Message{
		Verb:   "chain",
		Params: map[string]string{"chain": "report", "queue": "true", "topic": "x"},
	})

	if len(runner.chains) != 0 {
		t.Error("queued chain must not execute inline")
	}
	if len(queue.chainRuns) != 1 {
		t.Fatalf("enqueued = %d", len(queue.chainRuns))
	}
	if queue.chainRuns[0].Params["topic"] != "x" {
		t.Errorf("params = %v", queue.chainRuns[0].Params)
	}
	if _, ok := queue.chainRuns[0].Params["queue"]; ok {
		t.Error("queue flag leaked into chain params")
	}
	if pub.payloads[0]["status"] != "queued" {
		t.Errorf("ack = %v", pub.payloads[0])
	}
}

func TestEnqueueFailurePublishesError(t *testing.T) {
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	queue := &fakeQueue{err: errors.New("redis down")}
	r := New(runner, testLibrary(t), pub, queue, &fakeHistory{}, "cmd")

	handle(r, Message{
		Verb:   "agent",
		Params: map[string]string{"name": "researcher", "queue": "true"},
	})

	if pub.payloads[0]["error"] != "redis down" {
		t.Errorf("payload = %v", pub.payloads[0])
	}
}

func TestQueueFlagIgnoredWithoutQueue(t *testing.T) {
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	r := New(runner, testLibrary(t), pub, nil, nil, "cmd")

	handle(r, Message{
		Verb:   "agent",
		Params: map[string]string{"name": "researcher", "queue": "true"},
	})

	if len(runner.runs) != 1 {
		t.Error("without a queue the run must execute inline")
	}
}
