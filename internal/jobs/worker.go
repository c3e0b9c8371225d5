package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/agentbus/agentbus/internal/agent"
	"github.com/agentbus/agentbus/internal/config"
	"github.com/agentbus/agentbus/internal/redisbus"
)

// Runner executes queued agent and chain runs (the agent service implements
// this).
type Runner interface {
	Run(ctx context.Context, name, prompt, modelOverride string) agent.Result
	RunChain(ctx context.Context, name string, params map[string]string) agent.ChainResult
}

// Publisher pushes results back onto the status channel.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any) error
}

// Recorder closes run history records. Nil-able; workers run without history
// when the store is absent.
type Recorder interface {
	CompleteRun(id, output, runErr, metadata string) error
}

// Worker consumes queued runs. Failed runs are results, not retries: the
// outcome is published either way and the task is never requeued.
type Worker struct {
	server   *asynq.Server
	runner   Runner
	pub      Publisher
	recorder Recorder
}

func NewWorker(cfg config.RedisConfig, concurrency int, runner Runner, pub Publisher, recorder Recorder) *Worker {
	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Logger:      asynqLogger{},
	})
	return &Worker{server: server, runner: runner, pub: pub, recorder: recorder}
}

func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAgentRun, w.handleAgentRun)
	mux.HandleFunc(TypeChainRun, w.handleChainRun)
	return w.server.Start(mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleAgentRun(ctx context.Context, task *asynq.Task) error {
	var p AgentRunPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal agent run payload: %w", err)
	}

	result := w.runner.Run(ctx, p.Agent, p.Prompt, p.Model)
	w.record(p.RunID, result.Output, result.Error, result.Metadata)
	w.publish(ctx, p.Channel, result)
	return nil
}

func (w *Worker) handleChainRun(ctx context.Context, task *asynq.Task) error {
	var p ChainRunPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal chain run payload: %w", err)
	}

	result := w.runner.RunChain(ctx, p.Chain, p.Params)
	w.record(p.RunID, result.Output, result.Error, nil)
	w.publish(ctx, p.Channel, result)
	return nil
}

func (w *Worker) record(runID, output, runErr string, metadata map[string]any) {
	if w.recorder == nil || runID == "" {
		return
	}
	meta := ""
	if metadata != nil {
		if blob, err := json.Marshal(metadata); err == nil {
			meta = string(blob)
		}
	}
	if err := w.recorder.CompleteRun(runID, output, runErr, meta); err != nil {
		slog.Error("record run completion failed", "run_id", runID, "error", err)
	}
}

func (w *Worker) publish(ctx context.Context, channel string, result any) {
	if channel == "" {
		return
	}
	if err := w.pub.PublishJSON(ctx, redisbus.StatusChannel(channel), result); err != nil {
		slog.Error("publish queued result failed", "channel", channel, "error", err)
	}
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { slog.Error(fmt.Sprint(args...)) }
