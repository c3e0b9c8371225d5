package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/agentbus/agentbus/internal/config"
)

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Client enqueues runs. Safe for concurrent use.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(redisOpt(cfg))}
}

func (c *Client) EnqueueAgentRun(ctx context.Context, p AgentRunPayload) (string, error) {
	task, err := NewAgentRunTask(p)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(0))
	if err != nil {
		return "", fmt.Errorf("enqueue agent run: %w", err)
	}
	slog.Info("agent run queued", "agent", p.Agent, "task_id", info.ID)
	return info.ID, nil
}

func (c *Client) EnqueueChainRun(ctx context.Context, p ChainRunPayload) (string, error) {
	task, err := NewChainRunTask(p)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(0))
	if err != nil {
		return "", fmt.Errorf("enqueue chain run: %w", err)
	}
	slog.Info("chain run queued", "chain", p.Chain, "task_id", info.ID)
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
