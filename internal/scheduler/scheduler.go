// Package scheduler fires recurring agent and chain runs declared in the
// presets datum. Due schedules are pushed onto the job queue rather than run
// inline, so a slow agent cannot stall the poll loop.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/agentbus/agentbus/internal/config"
	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/jobs"
	"github.com/agentbus/agentbus/internal/store"
)

// Enqueuer pushes runs onto the job queue (the jobs client implements this).
type Enqueuer interface {
	EnqueueAgentRun(ctx context.Context, p jobs.AgentRunPayload) (string, error)
	EnqueueChainRun(ctx context.Context, p jobs.ChainRunPayload) (string, error)
}

type Scheduler struct {
	store        *store.Store
	queue        Enqueuer
	schedules    []datum.ScheduleConfig
	channel      string
	pollInterval time.Duration
}

func New(s *store.Store, queue Enqueuer, schedules []datum.ScheduleConfig, channel string, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		store:        s,
		queue:        queue,
		schedules:    schedules,
		channel:      channel,
		pollInterval: cfg.PollInterval,
	}
}

// Register validates every declared schedule, seeds its bookkeeping row, and
// prunes rows for schedules that disappeared from the datum. Invalid cron
// expressions are skipped with a warning.
func (s *Scheduler) Register() error {
	var kept []string
	for _, sc := range s.schedules {
		if !gronx.IsValid(sc.Cron) {
			slog.Warn("skipping schedule with invalid cron", "schedule", sc.Name, "cron", sc.Cron)
			continue
		}
		if sc.Agent == "" && sc.Chain == "" {
			slog.Warn("skipping schedule without agent or chain", "schedule", sc.Name)
			continue
		}
		next, err := gronx.NextTick(sc.Cron, false)
		if err != nil {
			slog.Warn("skipping schedule", "schedule", sc.Name, "error", err)
			continue
		}
		if err := s.store.UpsertSchedule(sc.Name, sc.Cron, next); err != nil {
			return err
		}
		kept = append(kept, sc.Name)
	}
	if err := s.store.PruneSchedules(kept); err != nil {
		return err
	}
	slog.Info("schedules registered", "count", len(kept))
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.pollInterval == 0 {
		s.pollInterval = 30 * time.Second
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx, time.Now())
		}
	}
}

func (s *Scheduler) poll(ctx context.Context, now time.Time) {
	states, err := s.store.ListSchedules()
	if err != nil {
		slog.Error("failed to list schedules", "error", err)
		return
	}

	for _, st := range states {
		if st.NextRunAt == nil || st.NextRunAt.After(now) {
			continue
		}
		s.fire(ctx, st)
	}
}

func (s *Scheduler) fire(ctx context.Context, st store.ScheduleState) {
	sc, ok := s.scheduleByName(st.Name)
	if !ok {
		return
	}

	slog.Info("firing schedule", "schedule", sc.Name, "agent", sc.Agent, "chain", sc.Chain)

	var enqueueErr error
	if sc.Chain != "" {
		runID, err := s.store.CreateRun(store.RunKindChain, sc.Chain, sc.Prompt, "scheduler")
		if err != nil {
			slog.Error("create run record failed", "schedule", sc.Name, "error", err)
		}
		var params map[string]string
		if sc.Prompt != "" {
			params = map[string]string{"input": sc.Prompt}
		}
		_, enqueueErr = s.queue.EnqueueChainRun(ctx, jobs.ChainRunPayload{
			Chain:       sc.Chain,
			Params:      params,
			Channel:     s.channel,
			RunID:       runID,
			RequestedBy: "scheduler",
		})
	} else {
		runID, err := s.store.CreateRun(store.RunKindAgent, sc.Agent, sc.Prompt, "scheduler")
		if err != nil {
			slog.Error("create run record failed", "schedule", sc.Name, "error", err)
		}
		_, enqueueErr = s.queue.EnqueueAgentRun(ctx, jobs.AgentRunPayload{
			Agent:       sc.Agent,
			Prompt:      sc.Prompt,
			Channel:     s.channel,
			RunID:       runID,
			RequestedBy: "scheduler",
		})
	}

	next, err := gronx.NextTick(sc.Cron, false)
	if err != nil {
		slog.Error("next tick calculation failed", "schedule", sc.Name, "error", err)
		next = time.Now().Add(s.pollInterval)
	}

	errText := ""
	if enqueueErr != nil {
		errText = enqueueErr.Error()
		slog.Error("schedule enqueue failed", "schedule", sc.Name, "error", enqueueErr)
	}
	if err := s.store.MarkScheduleRun(sc.Name, next, errText); err != nil {
		slog.Error("schedule bookkeeping failed", "schedule", sc.Name, "error", err)
	}
}

func (s *Scheduler) scheduleByName(name string) (datum.ScheduleConfig, bool) {
	for _, sc := range s.schedules {
		if sc.Name == name {
			return sc, true
		}
	}
	return datum.ScheduleConfig{}, false
}
