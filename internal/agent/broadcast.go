package agent

import (
	"context"
	"log/slog"
	"sync"
)

// Broadcast runs the prompt against every configured agent except sender,
// concurrently. Results come back in agent-name order regardless of which
// run finished first.
func (s *Service) Broadcast(ctx context.Context, prompt, sender, modelOverride string) []Result {
	var targets []string
	for _, name := range s.library.AgentNames() {
		if name == sender {
			continue
		}
		targets = append(targets, name)
	}

	slog.Info("broadcasting to agent pool", "targets", len(targets), "sender", sender)

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, name := range targets {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = s.Run(ctx, name, prompt, modelOverride)
		}(i, name)
	}
	wg.Wait()

	return results
}
