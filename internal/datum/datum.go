// Package datum loads the TOML configuration records ("datums") that drive
// the gateway: agent and chain presets, schedule entries, and AI model
// provider descriptors.
package datum

// AgentConfig is a named agent preset. Loaded once at startup, immutable
// afterwards.
type AgentConfig struct {
	Name           string   `toml:"-"`
	Description    string   `toml:"description"`
	Model          string   `toml:"model"`
	Tools          []string `toml:"tools"`
	SystemPrompt   string   `toml:"system_prompt"`
	MaxIterations  int      `toml:"max_iterations"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	PeerAgents     []string `toml:"peer_agents"`
}

// ChainConfig is a named sequence of agent steps.
type ChainConfig struct {
	Name        string      `toml:"-"`
	Description string      `toml:"description"`
	Steps       []ChainStep `toml:"steps"`
}

// ChainStep names an agent and the task it runs with.
type ChainStep struct {
	Agent string `toml:"agent"`
	Task  string `toml:"task"`
}

// ScheduleConfig declares a recurring agent or chain run.
type ScheduleConfig struct {
	Name   string `toml:"name"`
	Cron   string `toml:"cron"`
	Agent  string `toml:"agent"`
	Chain  string `toml:"chain"`
	Prompt string `toml:"prompt"`
}

const (
	DefaultModel          = "anthropic/claude-sonnet-4"
	DefaultMaxIterations  = 10
	DefaultTimeoutSeconds = 300
)
