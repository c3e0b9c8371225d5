package datum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// Library holds the agent, chain and schedule presets loaded from the
// presets datum. Lookups are by name; names are unique within each mapping.
type Library struct {
	agents    map[string]AgentConfig
	chains    map[string]ChainConfig
	schedules []ScheduleConfig
}

// presetsDoc mirrors the [langchain] table of the presets datum. Individual
// presets decode lazily so one malformed entry does not discard the rest.
type presetsDoc struct {
	Langchain struct {
		Agents    map[string]toml.Primitive `toml:"agents"`
		Chains    map[string]toml.Primitive `toml:"chains"`
		Schedules []toml.Primitive          `toml:"schedules"`
	} `toml:"langchain"`
}

// LoadLibrary reads the presets datum from dir. A missing file is not an
// error: the gateway starts with an empty library.
func LoadLibrary(dir, presetsFile string) (*Library, error) {
	lib := &Library{
		agents: make(map[string]AgentConfig),
		chains: make(map[string]ChainConfig),
	}

	path := filepath.Join(dir, presetsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("presets datum not found, starting empty", "path", path)
			return lib, nil
		}
		return nil, fmt.Errorf("read presets datum: %w", err)
	}

	var doc presetsDoc
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parse presets datum: %w", err)
	}

	for name, prim := range doc.Langchain.Agents {
		cfg := AgentConfig{
			Model:          DefaultModel,
			MaxIterations:  DefaultMaxIterations,
			TimeoutSeconds: DefaultTimeoutSeconds,
		}
		if err := md.PrimitiveDecode(prim, &cfg); err != nil {
			slog.Warn("skipping malformed agent preset", "agent", name, "error", err)
			continue
		}
		cfg.Name = name
		lib.agents[name] = cfg
	}

	for name, prim := range doc.Langchain.Chains {
		var cfg ChainConfig
		if err := md.PrimitiveDecode(prim, &cfg); err != nil {
			slog.Warn("skipping malformed chain preset", "chain", name, "error", err)
			continue
		}
		cfg.Name = name
		lib.chains[name] = cfg
	}

	for i, prim := range doc.Langchain.Schedules {
		var sc ScheduleConfig
		if err := md.PrimitiveDecode(prim, &sc); err != nil {
			slog.Warn("skipping malformed schedule", "index", i, "error", err)
			continue
		}
		if sc.Name == "" || sc.Cron == "" {
			slog.Warn("skipping schedule without name or cron", "index", i)
			continue
		}
		lib.schedules = append(lib.schedules, sc)
	}

	slog.Info("presets loaded",
		"agents", len(lib.agents),
		"chains", len(lib.chains),
		"schedules", len(lib.schedules))

	return lib, nil
}

func (l *Library) Agent(name string) (AgentConfig, bool) {
	cfg, ok := l.agents[name]
	return cfg, ok
}

func (l *Library) Chain(name string) (ChainConfig, bool) {
	cfg, ok := l.chains[name]
	return cfg, ok
}

// AgentNames returns all agent preset names in sorted order. Broadcast
// fan-out and status reports rely on this order being stable.
func (l *Library) AgentNames() []string {
	names := make([]string, 0, len(l.agents))
	for name := range l.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Library) ChainNames() []string {
	names := make([]string, 0, len(l.chains))
	for name := range l.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Library) Schedules() []ScheduleConfig {
	return l.schedules
}
