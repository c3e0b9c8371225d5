package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/agents", s.listAgents)
	mux.HandleFunc("GET /api/agents/{name}", s.getAgent)
	mux.HandleFunc("GET /api/chains", s.listChains)
	mux.HandleFunc("GET /api/tools", s.listTools)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/schedules", s.listSchedules)
	mux.HandleFunc("GET /api/status", s.getStatus)
	mux.HandleFunc("GET /api/secrets", s.listSecrets)
	mux.HandleFunc("POST /api/secrets", s.setSecret)
	mux.HandleFunc("DELETE /api/secrets/{name}", s.deleteSecret)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	active := make(map[string]bool)
	for _, key := range s.service.Active() {
		active[key] = true
	}

	out := make([]map[string]any, 0)
	for _, name := range s.library.AgentNames() {
		cfg, _ := s.library.Agent(name)
		entry := map[string]any{
			"name":        name,
			"description": cfg.Description,
			"model":       cfg.Model,
			"tools":       cfg.Tools,
		}
		out = append(out, entry)
	}
	jsonResponse(w, map[string]any{
		"agents":        out,
		"active_agents": s.service.Active(),
	})
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	cfg, ok := s.library.Agent(name)
	if !ok {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]any{
		"name":            cfg.Name,
		"description":     cfg.Description,
		"model":           cfg.Model,
		"tools":           cfg.Tools,
		"system_prompt":   cfg.SystemPrompt,
		"max_iterations":  cfg.MaxIterations,
		"timeout_seconds": cfg.TimeoutSeconds,
	})
}

func (s *Server) listChains(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0)
	for _, name := range s.library.ChainNames() {
		cfg, _ := s.library.Chain(name)
		steps := make([]map[string]string, 0, len(cfg.Steps))
		for _, step := range cfg.Steps {
			steps = append(steps, map[string]string{"agent": step.Agent, "task": step.Task})
		}
		out = append(out, map[string]any{
			"name":        name,
			"description": cfg.Description,
			"steps":       steps,
		})
	}
	jsonResponse(w, map[string]any{"chains": out})
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0)
	if s.discovery != nil {
		for _, tool := range s.discovery.All() {
			out = append(out, map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"server":      tool.Server,
			})
		}
	}
	jsonResponse(w, map[string]any{"tools": out})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, run)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	states, err := s.store.ListSchedules()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]any{"schedules": states})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	toolCount := 0
	if s.discovery != nil {
		toolCount = len(s.discovery.All())
	}
	jsonResponse(w, map[string]any{
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"agents":         len(s.library.AgentNames()),
		"chains":         len(s.library.ChainNames()),
		"tools":          toolCount,
		"schedules":      len(s.library.Schedules()),
	})
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
