// Package web exposes the status API over HTTP (read endpoints plus sealed
// secret management) and a websocket stream mirroring everything the gateway
// publishes on the status channel.
package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agentbus/agentbus/internal/agent"
	"github.com/agentbus/agentbus/internal/config"
	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/mcptools"
	"github.com/agentbus/agentbus/internal/store"
)

type Server struct {
	store     *store.Store
	service   *agent.Service
	library   *datum.Library
	discovery *mcptools.Discovery
	vault     store.SecretCipher
	hub       *Hub
	cfg       config.WebConfig
	version   string
	startedAt time.Time
}

func NewServer(s *store.Store, service *agent.Service, library *datum.Library, discovery *mcptools.Discovery, vault store.SecretCipher, cfg config.WebConfig, version string) *Server {
	return &Server{
		store:     s,
		service:   service,
		library:   library,
		discovery: discovery,
		vault:     vault,
		hub:       NewHub(),
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

// Hub returns the websocket hub so the gateway can feed it status events.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	mux := http.NewServeMux()
	s.registerAPI(mux)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	handler := s.withMiddleware(mux)
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if s.cfg.Auth != "" && strings.HasPrefix(r.URL.Path, "/api/") {
			if !s.checkAuth(r) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// checkAuth accepts a bearer token or the Basic Auth password.
func (s *Server) checkAuth(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Auth)) == 1
	}
	if _, pass, ok := r.BasicAuth(); ok {
		return subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.Auth)) == 1
	}
	return false
}
