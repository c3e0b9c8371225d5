package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/agentbus/agentbus/internal/agent"
	"github.com/agentbus/agentbus/internal/config"
	"github.com/agentbus/agentbus/internal/datum"
	"github.com/agentbus/agentbus/internal/jobs"
	"github.com/agentbus/agentbus/internal/llm"
	"github.com/agentbus/agentbus/internal/logger"
	"github.com/agentbus/agentbus/internal/mcptools"
	"github.com/agentbus/agentbus/internal/redisbus"
	"github.com/agentbus/agentbus/internal/router"
	"github.com/agentbus/agentbus/internal/scheduler"
	"github.com/agentbus/agentbus/internal/store"
	"github.com/agentbus/agentbus/internal/vault"
	"github.com/agentbus/agentbus/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	logger.Init()

	switch os.Args[1] {
	case "version":
		fmt.Printf("agentbus %s\n", version)
	case "gateway":
		if err := runGateway(); err != nil {
			slog.Error("gateway failed", "error", err)
			os.Exit(1)
		}
	case "backup":
		if err := runBackup(os.Args[2:]); err != nil {
			slog.Error("backup failed", "error", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: agentbus <command>\n\nCommands:\n  gateway    Start the agentbus gateway service\n  backup     Archive datums and run history to a .tar.zst\n  version    Print version\n")
}

func runGateway() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting agentbus gateway", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite store
	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	// Sealed secrets feed credential lookups when env vars are unset.
	var secrets datum.SecretSource
	var cipher store.SecretCipher
	if cfg.Vault.Passphrase != "" {
		v := vault.New(cfg.Vault.Passphrase)
		cipher = v
		secrets = store.NewSecretSource(db, v)
	} else {
		slog.Warn("vault passphrase not set, sealed secrets disabled")
	}

	// Redis command bus
	bus, err := redisbus.NewClient(cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	defer bus.Close()
	slog.Info("redis connected", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)

	// Presets
	library, err := datum.LoadLibrary(cfg.Datum.Dir, cfg.Datum.PresetsFile)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	// MCP tool discovery
	discovery := mcptools.NewDiscovery()
	if err := discovery.Initialize(ctx, cfg.Datum.Dir); err != nil {
		return fmt.Errorf("tool discovery: %w", err)
	}
	defer discovery.Shutdown()
	slog.Info("tools discovered", "count", len(discovery.All()))

	// Agent service
	factory := llm.NewFactory(cfg.Datum.Dir, secrets)
	service := agent.NewService(library, discovery, factory)

	// Job queue
	var queue *jobs.Client
	if cfg.Queue.Enabled {
		queue = jobs.NewClient(cfg.Redis)
		defer queue.Close()

		worker := jobs.NewWorker(cfg.Redis, cfg.Queue.Concurrency, service, bus, db)
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer worker.Shutdown()
		slog.Info("job worker started", "concurrency", cfg.Queue.Concurrency)

		// Scheduler rides on the queue.
		sched := scheduler.New(db, queue, library.Schedules(), cfg.Redis.Channel, cfg.Scheduler)
		if err := sched.Register(); err != nil {
			return fmt.Errorf("register schedules: %w", err)
		}
		go sched.Start(ctx)
	} else {
		slog.Warn("job queue disabled, schedules will not fire")
	}

	// Command router
	var enqueuer router.Enqueuer
	if queue != nil {
		enqueuer = queue
	}
	rtr := router.New(service, library, bus, enqueuer, db, cfg.Redis.Channel)
	listener := router.NewListener(bus, rtr, cfg.Redis.Channel)
	go listener.Start(ctx)

	// Web status surface
	if cfg.Web.Enabled {
		srv := web.NewServer(db, service, library, discovery, cipher, cfg.Web, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		go srv.MirrorStatus(ctx, bus, cfg.Redis.Channel)
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()

	return nil
}
