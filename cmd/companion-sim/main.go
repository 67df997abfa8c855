package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/milk9111/companion/dashboard"
	"github.com/milk9111/companion/prefabs"
	"github.com/milk9111/companion/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "companion-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := sim.ParseEnv()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	prefabs.SetDir(cfg.PrefabDir)

	runner, err := sim.New(sim.Options{
		Room:       cfg.Room,
		Companions: cfg.Companions,
		AutoInit:   cfg.AutoInit,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		if err := sim.WatchPrefabs(ctx, runner, cfg.PrefabDir); err != nil {
			if !errors.Is(err, sim.ErrNoPrefabDir) {
				return err
			}
			logger.Info("no prefab dir on disk; using embedded prefabs", "dir", cfg.PrefabDir)
		}
	}

	if cfg.DashboardAddr != "" {
		server := dashboard.NewServer(runner, logger)
		go func() {
			if err := server.Start(cfg.DashboardAddr); err != nil {
				logger.Error("dashboard stopped", "err", err)
			}
		}()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.Warn("dashboard shutdown", "err", err)
			}
		}()
	}

	logger.Info("simulation running", "tick_rate", cfg.TickRate, "room", cfg.Room)
	return runner.Run(ctx, cfg.TickRate)
}
