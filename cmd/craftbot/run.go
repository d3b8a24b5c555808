package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mikedegeofroy/minecraft-bot/internal/history"
	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/perception"
	"github.com/mikedegeofroy/minecraft-bot/internal/session"
	"github.com/mikedegeofroy/minecraft-bot/internal/tools"
	"github.com/mikedegeofroy/minecraft-bot/internal/world/bridge"
)

// runAgent connects to the world sidecar and runs the dispatch loop
// until interrupted.
func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer syncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := perception.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to build LLM client: %w", err)
	}
	if verbose {
		llm = perception.NewTracingClient(llm)
	}

	w, err := bridge.Dial(cfg.Bridge.Addr, cfg.BridgeDialTimeout())
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterWorldTools(registry, w); err != nil {
		return err
	}

	sess := session.New(
		cfg.Agent.Username,
		history.NewStore(cfg.SystemPrompt(), cfg.Loop.MaxTurns),
		registry,
		llm,
		w,
		session.Config{MaxRounds: cfg.Loop.MaxRounds, MaxToolCalls: cfg.Loop.MaxToolCalls},
	)

	logging.Session("craftbot %s starting as %q (provider=%s model=%s)",
		version, cfg.Agent.Username, cfg.LLM.Provider, cfg.LLM.Model)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(ctx)
	})
	g.Go(func() error {
		// Unblock the loop when the signal context fires.
		<-ctx.Done()
		return w.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
