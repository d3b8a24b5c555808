package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mikedegeofroy/minecraft-bot/internal/history"
	"github.com/mikedegeofroy/minecraft-bot/internal/perception"
	"github.com/mikedegeofroy/minecraft-bot/internal/session"
	"github.com/mikedegeofroy/minecraft-bot/internal/tools"
	"github.com/mikedegeofroy/minecraft-bot/internal/world"
	"github.com/mikedegeofroy/minecraft-bot/internal/world/sim"
)

var simPlayer string

// simCmd runs the agent against the in-memory world, with stdin as chat.
var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the agent offline against a simulated world",
	Long: `Runs the full agent loop without a game server: your terminal
input becomes chat from a simulated player standing nearby, and the
bot's actions play out in an in-memory world.

Console commands:
  /pos                    show the bot's position
  /player <name> <x y z>  place another player
  /quit                   exit

Anything else is sent as chat.`,
	RunE: runSim,
}

func init() {
	simCmd.Flags().StringVar(&simPlayer, "player", "player", "Your username in the simulated world")
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#38bdf8")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#a1a1aa"))
)

func runSim(cmd *cobra.Command, args []string) error {
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

	w := sim.New(cfg.Agent.Username)
	w.AddPlayer(simPlayer, world.Position{X: 5, Y: 64, Z: 5})

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

	fmt.Println(infoStyle.Render(fmt.Sprintf(
		"Simulated world ready. You are %q at (5, 64, 5); the bot is %q at (0, 0, 0).",
		simPlayer, cfg.Agent.Username)))
	fmt.Println(infoStyle.Render("Type a message, or /quit to exit."))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(ctx)
	})

	// Echo the bot's chat as it happens.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-w.Outbound():
				if !ok {
					return nil
				}
				fmt.Printf("%s %s\n", botStyle.Render("<"+ev.Username+">"), ev.Message)
			}
		}
	})

	g.Go(func() error {
		defer w.Close()
		return consoleLoop(ctx, w)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consoleLoop turns stdin lines into simulated chat and console commands.
// Returns when stdin closes, /quit is entered, or the context ends.
func consoleLoop(ctx context.Context, w *sim.Sim) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	prompt := promptStyle.Render("<" + simPlayer + ">")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "/") {
				if quit := consoleCommand(w, line); quit {
					return nil
				}
				continue
			}
			fmt.Printf("%s %s\n", prompt, line)
			w.Say(simPlayer, line)
		}
	}
}

// consoleCommand handles a /command line. Returns true on /quit.
func consoleCommand(w *sim.Sim, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/pos":
		pos := w.AgentPosition()
		fmt.Println(infoStyle.Render(fmt.Sprintf("bot is at (%v, %v, %v)", pos.X, pos.Y, pos.Z)))

	case "/player":
		if len(fields) != 5 {
			fmt.Println(infoStyle.Render("usage: /player <name> <x> <y> <z>"))
			return false
		}
		coords := make([]float64, 3)
		for i, f := range fields[2:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				fmt.Println(infoStyle.Render("bad coordinate: " + f))
				return false
			}
			coords[i] = v
		}
		w.AddPlayer(fields[1], world.Position{X: coords[0], Y: coords[1], Z: coords[2]})
		fmt.Println(infoStyle.Render(fmt.Sprintf("placed %s at (%v, %v, %v)", fields[1], coords[0], coords[1], coords[2])))

	default:
		fmt.Println(infoStyle.Render("unknown command: " + fields[0]))
	}
	return false
}
