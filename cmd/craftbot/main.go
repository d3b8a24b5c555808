package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mikedegeofroy/minecraft-bot/internal/config"
	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
)

var version = "dev"

var (
	// Global flags
	cfgPath  string
	verbose  bool
	username string
	model    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "craftbot",
	Short: "craftbot - an LLM-driven Minecraft agent",
	Long: `craftbot drives a Minecraft bot with an LLM.

Inbound chat becomes a stimulus; the model reasons over the full
conversation history and replies with tool calls (chat, move, locate).
Action results feed back into the history, so multi-step behavior like
"find the player, then walk to them" emerges from chaining single steps.

The game connection itself lives in a mineflayer sidecar process;
craftbot talks to it over a socket. Run 'craftbot sim' for an offline
console against a simulated world.`,
	RunE: runAgent,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the craftbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("craftbot %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "craftbot.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Override the agent's in-game username")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Override the configured model")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and layers the CLI flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if username != "" {
		cfg.Agent.Username = username
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	return cfg, nil
}

// initLogging builds the process logger from config and installs it as
// the category logger root.
func initLogging(cfg *config.Config) error {
	zcfg := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	switch level {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	var err error
	logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Init(logger)
	return nil
}

func syncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
