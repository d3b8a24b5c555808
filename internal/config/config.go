// Package config holds all craftbot configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultSystemPrompt seeds the conversation history. It tells the model
// who it is, how results come back to it, and how to interpret "come here".
const defaultSystemPrompt = `You are a Minecraft player, a bot. Your username is %q, you can use it with commands. You will receive information on what is happening in the game and the result of your functions. You have functions at your disposal, and you can execute multiple commands like chatting, moving, or finding a player's location. You can also chain commands. The game is constantly changing, so when you act, try to refetch the data you are using. When a player asks you to come here, it means to come to their coordinates.`

// Config holds all craftbot configuration.
type Config struct {
	// Agent identity
	Agent AgentConfig `yaml:"agent"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Bridge to the world sidecar
	Bridge BridgeConfig `yaml:"bridge"`

	// Dispatch loop settings
	Loop LoopConfig `yaml:"loop"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// AgentConfig identifies the controlled agent.
type AgentConfig struct {
	// Username is the in-game handle. Inbound chat authored by this name
	// is filtered out so the agent never reacts to its own messages.
	Username string `yaml:"username"`

	// SystemPrompt overrides the built-in system prompt when set.
	SystemPrompt string `yaml:"system_prompt"`
}

// LLMConfig configures the reasoning endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"` // ollama, openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// BridgeConfig configures the connection to the world sidecar process
// (the node/mineflayer process that owns the actual game connection).
type BridgeConfig struct {
	Addr        string `yaml:"addr"`
	DialTimeout string `yaml:"dial_timeout"`
}

// LoopConfig bounds the dispatch loop.
type LoopConfig struct {
	// MaxRounds caps inference rounds per stimulus chain. Guards against
	// a runaway feedback cycle where every round requests more actions.
	MaxRounds int `yaml:"max_rounds"`

	// MaxToolCalls caps invocations dispatched from a single round.
	MaxToolCalls int `yaml:"max_tool_calls"`

	// MaxTurns trims the oldest non-system turns when the history grows
	// past this count. 0 disables trimming (history grows unbounded,
	// matching the default behavior).
	MaxTurns int `yaml:"max_turns"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Username: "bot",
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
			Timeout:  "120s",
		},
		Bridge: BridgeConfig{
			Addr:        "localhost:25580",
			DialTimeout: "10s",
		},
		Loop: LoopConfig{
			MaxRounds:    8,
			MaxToolCalls: 16,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file is not an error; defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SystemPrompt returns the configured system prompt, or the built-in one
// rendered with the agent's username.
func (c *Config) SystemPrompt() string {
	if c.Agent.SystemPrompt != "" {
		return c.Agent.SystemPrompt
	}
	return fmt.Sprintf(defaultSystemPrompt, c.Agent.Username)
}

// LLMTimeout parses the LLM timeout, falling back to the default on a
// missing or malformed value.
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// BridgeDialTimeout parses the bridge dial timeout.
func (c *Config) BridgeDialTimeout() time.Duration {
	return parseDuration(c.Bridge.DialTimeout, 10*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
