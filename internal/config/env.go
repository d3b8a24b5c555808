package config

import "os"

// applyEnvOverrides layers environment variables over the loaded config.
// Provider key env vars both supply the key and, when no explicit provider
// was configured beyond the default, select the matching provider.
// Precedence: GEMINI_API_KEY > OPENAI_API_KEY (first match wins).
func (c *Config) applyEnvOverrides() {
	keyVars := []struct {
		envVar   string
		provider string
	}{
		{"GEMINI_API_KEY", "gemini"},
		{"OPENAI_API_KEY", "openai"},
	}

	for _, kv := range keyVars {
		key := os.Getenv(kv.envVar)
		if key == "" {
			continue
		}
		c.LLM.APIKey = key
		def := DefaultConfig().LLM
		if c.LLM.Provider == "" || c.LLM.Provider == def.Provider {
			c.LLM.Provider = kv.provider
			// Drop the ollama defaults so the selected client's own
			// defaults apply instead.
			if c.LLM.Model == def.Model {
				c.LLM.Model = ""
			}
			if c.LLM.BaseURL == def.BaseURL {
				c.LLM.BaseURL = ""
			}
		}
		break
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" && c.LLM.Provider == "ollama" {
		c.LLM.BaseURL = host
	}

	if model := os.Getenv("CRAFTBOT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if addr := os.Getenv("CRAFTBOT_BRIDGE_ADDR"); addr != "" {
		c.Bridge.Addr = addr
	}
	if name := os.Getenv("CRAFTBOT_USERNAME"); name != "" {
		c.Agent.Username = name
	}
}
