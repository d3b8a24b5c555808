package perception

import (
	"fmt"

	"github.com/mikedegeofroy/minecraft-bot/internal/config"
)

// NewClient builds the reasoning client named by the configuration.
func NewClient(cfg *config.Config) (LLMClient, error) {
	timeout := cfg.LLMTimeout()

	switch Provider(cfg.LLM.Provider) {
	case ProviderOllama, "":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		}), nil

	case ProviderOpenAI:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key (set llm.api_key or OPENAI_API_KEY)")
		}
		baseURL := cfg.LLM.BaseURL
		if baseURL == "http://localhost:11434" {
			baseURL = "" // the ollama default makes no sense here
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: baseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		}), nil

	case ProviderGemini:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key (set llm.api_key or GEMINI_API_KEY)")
		}
		return NewGeminiClient(GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (want ollama, openai, or gemini)", cfg.LLM.Provider)
	}
}
