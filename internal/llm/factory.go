package llm

import (
	"fmt"

	"github.com/reveriehq/reverie/internal/config"
)

// NewTextGenerator creates the TextGenerator selected by the LLM config.
func NewTextGenerator(cfg config.LLMConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.OllamaURL, Model: cfg.OllamaModel}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator creates the EmbeddingGenerator selected by the LLM
// config. Anthropic has no embeddings API, so anthropic deployments fall back
// to the Ollama embedding model.
func NewEmbeddingGenerator(cfg config.LLMConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbeddingClient(OpenAIConfig{APIKey: cfg.OpenAIAPIKey}), nil
	case "ollama", "anthropic", "":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.OllamaURL, Model: cfg.OllamaEmbeddingModel}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
