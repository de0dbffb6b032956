package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/zombor/ttn-recognizer/internal/document"
)

// Config selects and configures the extraction service.
type Config struct {
	Provider string // openai, chatbothub, gemini, ollama or none

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	ChatBotHub ChatBotHubConfig

	GeminiKey   string
	GeminiModel string

	OllamaURL   string
	OllamaModel string
}

// New builds the Scanner named by cfg.Provider. It returns an error wrapping
// ErrServiceUnconfigured when the provider is "none" or lacks credentials.
func New(ctx context.Context, cfg Config) (Scanner, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "":
		s, err := NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "chatbothub":
		s, err := NewChatBotHub(cfg.ChatBotHub)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gemini":
		s, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	case "none":
		return nil, fmt.Errorf("%w: provider disabled", document.ErrServiceUnconfigured)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (supported: openai, chatbothub, gemini, ollama, none)", cfg.Provider)
	}
}
