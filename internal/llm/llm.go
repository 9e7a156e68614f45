// Package llm wraps the language model backends used for question
// classification and answer generation behind a single Oracle interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from language model")

// Request is a single-turn completion request.
type Request struct {
	Prompt string
	// JSON asks the backend to constrain the output to a JSON object.
	JSON bool
	// MaxTokens caps the generated tokens; zero leaves the backend default.
	MaxTokens int
}

// Oracle is a synchronous text completion service.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// New creates the Oracle for cfg.Provider.
func New(ctx context.Context, cfg Config, log *slog.Logger) (Oracle, error) {
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGemini(ctx, cfg, log)
	case ProviderOpenAI:
		return NewOpenAI(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
