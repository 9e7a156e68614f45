package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	gopenai "github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the completion carries no choices.
var ErrNoChoices = errors.New("no choices in completion response")

type openAIClient struct {
	client      *gopenai.Client
	log         *slog.Logger
	model       string
	temperature float32
	attempts    uint
	retryDelay  time.Duration
	timeout     time.Duration
}

// NewOpenAI creates an Oracle for any OpenAI-compatible chat completion API
// (OpenAI, Mistral, local gateways).
func NewOpenAI(cfg Config, log *slog.Logger) (Oracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	aiConfig := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		aiConfig.BaseURL = cfg.BaseURL
	}

	attempts := uint(1)
	if cfg.MaxRetries > 0 {
		attempts += uint(cfg.MaxRetries)
	}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI-compatible client initialized successfully", "model", cfg.Model, "base_url", aiConfig.BaseURL)
	return &openAIClient{
		client:      gopenai.NewClientWithConfig(aiConfig),
		log:         logger,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		attempts:    attempts,
		retryDelay:  cfg.RetryDelay,
		timeout:     cfg.Timeout,
	}, nil
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	request := gopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.JSON {
		request.ResponseFormat = &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var response string
	err := retry.Do(
		func() error {
			callCtx, cancel := withTimeout(ctx, c.timeout)
			defer cancel()

			resp, err := c.client.CreateChatCompletion(callCtx, request)
			if err != nil {
				return fmt.Errorf("chat completion API call failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				return ErrNoChoices
			}

			text := strings.TrimSpace(resp.Choices[0].Message.Content)
			if text == "" {
				return retry.Unrecoverable(ErrEmptyResponse)
			}
			response = text
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetriable),
		retry.OnRetry(func(n uint, err error) {
			c.log.WarnContext(ctx, "Retrying chat completion", "attempt", n+1, "max_attempts", c.attempts, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}

	return response, nil
}

// isRetriable limits retries to rate limiting, server-side failures and
// transport errors.
func isRetriable(err error) bool {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
