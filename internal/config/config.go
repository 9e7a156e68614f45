// Package config loads, defaults and validates the bot configuration from a
// YAML file, an optional .env file and BOT_* environment variables.
package config

import (
	"time"

	"github.com/edgard/commentqa/internal/llm"
	"github.com/edgard/commentqa/internal/thread"
)

// OracleConfig converts the llm section for llm.New.
func (c *LLMConfig) OracleConfig() llm.Config {
	return llm.Config{
		Provider:    c.Provider,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxRetries:  c.MaxRetries,
		RetryDelay:  c.RetryDelay,
		Timeout:     c.Timeout,
	}
}

// BreakerConfig converts the llm breaker settings for llm.WithBreaker.
func (c *LLMConfig) BreakerConfig() llm.BreakerConfig {
	return llm.BreakerConfig{MaxFailures: c.BreakerFailures, OpenTimeout: c.BreakerTimeout}
}

// PipelineConfig converts the thread section for thread.NewOrchestrator.
func (c *ThreadConfig) PipelineConfig() thread.Config {
	return thread.Config{
		PollInterval:  c.PollInterval,
		SettleTimeout: c.SettleTimeout,
		MaxArticles:   c.MaxArticles,
	}
}

// FormatNow renders the current time in the configured zone.
func (c *Config) FormatNow(now time.Time) string {
	return now.In(c.Location()).Format("02.01.2006 15:04:05 MST")
}
