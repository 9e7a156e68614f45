package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration. Values come from config.yaml
// and can be overridden by environment variables prefixed with BOT_
// (e.g., BOT_TELEGRAM_TOKEN, BOT_LLM_API_KEY).
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Article   ArticleConfig   `mapstructure:"article"`
	Thread    ThreadConfig    `mapstructure:"thread"`
	Bot       BotConfig       `mapstructure:"bot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and the admin allowlist.
type TelegramConfig struct {
	Token    string  `mapstructure:"token"     validate:"required"`
	AdminIDs []int64 `mapstructure:"admin_ids" validate:"required,min=1,dive,gt=0"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// DatabaseConfig selects the message store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `mapstructure:"dsn" validate:"required"`
}

// LLMConfig configures the language model used for classification and
// answer synthesis.
type LLMConfig struct {
	Provider            string        `mapstructure:"provider"             validate:"required,oneof=gemini openai"`
	APIKey              string        `mapstructure:"api_key"              validate:"required"`
	BaseURL             string        `mapstructure:"base_url"             validate:"omitempty,url"`
	Model               string        `mapstructure:"model"                validate:"required"`
	Temperature         float32       `mapstructure:"temperature"          validate:"min=0,max=2"`
	MaxRetries          int           `mapstructure:"max_retries"          validate:"min=0,max=10"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"          validate:"min=0"`
	Timeout             time.Duration `mapstructure:"timeout"              validate:"min=1s,max=10m"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" validate:"gt=0,lte=1"`
	// BreakerFailures consecutive failures open the circuit for BreakerTimeout.
	// Zero disables the breaker.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=0"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"  validate:"min=0"`
	// PlainText strips markdown from generated answers.
	PlainText bool `mapstructure:"plain_text"`
}

// ArticleConfig configures article downloads.
type ArticleConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"        validate:"min=1s"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
}

// ThreadConfig tunes the comment pipeline.
type ThreadConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"  validate:"min=1ms"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout" validate:"min=0"`
	MaxArticles   int           `mapstructure:"max_articles"   validate:"min=1"`
}

// BotConfig holds runtime behaviour of the bot itself.
type BotConfig struct {
	EnabledOnStart      bool   `mapstructure:"enabled_on_start"`
	NotifyAdminsOnStart bool   `mapstructure:"notify_admins_on_start"`
	Timezone            string `mapstructure:"timezone" validate:"required,timezone"`
}

// SchedulerConfig lists the periodic tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a registered task on a cron schedule (with seconds).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds the texts the bot sends to admins.
type MessagesConfig struct {
	Start         string `mapstructure:"start"          validate:"required"`
	Startup       string `mapstructure:"startup"        validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
	// Status is a format string: state, then the formatted time.
	Status        string `mapstructure:"status"         validate:"required"`
	StatusOn      string `mapstructure:"status_on"      validate:"required"`
	StatusOff     string `mapstructure:"status_off"     validate:"required"`
	Enabled       string `mapstructure:"enabled"        validate:"required"`
	Disabled      string `mapstructure:"disabled"       validate:"required"`
	RepliesUsage  string `mapstructure:"replies_usage"  validate:"required"`
	RepliesNone   string `mapstructure:"replies_none"   validate:"required"`
	RepliesHeader string `mapstructure:"replies_header" validate:"required"`
}
