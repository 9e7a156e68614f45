package config

import "time"

// defaults lists every key with a default value. Keys listed here are also
// resolvable from BOT_* environment variables.
var defaults = map[string]any{
	"logger.level": "info",
	"logger.json":  false,

	"telegram.token":     "",
	"telegram.admin_ids": []int64{},

	"database.driver": "sqlite",
	"database.dsn":    "storage.db",

	"llm.provider":             "gemini",
	"llm.api_key":              "",
	"llm.base_url":             "",
	"llm.model":                "gemini-2.0-flash",
	"llm.temperature":          0.2,
	"llm.max_retries":          2,
	"llm.retry_delay":          2 * time.Second,
	"llm.timeout":              time.Minute,
	"llm.confidence_threshold": 0.7,
	"llm.breaker_failures":     5,
	"llm.breaker_timeout":      time.Minute,
	"llm.plain_text":           true,

	"article.user_agent":     "Mozilla/5.0 (compatible; commentqa/1.0)",
	"article.timeout":        30 * time.Second,
	"article.max_body_bytes": 5 << 20,

	"thread.poll_interval":  time.Second,
	"thread.settle_timeout": 8 * time.Second,
	"thread.max_articles":   3,

	"bot.enabled_on_start":       true,
	"bot.notify_admins_on_start": true,
	"bot.timezone":               "Europe/Moscow",

	"scheduler.tasks": map[string]any{
		"sql_maintenance": map[string]any{
			"enabled":  true,
			"schedule": "0 0 4 * * 0",
		},
	},

	"messages.start":          "🤖 Bot answering questions in post comments.\n\nCommands:\n/status - current state\n/enable - start answering\n/disable - stop answering\n/replies <message id> - stored replies to a message",
	"messages.startup":        "🤖 Bot started and ready to work!",
	"messages.not_authorized": "Access denied",
	"messages.status":         "Status: %s\nTime: %s",
	"messages.status_on":      "🟢 Enabled",
	"messages.status_off":     "🔴 Disabled",
	"messages.enabled":        "🟢 Bot enabled",
	"messages.disabled":       "🔴 Bot disabled",
	"messages.replies_usage":  "Usage: /replies <message id>",
	"messages.replies_none":   "No stored replies.",
	"messages.replies_header": "Replies to %s:",
}
