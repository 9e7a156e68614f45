// Package logger provides structured logging for the bot on top of log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ParseLevel maps a configured level name to a slog.Level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a slog Logger writing to stdout and installs it as the
// default logger. If jsonOutput is true, records are JSON, otherwise text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := newLogger(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Middleware creates a logging middleware for the Telegram bot.
// It logs every incoming update and the time spent handling it.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			logEntry := log.With(append([]any{"update_id", update.ID}, updateAttrs(update)...)...)

			logEntry.InfoContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func updateAttrs(update *models.Update) []any {
	var (
		updateType string
		msg        *models.Message
	)
	switch {
	case update.Message != nil:
		updateType, msg = "message", update.Message
	case update.EditedMessage != nil:
		updateType, msg = "edited_message", update.EditedMessage
	case update.ChannelPost != nil:
		updateType, msg = "channel_post", update.ChannelPost
	default:
		return []any{"update_type", "other"}
	}

	attrs := []any{
		"update_type", updateType,
		"message_id", msg.ID,
		"chat_id", msg.Chat.ID,
		"chat_type", msg.Chat.Type,
		"text_preview", truncateString(msg.Text, 50),
	}
	if msg.From != nil {
		attrs = append(attrs, "user_id", msg.From.ID)
	}
	if msg.ReplyToMessage != nil {
		attrs = append(attrs, "reply_to", msg.ReplyToMessage.ID)
	}
	return attrs
}

func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
