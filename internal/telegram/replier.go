package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender is the subset of *bot.Bot used to post messages.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Replier posts plain-text replies to chat messages.
type Replier struct {
	sender Sender
	log    *slog.Logger
}

// NewReplier creates a Replier sending through sender.
func NewReplier(sender Sender, logger *slog.Logger) *Replier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replier{sender: sender, log: logger.With("component", "telegram_replier")}
}

// Reply sends text as a reply to replyToMessageID in chatID. No parse mode is
// set and link previews are disabled.
func (r *Replier) Reply(ctx context.Context, chatID, replyToMessageID int64, text string) error {
	sent, err := r.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyParameters: &models.ReplyParameters{
			MessageID: int(replyToMessageID),
			ChatID:    chatID,
		},
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		return fmt.Errorf("failed to send reply to message %d: %w", replyToMessageID, err)
	}

	r.log.DebugContext(ctx, "Reply sent", "chat_id", chatID, "reply_to", replyToMessageID, "message_id", sent.ID)
	return nil
}

// NotifyAdmins sends text to every admin in a private chat. Failures are
// logged per admin and do not stop the others. It returns how many
// notifications were delivered.
func NotifyAdmins(ctx context.Context, sender Sender, logger *slog.Logger, adminIDs []int64, text string) int {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "admin_notifier")

	delivered := 0
	for _, adminID := range adminIDs {
		_, err := sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:             adminID,
			Text:               text,
			LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to notify admin", "admin_id", adminID, "error", err)
			continue
		}
		delivered++
	}
	log.InfoContext(ctx, "Admins notified", "delivered", delivered, "total", len(adminIDs))
	return delivered
}
