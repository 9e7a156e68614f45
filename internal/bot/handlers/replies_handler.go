package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/commentqa/internal/database"
)

const (
	replyPreviewLength = 120
	// maxMessageLength stays under Telegram's 4096 character limit.
	maxMessageLength = 4000
)

// NewRepliesHandler returns a handler for the /replies command, which lists
// the stored children of a message given by its Telegram id.
func NewRepliesHandler(deps HandlerDeps) bot.HandlerFunc {
	return repliesHandler{deps}.Handle
}

type repliesHandler struct {
	deps HandlerDeps
}

func (h repliesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "replies")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, ok := parseExternalIDArg(update.Message.Text)
	if !ok {
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.RepliesUsage)
		return
	}

	log.InfoContext(ctx, "Handling /replies command", "chat_id", chatID, "telegram_id", id.String())
	sendText(ctx, b, log, chatID, h.text(ctx, id))
}

func (h repliesHandler) text(ctx context.Context, id database.ExternalID) string {
	msgs := h.deps.Config.Messages

	parent, ok := h.deps.Store.FindByExternalID(ctx, id)
	if !ok {
		return msgs.RepliesNone
	}
	children := h.deps.Store.FindChildren(ctx, parent.ID)
	if len(children) == 0 {
		return msgs.RepliesNone
	}
	return formatReplies(fmt.Sprintf(msgs.RepliesHeader, id.String()), children)
}

// parseExternalIDArg reads the first argument of a command: digits select a
// platform id, anything else a synthetic id.
func parseExternalIDArg(text string) (database.ExternalID, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return database.ExternalID{}, false
	}
	arg := fields[1]
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return database.PlatformID(n), true
	}
	id := database.SyntheticID(arg)
	return id, !id.IsZero()
}

func formatReplies(header string, children []*database.Message) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, m := range children {
		author := "unknown"
		if m.Username != nil && *m.Username != "" {
			author = "@" + *m.Username
		} else if m.UserID != nil {
			author = strconv.FormatInt(*m.UserID, 10)
		}
		line := fmt.Sprintf("\n• [%s] %s: %s", m.TelegramID.String(), author, preview(m.Text, replyPreviewLength))
		if utf8.RuneCountInString(sb.String())+utf8.RuneCountInString(line) > maxMessageLength {
			sb.WriteString("\n…")
			break
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func preview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "…"
}
