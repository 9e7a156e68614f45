package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/commentqa/internal/thread"
)

// NewGroupMessageHandler returns the default handler. It feeds new group
// messages to the comment pipeline and applies edits of stored ones; updates
// from other chat types are ignored.
func NewGroupMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return groupMessageHandler{deps}.Handle
}

type groupMessageHandler struct {
	deps HandlerDeps
}

func (h groupMessageHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "group_message")

	switch {
	case update.Message != nil:
		in, ok := toIncoming(update.Message)
		if !ok {
			log.DebugContext(ctx, "Ignoring message", "update_id", update.ID, "chat_type", update.Message.Chat.Type)
			return
		}
		out := h.deps.Pipeline.Handle(ctx, in)
		log.InfoContext(ctx, "Message processed", "message_id", in.MessageID, "state", out.State, "reason", out.Reason)
	case update.EditedMessage != nil:
		in, ok := toIncoming(update.EditedMessage)
		if !ok {
			return
		}
		out := h.deps.Pipeline.HandleEdit(ctx, in)
		log.DebugContext(ctx, "Edit processed", "message_id", in.MessageID, "state", out.State, "reason", out.Reason)
	default:
		log.DebugContext(ctx, "Ignoring unsupported update", "update_id", update.ID)
	}
}

// toIncoming converts a group or supergroup message with text or a caption.
// Automatic forwards of channel posts are skipped: the posts are recorded by
// the publishing side.
func toIncoming(msg *models.Message) (thread.Incoming, bool) {
	if msg.Chat.Type != models.ChatTypeGroup && msg.Chat.Type != models.ChatTypeSupergroup {
		return thread.Incoming{}, false
	}
	if msg.IsAutomaticForward {
		return thread.Incoming{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return thread.Incoming{}, false
	}

	in := thread.Incoming{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		Text:      text,
	}
	if msg.From != nil {
		userID := msg.From.ID
		in.UserID = &userID
		if msg.From.Username != "" {
			username := msg.From.Username
			in.Username = &username
		}
	}
	if msg.ReplyToMessage != nil {
		in.ReplyTo = int64(msg.ReplyToMessage.ID)
	}
	return in, true
}
