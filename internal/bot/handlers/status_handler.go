package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatusHandler returns a handler for the /status command.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps: deps, now: time.Now}.Handle
}

type statusHandler struct {
	deps HandlerDeps
	now  func() time.Time
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")
	if update.Message == nil {
		return
	}

	log.InfoContext(ctx, "Handling /status command", "chat_id", update.Message.Chat.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, h.text())
}

func (h statusHandler) text() string {
	msgs := h.deps.Config.Messages
	state := msgs.StatusOff
	if h.deps.Switch.Enabled() {
		state = msgs.StatusOn
	}
	return fmt.Sprintf(msgs.Status, state, h.deps.Config.FormatNow(h.now()))
}
