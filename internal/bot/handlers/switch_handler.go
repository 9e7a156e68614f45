package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewEnableHandler returns a handler for the /enable command.
func NewEnableHandler(deps HandlerDeps) bot.HandlerFunc {
	return switchHandler{deps: deps, enable: true}.Handle
}

// NewDisableHandler returns a handler for the /disable command.
func NewDisableHandler(deps HandlerDeps) bot.HandlerFunc {
	return switchHandler{deps: deps, enable: false}.Handle
}

// switchHandler flips the processing switch.
type switchHandler struct {
	deps   HandlerDeps
	enable bool
}

func (h switchHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "switch")
	if update.Message == nil || update.Message.From == nil {
		return
	}

	text := h.apply()
	log.InfoContext(ctx, "Processing switch changed by admin", "enabled", h.enable, "admin_id", update.Message.From.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, text)
}

// apply sets the switch and returns the confirmation text.
func (h switchHandler) apply() string {
	if h.enable {
		h.deps.Switch.Enable()
		return h.deps.Config.Messages.Enabled
	}
	h.deps.Switch.Disable()
	return h.deps.Config.Messages.Disabled
}
