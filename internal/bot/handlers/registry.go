package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns the admin commands keyed by command name. Group
// messages are not registered here; they go to the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	command := func(name string, h tgbot.HandlerFunc) RegisteredHandler {
		return RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  adminMiddleware,
		}
	}

	return map[string]RegisteredHandler{
		"/start":   command("start", NewStartHandler(deps)),
		"/status":  command("status", NewStatusHandler(deps)),
		"/enable":  command("enable", NewEnableHandler(deps)),
		"/disable": command("disable", NewDisableHandler(deps)),
		"/replies": command("replies", NewRepliesHandler(deps)),
	}
}
