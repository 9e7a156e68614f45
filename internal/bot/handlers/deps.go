package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/commentqa/internal/config"
	"github.com/edgard/commentqa/internal/database"
	"github.com/edgard/commentqa/internal/thread"
)

// Pipeline is the comment pipeline the group handler feeds.
type Pipeline interface {
	Handle(ctx context.Context, in thread.Incoming) thread.Outcome
	HandleEdit(ctx context.Context, in thread.Incoming) thread.Outcome
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline Pipeline
	Switch   *thread.Switch
}
