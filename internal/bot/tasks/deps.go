// Package tasks implements the periodic jobs run by the bot scheduler.
package tasks

import (
	"context"
	"log/slog"
)

// MaintenanceStore is the part of the message store used by tasks.
type MaintenanceStore interface {
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains the dependencies of scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  MaintenanceStore
}
