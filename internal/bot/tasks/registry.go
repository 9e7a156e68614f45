package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context is
// cancelled when the scheduler stops.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names as used under scheduler.tasks in the configuration.
const (
	SQLMaintenanceTask = "sql_maintenance"
)

// RegisterAllTasks returns every known task keyed by its configuration name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		SQLMaintenanceTask: newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
