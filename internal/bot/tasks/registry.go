package tasks

import (
	"context"
)

// ScheduledTaskFunc is the standard signature for all scheduled tasks. The
// context provided by the scheduler must be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterShiftTasks returns the task map for the shift bot. Map keys match
// the task names in the scheduler section of config.yaml.
func RegisterShiftTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"reminders":    newRemindersTask(deps),
		"daily_rollup": newDailyRollupTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

// RegisterWishlistTasks returns the task map for the wishlist bot.
func RegisterWishlistTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"ping_sweep": newPingSweepTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
