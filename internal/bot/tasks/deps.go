// Package tasks implements the scheduled background tasks for both bots:
// check-in reminders, daily attendance rollups, and wishlist ping sweeps.
package tasks

import (
	"context"
	"log/slog"

	"github.com/dvelkov/dutybot/internal/config"
	"github.com/dvelkov/dutybot/internal/database"
)

// Notifier dispatches one outbound notification to a chat.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Notifier Notifier
	Config   *config.Config
}
