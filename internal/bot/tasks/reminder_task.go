package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
	"github.com/dvelkov/dutybot/internal/shift"
)

// newRemindersTask creates the scheduled task that nudges operators who have
// not checked in for the currently open window. Failures are contained per
// chat so one bad chat never blocks the rest of the tick.
func newRemindersTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "reminders")
	reminder := shift.NewReminder(deps.Store, deps.Logger)

	return func(ctx context.Context) error {
		chats, err := deps.Store.ListChats(ctx)
		if err != nil {
			return fmt.Errorf("reminders: %w", err)
		}

		now := time.Now().UTC()
		for i := range chats {
			chat := &chats[i]

			kind, missing, err := reminder.FindMissing(ctx, chat, now)
			if err != nil {
				log.ErrorContext(ctx, "Reminder check failed for chat", "chat_id", chat.ChatID, "error", err)
				continue
			}
			if len(missing) == 0 {
				continue
			}

			text := reminderText(kind, missing)
			if err := deps.Notifier.Send(ctx, chat.ChatID, text); err != nil {
				log.ErrorContext(ctx, "Failed to send reminder", "chat_id", chat.ChatID, "error", err)
				continue
			}
			log.InfoContext(ctx, "Reminder sent", "chat_id", chat.ChatID, "kind", kind, "missing", len(missing))
		}
		return nil
	}
}

func reminderText(kind database.WindowKind, missing []database.Membership) string {
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		if m.DisplayName.Valid && m.DisplayName.String != "" {
			names = append(names, m.DisplayName.String)
		} else {
			names = append(names, fmt.Sprintf("operator %d", m.UserID))
		}
	}

	label := "morning"
	if kind == database.WindowEvening {
		label = "evening"
	}
	return fmt.Sprintf("The %s check-in window is open. Still waiting for: %s",
		label, strings.Join(names, ", "))
}
