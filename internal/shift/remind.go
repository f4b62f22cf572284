package shift

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
)

// ReminderStore is the slice of the data layer the reminder engine needs.
// All operations are reads; the engine has no write side effects.
type ReminderStore interface {
	GetWindowConfig(ctx context.Context, chatID int64) (*database.WindowConfig, error)
	ListAuthorizedOperators(ctx context.Context, chatID int64) ([]database.Membership, error)
	ListCheckins(ctx context.Context, chatID int64, date string, kind *database.WindowKind) ([]database.Checkin, error)
}

// Reminder finds authorized operators who have not checked in for the
// currently open window of a chat.
type Reminder struct {
	store  ReminderStore
	logger *slog.Logger
}

// NewReminder creates a Reminder.
func NewReminder(store ReminderStore, logger *slog.Logger) *Reminder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		store:  store,
		logger: logger.With("component", "reminder"),
	}
}

// FindMissing resolves the chat's effective window configuration, checks the
// weekend policy and the open window, and returns the operators missing a
// check-in for that window on the chat-local date. An empty slice means no
// reminder is due (closed window, excluded day, disabled alerts, missing
// config, or everyone checked in).
func (r *Reminder) FindMissing(ctx context.Context, chat *database.Chat, nowUTC time.Time) (database.WindowKind, []database.Membership, error) {
	cfg, err := r.store.GetWindowConfig(ctx, chat.ID)
	if err != nil {
		return "", nil, fmt.Errorf("find missing for chat %d: %w", chat.ChatID, err)
	}
	if cfg == nil {
		r.logger.DebugContext(ctx, "Skipping reminders, no window config", "chat_id", chat.ChatID)
		return "", nil, nil
	}
	if !cfg.AlertsEnabled {
		return "", nil, nil
	}

	local, err := InZone(nowUTC, EffectiveTimezone(chat, cfg))
	if err != nil {
		return "", nil, fmt.Errorf("find missing for chat %d: %w", chat.ChatID, err)
	}
	if IsExcluded(cfg, local) {
		return "", nil, nil
	}

	kind, open := Classify(cfg, local)
	if !open {
		return "", nil, nil
	}

	roster, err := r.store.ListAuthorizedOperators(ctx, chat.ID)
	if err != nil {
		return "", nil, fmt.Errorf("find missing for chat %d: %w", chat.ChatID, err)
	}
	if len(roster) == 0 {
		return "", nil, nil
	}

	events, err := r.store.ListCheckins(ctx, chat.ID, DateOf(local), &kind)
	if err != nil {
		return "", nil, fmt.Errorf("find missing for chat %d: %w", chat.ChatID, err)
	}

	done := make(map[int64]struct{}, len(events))
	for _, ev := range events {
		done[ev.UserID] = struct{}{}
	}

	var missing []database.Membership
	for _, m := range roster {
		if _, ok := done[m.UserID]; !ok {
			missing = append(missing, m)
		}
	}
	return kind, missing, nil
}
