package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/dvelkov/dutybot/internal/shift"
)

// newDailyRollupTask creates the scheduled task that aggregates yesterday's
// attendance for every chat. "Yesterday" is computed per chat from that
// chat's timezone, not from a single global midnight.
func newDailyRollupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_rollup")
	aggregator := shift.NewAggregator(deps.Store, deps.Logger)

	return func(ctx context.Context) error {
		chats, err := deps.Store.ListChats(ctx)
		if err != nil {
			return fmt.Errorf("daily rollup: %w", err)
		}

		now := time.Now().UTC()
		for i := range chats {
			chat := &chats[i]

			date, err := shift.TargetDate(chat, now)
			if err != nil {
				log.ErrorContext(ctx, "Failed to resolve rollup date for chat", "chat_id", chat.ChatID, "error", err)
				continue
			}

			if _, err := aggregator.Aggregate(ctx, chat, date); err != nil {
				log.ErrorContext(ctx, "Rollup failed for chat", "chat_id", chat.ChatID, "date", date, "error", err)
				continue
			}
		}
		return nil
	}
}
