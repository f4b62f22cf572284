package tasks

import (
	"context"
	"time"

	"github.com/dvelkov/dutybot/internal/wishlist"
)

// newPingSweepTask creates the scheduled task that runs the wishlist ping
// sweep: seeding fresh schedules and dispatching summaries for due chats.
func newPingSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "ping_sweep")
	pinger := wishlist.NewPinger(
		deps.Store,
		deps.Notifier.Send,
		deps.Config.Wishlist.PingIntervalDays,
		deps.Logger,
	)

	return func(ctx context.Context) error {
		pinged, err := pinger.Sweep(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if pinged > 0 {
			log.InfoContext(ctx, "Ping sweep completed", "pinged", pinged)
		}
		return nil
	}
}
