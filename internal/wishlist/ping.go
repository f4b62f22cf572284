// Package wishlist implements the wishlist bot domain logic: the periodic
// ping scheduler and the summary text it sends.
package wishlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
)

// pingHour is the local hour of day every ping is clamped to.
const pingHour = 10

// NextPing computes the next ping instant: the current moment in the chat's
// timezone, advanced by the given number of calendar days, clamped to local
// 10:00:00, converted back to UTC. The same rule seeds the first schedule
// and advances it after every ping.
func NextPing(nowUTC time.Time, tz string, days int) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	local := nowUTC.In(loc).AddDate(0, 0, days)
	next := time.Date(local.Year(), local.Month(), local.Day(), pingHour, 0, 0, 0, loc)
	return next.UTC(), nil
}

// PingStore is the slice of the data layer the ping sweep needs.
type PingStore interface {
	ListPingSchedules(ctx context.Context) ([]database.PingSchedule, error)
	ListDuePings(ctx context.Context, now time.Time) ([]database.PingSchedule, error)
	SetNextPing(ctx context.Context, chatID int64, at time.Time) error
	CountOpenByHorizon(ctx context.Context, chatID int64) (int, map[string]int, error)
	RandomOpenWish(ctx context.Context, chatID int64) (*database.Wish, error)
	NearestDatedWish(ctx context.Context, chatID int64) (*database.Wish, error)
}

// SendFunc dispatches one summary notification to a chat.
type SendFunc func(ctx context.Context, chatID int64, text string) error

// Pinger runs the periodic ping sweep: it seeds schedules that have no next
// ping yet and, for every due chat, dispatches a summary and reschedules.
type Pinger struct {
	store        PingStore
	send         SendFunc
	intervalDays int
	logger       *slog.Logger
}

// NewPinger creates a Pinger. intervalDays is the local-calendar gap
// between pings for one chat.
func NewPinger(store PingStore, send SendFunc, intervalDays int, logger *slog.Logger) *Pinger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pinger{
		store:        store,
		send:         send,
		intervalDays: intervalDays,
		logger:       logger.With("component", "pinger"),
	}
}

// Sweep seeds schedules that have no next ping yet, then pings every due
// chat. Failures are contained per chat: one chat's error is logged and the
// sweep moves on. Returns the number of pings dispatched.
func (p *Pinger) Sweep(ctx context.Context, nowUTC time.Time) (int, error) {
	schedules, err := p.store.ListPingSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("ping sweep: %w", err)
	}
	for _, sched := range schedules {
		if sched.NextPingAt.Valid {
			continue
		}
		if err := p.seedChat(ctx, &sched, nowUTC); err != nil {
			p.logger.ErrorContext(ctx, "Failed to seed ping schedule",
				"chat_id", sched.ChatID, "error", err)
		}
	}

	due, err := p.store.ListDuePings(ctx, nowUTC)
	if err != nil {
		return 0, fmt.Errorf("ping sweep: %w", err)
	}

	pinged := 0
	for _, sched := range due {
		if err := p.pingChat(ctx, &sched, nowUTC); err != nil {
			p.logger.ErrorContext(ctx, "Ping failed for chat",
				"chat_id", sched.ChatID, "error", err)
			continue
		}
		pinged++
	}
	return pinged, nil
}

func (p *Pinger) seedChat(ctx context.Context, sched *database.PingSchedule, nowUTC time.Time) error {
	next, err := NextPing(nowUTC, sched.Timezone, p.intervalDays)
	if err != nil {
		return err
	}
	if err := p.store.SetNextPing(ctx, sched.ChatID, next); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Seeded ping schedule",
		"chat_id", sched.ChatID, "next_ping_at", next)
	return nil
}

func (p *Pinger) pingChat(ctx context.Context, sched *database.PingSchedule, nowUTC time.Time) error {
	text, err := p.buildSummary(ctx, sched.ChatID)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}

	// Dispatch before advancing: a crash in between duplicates the ping on
	// the next sweep instead of losing it.
	if err := p.send(ctx, sched.ChatID, text); err != nil {
		return fmt.Errorf("dispatch summary: %w", err)
	}

	next, err := NextPing(nowUTC, sched.Timezone, p.intervalDays)
	if err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	if err := p.store.SetNextPing(ctx, sched.ChatID, next); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	p.logger.InfoContext(ctx, "Ping dispatched",
		"chat_id", sched.ChatID, "next_ping_at", next)
	return nil
}

func (p *Pinger) buildSummary(ctx context.Context, chatID int64) (string, error) {
	total, byHorizon, err := p.store.CountOpenByHorizon(ctx, chatID)
	if err != nil {
		return "", err
	}
	nearest, err := p.store.NearestDatedWish(ctx, chatID)
	if err != nil {
		return "", err
	}
	random, err := p.store.RandomOpenWish(ctx, chatID)
	if err != nil {
		return "", err
	}
	return BuildSummaryText(Summary{
		TotalOpen: total,
		ByHorizon: byHorizon,
		Nearest:   nearest,
		Random:    random,
	}), nil
}
