package shift

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
)

// AggregateStore is the slice of the data layer the aggregator needs.
type AggregateStore interface {
	GetWindowConfig(ctx context.Context, chatID int64) (*database.WindowConfig, error)
	ListAuthorizedOperators(ctx context.Context, chatID int64) ([]database.Membership, error)
	ListCheckins(ctx context.Context, chatID int64, date string, kind *database.WindowKind) ([]database.Checkin, error)
	UpsertDailyRollup(ctx context.Context, r *database.DailyRollup) error
}

// Aggregator computes per-chat per-day attendance rollups and persists them
// idempotently: recomputing a (chat, date) key overwrites the prior row.
type Aggregator struct {
	store  AggregateStore
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(store AggregateStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:  store,
		logger: logger.With("component", "aggregator"),
	}
}

// BuildRollup computes a rollup from a roster and a day's check-in events.
// Pure: partition events by window kind, count, and list each operator
// missing each window. Miss lists are always non-nil.
func BuildRollup(chatID int64, date string, roster []database.Membership, events []database.Checkin) database.DailyRollup {
	morningDone := make(map[int64]struct{})
	eveningDone := make(map[int64]struct{})
	for _, ev := range events {
		switch ev.Kind {
		case database.WindowMorning:
			morningDone[ev.UserID] = struct{}{}
		case database.WindowEvening:
			eveningDone[ev.UserID] = struct{}{}
		}
	}

	misses := database.MissSet{
		Morning: []int64{},
		Evening: []int64{},
	}
	for _, m := range roster {
		if _, ok := morningDone[m.UserID]; !ok {
			misses.Morning = append(misses.Morning, m.UserID)
		}
		if _, ok := eveningDone[m.UserID]; !ok {
			misses.Evening = append(misses.Evening, m.UserID)
		}
	}

	return database.DailyRollup{
		ChatID:         chatID,
		Date:           date,
		MorningCnt:     len(morningDone),
		EveningCnt:     len(eveningDone),
		TotalOperators: len(roster),
		Misses:         misses,
	}
}

// Aggregate computes and upserts the rollup for one chat and calendar date.
// A chat without any window configuration is skipped entirely; the absence
// of a rollup row distinguishes "not aggregated" from "all operators missed".
func (a *Aggregator) Aggregate(ctx context.Context, chat *database.Chat, date string) (*database.DailyRollup, error) {
	cfg, err := a.store.GetWindowConfig(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("aggregate chat %d: %w", chat.ChatID, err)
	}
	if cfg == nil {
		a.logger.DebugContext(ctx, "Skipping aggregation, no window config", "chat_id", chat.ChatID)
		return nil, nil
	}

	// Roster and events are read back to back on the single connection, so
	// one aggregation run observes one snapshot; check-ins landing after the
	// read are picked up by the next run. Only authorized operators count:
	// a de-authorized operator neither inflates the total nor shows up in
	// the miss lists.
	roster, err := a.store.ListAuthorizedOperators(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("aggregate chat %d: %w", chat.ChatID, err)
	}
	events, err := a.store.ListCheckins(ctx, chat.ID, date, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate chat %d: %w", chat.ChatID, err)
	}

	rollup := BuildRollup(chat.ID, date, roster, events)
	rollup.CreatedAt = time.Now().UTC()

	if err := a.store.UpsertDailyRollup(ctx, &rollup); err != nil {
		return nil, fmt.Errorf("aggregate chat %d: %w", chat.ChatID, err)
	}

	a.logger.InfoContext(ctx, "Rollup persisted",
		"chat_id", chat.ChatID,
		"date", date,
		"morning_cnt", rollup.MorningCnt,
		"evening_cnt", rollup.EveningCnt,
		"total_operators", rollup.TotalOperators)
	return &rollup, nil
}

// TargetDate returns "yesterday" in the chat's local timezone for a given
// UTC instant. Each chat's aggregation date is derived from its own
// timezone, not from a single global midnight.
func TargetDate(chat *database.Chat, nowUTC time.Time) (string, error) {
	local, err := InZone(nowUTC, chat.Timezone)
	if err != nil {
		return "", err
	}
	return DateOf(local.AddDate(0, 0, -1)), nil
}
