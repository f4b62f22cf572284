package shift_test

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
	"github.com/dvelkov/dutybot/internal/shift"
)

type fakeAggregateStore struct {
	cfg     *database.WindowConfig
	roster  []database.Membership
	events  []database.Checkin
	upserts []database.DailyRollup
}

func (f *fakeAggregateStore) GetWindowConfig(_ context.Context, _ int64) (*database.WindowConfig, error) {
	return f.cfg, nil
}

func (f *fakeAggregateStore) ListAuthorizedOperators(_ context.Context, _ int64) ([]database.Membership, error) {
	return f.roster, nil
}

func (f *fakeAggregateStore) ListCheckins(_ context.Context, _ int64, _ string, _ *database.WindowKind) ([]database.Checkin, error) {
	return f.events, nil
}

func (f *fakeAggregateStore) UpsertDailyRollup(_ context.Context, r *database.DailyRollup) error {
	f.upserts = append(f.upserts, *r)
	return nil
}

func operator(userID int64) database.Membership {
	return database.Membership{UserID: userID, Role: database.RoleOperator, Authorized: true}
}

func TestBuildRollup(t *testing.T) {
	t.Parallel()

	roster := []database.Membership{operator(1), operator(2)}
	events := []database.Checkin{
		{UserID: 1, Kind: database.WindowMorning, CheckinDate: "2025-06-10"},
	}

	rollup := shift.BuildRollup(7, "2025-06-10", roster, events)

	if rollup.MorningCnt != 1 || rollup.EveningCnt != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", rollup.MorningCnt, rollup.EveningCnt)
	}
	if rollup.TotalOperators != 2 {
		t.Fatalf("TotalOperators = %d, want 2", rollup.TotalOperators)
	}
	if !reflect.DeepEqual(rollup.Misses.Morning, []int64{2}) {
		t.Errorf("Misses.Morning = %v, want [2]", rollup.Misses.Morning)
	}
	if !reflect.DeepEqual(rollup.Misses.Evening, []int64{1, 2}) {
		t.Errorf("Misses.Evening = %v, want [1 2]", rollup.Misses.Evening)
	}
}

func TestBuildRollupEmptyRoster(t *testing.T) {
	t.Parallel()

	rollup := shift.BuildRollup(7, "2025-06-10", nil, nil)

	if rollup.Misses.Morning == nil || rollup.Misses.Evening == nil {
		t.Fatal("miss lists must be non-nil even when empty")
	}
	if len(rollup.Misses.Morning) != 0 || len(rollup.Misses.Evening) != 0 {
		t.Fatalf("expected empty miss lists, got %v / %v", rollup.Misses.Morning, rollup.Misses.Evening)
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	store := &fakeAggregateStore{
		cfg:    testConfig(),
		roster: []database.Membership{operator(1), operator(2)},
		events: []database.Checkin{
			{UserID: 1, Kind: database.WindowMorning, CheckinDate: "2025-06-10"},
		},
	}
	agg := shift.NewAggregator(store, nil)
	chat := &database.Chat{ID: 7, ChatID: -100, Timezone: "Europe/Sofia"}

	rollup, err := agg.Aggregate(context.Background(), chat, "2025-06-10")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if rollup == nil {
		t.Fatal("expected a rollup")
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	if got := store.upserts[0]; got.MorningCnt != 1 || got.EveningCnt != 0 || got.TotalOperators != 2 {
		t.Fatalf("persisted rollup = %+v", got)
	}
}

func TestAggregateCountsOnlyAuthorizedOperators(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	ctx := context.Background()
	chat, err := store.GetOrCreateChat(ctx, -100, "crew", "Europe/Sofia")
	if err != nil {
		t.Fatalf("GetOrCreateChat: %v", err)
	}

	cfg := testConfig()
	cfg.ChatID = sql.NullInt64{Int64: chat.ID, Valid: true}
	cfg.Timezone = chat.Timezone
	if err := store.SaveWindowConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveWindowConfig: %v", err)
	}

	for _, m := range []database.Membership{
		{UserID: 1, ChatID: chat.ID, Role: database.RoleOperator, Authorized: true},
		{UserID: 2, ChatID: chat.ID, Role: database.RoleOperator, Authorized: false},
	} {
		if err := store.UpsertMembership(ctx, &m); err != nil {
			t.Fatalf("UpsertMembership(%d): %v", m.UserID, err)
		}
	}

	err = store.CreateCheckin(ctx, &database.Checkin{
		UserID:       1,
		ChatID:       chat.ID,
		Kind:         database.WindowMorning,
		PhotoFileID:  "file-1",
		FileUniqueID: "uniq-1",
		CheckinDate:  "2025-06-10",
	})
	if err != nil {
		t.Fatalf("CreateCheckin: %v", err)
	}

	agg := shift.NewAggregator(store, nil)
	rollup, err := agg.Aggregate(ctx, chat, "2025-06-10")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if rollup == nil {
		t.Fatal("expected a rollup")
	}

	// The de-authorized operator is invisible: not counted in the total and
	// never listed as missing.
	if rollup.TotalOperators != 1 {
		t.Fatalf("TotalOperators = %d, want 1", rollup.TotalOperators)
	}
	if len(rollup.Misses.Morning) != 0 {
		t.Fatalf("Misses.Morning = %v, want empty", rollup.Misses.Morning)
	}
	if !reflect.DeepEqual(rollup.Misses.Evening, []int64{1}) {
		t.Fatalf("Misses.Evening = %v, want [1]", rollup.Misses.Evening)
	}
}

func TestAggregateSkipsUnconfiguredChat(t *testing.T) {
	t.Parallel()

	store := &fakeAggregateStore{cfg: nil}
	agg := shift.NewAggregator(store, nil)
	chat := &database.Chat{ID: 7, ChatID: -100, Timezone: "Europe/Sofia"}

	rollup, err := agg.Aggregate(context.Background(), chat, "2025-06-10")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if rollup != nil {
		t.Fatalf("expected no rollup, got %+v", rollup)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("expected no upserts, got %d", len(store.upserts))
	}
}

func TestTargetDate(t *testing.T) {
	t.Parallel()

	chat := &database.Chat{Timezone: "Europe/Sofia"}

	tests := []struct {
		name   string
		nowUTC time.Time
		want   string
	}{
		{
			// 21:30 UTC is already past local midnight (EEST, UTC+3).
			name:   "past local midnight",
			nowUTC: time.Date(2025, 6, 10, 21, 30, 0, 0, time.UTC),
			want:   "2025-06-10",
		},
		{
			name:   "before local midnight",
			nowUTC: time.Date(2025, 6, 10, 20, 30, 0, 0, time.UTC),
			want:   "2025-06-09",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := shift.TargetDate(chat, tc.nowUTC)
			if err != nil {
				t.Fatalf("TargetDate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("TargetDate(%s) = %s, want %s", tc.nowUTC, got, tc.want)
			}
		})
	}
}
