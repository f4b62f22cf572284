package shift_test

import (
	"context"
	"testing"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
	"github.com/dvelkov/dutybot/internal/shift"
)

type fakeReminderStore struct {
	cfg    *database.WindowConfig
	roster []database.Membership
	events []database.Checkin
}

func (f *fakeReminderStore) GetWindowConfig(_ context.Context, _ int64) (*database.WindowConfig, error) {
	return f.cfg, nil
}

func (f *fakeReminderStore) ListAuthorizedOperators(_ context.Context, _ int64) ([]database.Membership, error) {
	return f.roster, nil
}

func (f *fakeReminderStore) ListCheckins(_ context.Context, _ int64, date string, kind *database.WindowKind) ([]database.Checkin, error) {
	var out []database.Checkin
	for _, ev := range f.events {
		if ev.CheckinDate == date && (kind == nil || ev.Kind == *kind) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func TestFindMissing(t *testing.T) {
	t.Parallel()

	// Tuesday 04:30 UTC is 07:30 in Sofia (EEST), inside the morning window.
	tuesdayMorning := time.Date(2025, 6, 10, 4, 30, 0, 0, time.UTC)
	chat := &database.Chat{ID: 7, ChatID: -100, Timezone: "Europe/Sofia"}

	store := &fakeReminderStore{
		cfg:    testConfig(),
		roster: []database.Membership{operator(1), operator(2)},
		events: []database.Checkin{
			{UserID: 1, Kind: database.WindowMorning, CheckinDate: "2025-06-10"},
		},
	}
	reminder := shift.NewReminder(store, nil)

	kind, missing, err := reminder.FindMissing(context.Background(), chat, tuesdayMorning)
	if err != nil {
		t.Fatalf("FindMissing: %v", err)
	}
	if kind != database.WindowMorning {
		t.Fatalf("kind = %s, want MORNING", kind)
	}
	if len(missing) != 1 || missing[0].UserID != 2 {
		t.Fatalf("missing = %+v, want operator 2 only", missing)
	}
}

func TestFindMissingQuietCases(t *testing.T) {
	t.Parallel()

	tuesdayMorning := time.Date(2025, 6, 10, 4, 30, 0, 0, time.UTC)
	roster := []database.Membership{operator(1), operator(2)}

	disabled := testConfig()
	disabled.AlertsEnabled = false

	tests := []struct {
		name   string
		store  *fakeReminderStore
		nowUTC time.Time
	}{
		{
			name:   "no window config",
			store:  &fakeReminderStore{cfg: nil, roster: roster},
			nowUTC: tuesdayMorning,
		},
		{
			name:   "alerts disabled",
			store:  &fakeReminderStore{cfg: disabled, roster: roster},
			nowUTC: tuesdayMorning,
		},
		{
			name:  "weekend excluded",
			store: &fakeReminderStore{cfg: testConfig(), roster: roster},
			// Saturday 04:30 UTC.
			nowUTC: time.Date(2025, 6, 7, 4, 30, 0, 0, time.UTC),
		},
		{
			name:  "window closed",
			store: &fakeReminderStore{cfg: testConfig(), roster: roster},
			// Tuesday 12:00 UTC is 15:00 in Sofia, between windows.
			nowUTC: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name:   "empty roster",
			store:  &fakeReminderStore{cfg: testConfig()},
			nowUTC: tuesdayMorning,
		},
		{
			name: "everyone checked in",
			store: &fakeReminderStore{
				cfg:    testConfig(),
				roster: roster,
				events: []database.Checkin{
					{UserID: 1, Kind: database.WindowMorning, CheckinDate: "2025-06-10"},
					{UserID: 2, Kind: database.WindowMorning, CheckinDate: "2025-06-10"},
				},
			},
			nowUTC: tuesdayMorning,
		},
	}

	chat := &database.Chat{ID: 7, ChatID: -100, Timezone: "Europe/Sofia"}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reminder := shift.NewReminder(tc.store, nil)
			_, missing, err := reminder.FindMissing(context.Background(), chat, tc.nowUTC)
			if err != nil {
				t.Fatalf("FindMissing: %v", err)
			}
			if len(missing) != 0 {
				t.Fatalf("expected no reminder, got missing = %+v", missing)
			}
		})
	}
}
