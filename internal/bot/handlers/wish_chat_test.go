package handlers

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/config"
	"github.com/dvelkov/dutybot/internal/database"
)

func newTestDeps(t *testing.T) HandlerDeps {
	t.Helper()

	db, err := database.NewDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return HandlerDeps{
		Store:  database.NewStore(db, nil),
		Config: &config.Config{DefaultTimezone: "Europe/Sofia"},
	}
}

// Every wishlist command registers the chat and seeds its ping schedule, so
// a chat that never uses /add still gets summary pings.
func TestEnsureWishChatSeedsPingSchedule(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	ctx := context.Background()
	tgChat := models.Chat{ID: -100, Title: "family"}

	chat, err := ensureWishChat(ctx, deps, tgChat)
	if err != nil {
		t.Fatalf("ensureWishChat: %v", err)
	}
	if chat.Timezone != "Europe/Sofia" {
		t.Fatalf("chat timezone = %s, want default", chat.Timezone)
	}

	schedules, err := deps.Store.ListPingSchedules(ctx)
	if err != nil {
		t.Fatalf("ListPingSchedules: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ChatID != -100 {
		t.Fatalf("schedules = %+v, want one for chat -100", schedules)
	}
	if schedules[0].NextPingAt.Valid {
		t.Fatal("seeded schedule must leave next ping unset for the sweep")
	}

	// A second pass is idempotent.
	if _, err := ensureWishChat(ctx, deps, tgChat); err != nil {
		t.Fatalf("ensureWishChat again: %v", err)
	}
	schedules, err = deps.Store.ListPingSchedules(ctx)
	if err != nil {
		t.Fatalf("ListPingSchedules: %v", err)
	}
	if len(schedules) != 1 {
		t.Fatalf("schedules = %d rows, want 1", len(schedules))
	}
}
