package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
)

// ensureWishChat registers the chat and seeds its ping schedule. Every
// wishlist command path goes through here so a chat that only ever lists or
// completes wishes still receives summary pings. Seeding leaves the next ping
// unset; the first sweep initializes it.
func ensureWishChat(ctx context.Context, deps HandlerDeps, tgChat models.Chat) (*database.Chat, error) {
	chat, err := deps.Store.GetOrCreateChat(ctx, tgChat.ID, tgChat.Title, deps.Config.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	if _, err := deps.Store.GetOrInitPingSchedule(ctx, tgChat.ID, chat.Timezone); err != nil {
		return nil, err
	}
	return chat, nil
}
