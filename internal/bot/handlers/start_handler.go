package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const shiftWelcome = "Hello! Send a photo during an open check-in window to mark your shift. " +
	"Managers can configure windows with /settings and view yesterday's summary with /report."

const wishlistWelcome = "Hello! Add wishes with /add, see what's open with /list, " +
	"and close them with /done. I'll ping you with a summary every couple of weeks."

// NewStartHandler returns a handler for the /start command. It registers the
// chat on first contact so background tasks pick it up. The wishlist bot
// additionally seeds the chat's ping schedule.
func NewStartHandler(deps HandlerDeps, welcome string, seedPing bool) bot.HandlerFunc {
	return startHandler{deps: deps, welcome: welcome, seedPing: seedPing}.Handle
}

type startHandler struct {
	deps     HandlerDeps
	welcome  string
	seedPing bool
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", update.Message.From.ID)

	if h.seedPing {
		if _, err := ensureWishChat(ctx, h.deps, update.Message.Chat); err != nil {
			log.ErrorContext(ctx, "Failed to register chat", "chat_id", chatID, "error", err)
		}
	} else if _, err := h.deps.Store.GetOrCreateChat(ctx, chatID,
		update.Message.Chat.Title, h.deps.Config.DefaultTimezone); err != nil {
		log.ErrorContext(ctx, "Failed to register chat", "chat_id", chatID, "error", err)
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: h.welcome})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err, "chat_id", chatID)
	}
}
