package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
)

// NewWishListHandler returns the handler for the /list command.
func NewWishListHandler(deps HandlerDeps) bot.HandlerFunc {
	return wishListHandler{deps}.Handle
}

type wishListHandler struct {
	deps HandlerDeps
}

func (h wishListHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "wish_list")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
		}
	}

	if _, err := ensureWishChat(ctx, h.deps, update.Message.Chat); err != nil {
		log.ErrorContext(ctx, "Failed to register chat", "chat_id", chatID, "error", err)
	}

	wishes, err := h.deps.Store.ListOpenWishes(ctx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list wishes", "chat_id", chatID, "error", err)
		reply("Something went wrong, try again.")
		return
	}
	if len(wishes) == 0 {
		reply("The wishlist is empty. Add something with /add!")
		return
	}

	lines := make([]string, 0, len(wishes)+1)
	lines = append(lines, fmt.Sprintf("Open wishes (%d):", len(wishes)))
	for _, w := range wishes {
		lines = append(lines, formatWishLine(&w))
	}
	reply(strings.Join(lines, "\n"))
}

func formatWishLine(w *database.Wish) string {
	line := fmt.Sprintf("#%d %s", w.ID, w.Title)
	var extras []string
	if w.Horizon.Valid && w.Horizon.String != "" {
		extras = append(extras, w.Horizon.String)
	}
	if w.DueDate.Valid && w.DueDate.String != "" {
		extras = append(extras, "due "+w.DueDate.String)
	}
	if len(extras) > 0 {
		line += " (" + strings.Join(extras, ", ") + ")"
	}
	return line
}
