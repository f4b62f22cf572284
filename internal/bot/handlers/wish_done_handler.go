package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewWishDoneHandler returns the handler for the /done command.
func NewWishDoneHandler(deps HandlerDeps) bot.HandlerFunc {
	return wishDoneHandler{deps}.Handle
}

type wishDoneHandler struct {
	deps HandlerDeps
}

func (h wishDoneHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "wish_done")

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

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 2 {
		reply("Usage: /done <id>")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "#"), 10, 64)
	if err != nil || id <= 0 {
		reply("Usage: /done <id>")
		return
	}

	done, err := h.deps.Store.MarkWishDone(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "Failed to mark wish done", "chat_id", chatID, "wish_id", id, "error", err)
		reply("Something went wrong, try again.")
		return
	}
	if !done {
		reply(fmt.Sprintf("No open wish #%d found.", id))
		return
	}

	log.InfoContext(ctx, "Wish completed", "chat_id", chatID, "wish_id", id)
	reply(fmt.Sprintf("Wish #%d done. Nice!", id))
}
