package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
)

const wishAddUsage = "Usage: /add <title> [horizon:<word>] [due:YYYY-MM-DD] [price:<amount>]\n" +
	"Example: /add weekend in the mountains horizon:soon due:2026-10-03"

// NewWishAddHandler returns the handler for the /add command. The first
// interaction seeds the chat's ping schedule with no next ping; the first
// sweep initializes it.
func NewWishAddHandler(deps HandlerDeps) bot.HandlerFunc {
	return wishAddHandler{deps}.Handle
}

type wishAddHandler struct {
	deps HandlerDeps
}

func (h wishAddHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "wish_add")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
		}
	}

	wish, err := parseWish(update.Message.Text)
	if err != nil {
		reply(err.Error() + "\n\n" + wishAddUsage)
		return
	}
	wish.ChatID = chatID
	wish.UserID = sql.NullInt64{Int64: update.Message.From.ID, Valid: true}
	if name := update.Message.From.FirstName; name != "" {
		wish.UserName = sql.NullString{String: name, Valid: true}
	}

	if _, err := ensureWishChat(ctx, h.deps, update.Message.Chat); err != nil {
		log.ErrorContext(ctx, "Failed to register chat", "chat_id", chatID, "error", err)
		return
	}

	if err := h.deps.Store.CreateWish(ctx, wish); err != nil {
		log.ErrorContext(ctx, "Failed to create wish", "chat_id", chatID, "error", err)
		reply("Failed to add the wish, try again.")
		return
	}

	log.InfoContext(ctx, "Wish added", "chat_id", chatID, "wish_id", wish.ID)
	reply(fmt.Sprintf("Added #%d: %s", wish.ID, wish.Title))
}

// parseWish extracts option tokens from the /add argument list; whatever is
// left becomes the title.
func parseWish(text string) (*database.Wish, error) {
	_, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)
	if args == "" {
		return nil, fmt.Errorf("the wish needs a title")
	}

	wish := &database.Wish{Status: database.WishOpen}
	var titleParts []string
	for _, field := range strings.Fields(args) {
		switch {
		case strings.HasPrefix(field, "horizon:"):
			wish.Horizon = sql.NullString{String: strings.TrimPrefix(field, "horizon:"), Valid: true}
		case strings.HasPrefix(field, "due:"):
			due := strings.TrimPrefix(field, "due:")
			if _, err := time.Parse(database.DateFormat, due); err != nil {
				return nil, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD", due)
			}
			wish.DueDate = sql.NullString{String: due, Valid: true}
		case strings.HasPrefix(field, "price:"):
			wish.PriceFlag = true
			wish.PriceAmount = sql.NullString{String: strings.TrimPrefix(field, "price:"), Valid: true}
		default:
			titleParts = append(titleParts, field)
		}
	}

	wish.Title = strings.Join(titleParts, " ")
	if wish.Title == "" {
		return nil, fmt.Errorf("the wish needs a title")
	}
	return wish, nil
}
