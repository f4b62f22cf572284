package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
)

const authorizeUsage = "Usage: /authorize <user_id> [off] [role=operator|manager] [display name]\n" +
	"Example: /authorize 123456789 Maria"

// NewAuthorizeHandler returns the handler for the /authorize command.
// Managers grant or revoke the authorization flag and assign roles; only
// authorized operators take part in check-ins, reminders, and rollups.
func NewAuthorizeHandler(deps HandlerDeps) bot.HandlerFunc {
	return authorizeHandler{deps}.Handle
}

type authorizeHandler struct {
	deps HandlerDeps
}

func (h authorizeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "authorize")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send authorize reply", "chat_id", chatID, "error", err)
		}
	}

	fields := strings.Fields(update.Message.Text)
	if len(fields) < 2 {
		reply(authorizeUsage)
		return
	}

	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || userID <= 0 {
		reply(authorizeUsage)
		return
	}

	authorized := true
	role := database.RoleOperator
	var nameParts []string
	for _, field := range fields[2:] {
		switch {
		case field == "off":
			authorized = false
		case field == "role=manager":
			role = database.RoleManager
		case field == "role=operator":
			role = database.RoleOperator
		default:
			nameParts = append(nameParts, field)
		}
	}

	chat, err := h.deps.Store.GetOrCreateChat(ctx, chatID,
		update.Message.Chat.Title, h.deps.Config.DefaultTimezone)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve chat", "chat_id", chatID, "error", err)
		return
	}

	membership := &database.Membership{
		UserID:     userID,
		ChatID:     chat.ID,
		Role:       role,
		Authorized: authorized,
	}
	if name := strings.Join(nameParts, " "); name != "" {
		membership.DisplayName = sql.NullString{String: name, Valid: true}
	} else if existing, getErr := h.deps.Store.GetMembership(ctx, userID, chat.ID); getErr == nil && existing != nil {
		membership.DisplayName = existing.DisplayName
		membership.CreatedAt = existing.CreatedAt
	}

	if err := h.deps.Store.UpsertMembership(ctx, membership); err != nil {
		log.ErrorContext(ctx, "Failed to save membership", "user_id", userID, "chat_id", chatID, "error", err)
		reply("Failed to update membership, try again.")
		return
	}

	state := "authorized"
	if !authorized {
		state = "deauthorized"
	}
	log.InfoContext(ctx, "Membership updated",
		"user_id", userID, "chat_id", chatID, "role", role, "authorized", authorized)
	reply(fmt.Sprintf("User %d %s as %s.", userID, state, strings.ToLower(string(role))))
}
