// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
)

// ManagerOnly creates a middleware that restricts a command to the configured
// admin user or members with the MANAGER role in the current chat.
func ManagerOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "ManagerOnly")

			if userID == deps.Config.Telegram.AdminUserID {
				next(ctx, b, update)
				return
			}

			chat, err := deps.Store.GetOrCreateChat(ctx, chatID,
				update.Message.Chat.Title, deps.Config.DefaultTimezone)
			if err != nil {
				log.ErrorContext(ctx, "Failed to resolve chat", "chat_id", chatID, "error", err)
				return
			}

			membership, err := deps.Store.GetMembership(ctx, userID, chat.ID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to load membership", "user_id", userID, "chat_id", chatID, "error", err)
				return
			}
			if membership == nil || membership.Role != database.RoleManager {
				log.WarnContext(ctx, "Unauthorized manager command", "user_id", userID, "chat_id", chatID)
				_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   "This command is only available to managers.",
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
