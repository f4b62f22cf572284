package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
	"github.com/dvelkov/dutybot/internal/shift"
)

// NewReportHandler returns the handler for the /report command: it renders
// yesterday's attendance rollup for the chat, if one has been aggregated.
func NewReportHandler(deps HandlerDeps) bot.HandlerFunc {
	return reportHandler{deps}.Handle
}

type reportHandler struct {
	deps HandlerDeps
}

func (h reportHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "report")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send report", "chat_id", chatID, "error", err)
		}
	}

	chat, err := h.deps.Store.GetOrCreateChat(ctx, chatID,
		update.Message.Chat.Title, h.deps.Config.DefaultTimezone)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve chat", "chat_id", chatID, "error", err)
		return
	}

	date, err := shift.TargetDate(chat, time.Now().UTC())
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve report date", "chat_id", chatID, "error", err)
		reply("Something went wrong, try again.")
		return
	}

	rollup, err := h.deps.Store.GetDailyRollup(ctx, chat.ID, date)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load rollup", "chat_id", chatID, "date", date, "error", err)
		reply("Something went wrong, try again.")
		return
	}
	if rollup == nil {
		reply(fmt.Sprintf("No attendance summary for %s yet.", date))
		return
	}

	reply(renderRollup(rollup))
}

func renderRollup(r *database.DailyRollup) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Attendance for %s\n", r.Date)
	fmt.Fprintf(&sb, "Morning: %d/%d checked in\n", r.MorningCnt, r.TotalOperators)
	fmt.Fprintf(&sb, "Evening: %d/%d checked in", r.EveningCnt, r.TotalOperators)
	if len(r.Misses.Morning) > 0 {
		fmt.Fprintf(&sb, "\nMissed morning: %s", joinIDs(r.Misses.Morning))
	}
	if len(r.Misses.Evening) > 0 {
		fmt.Fprintf(&sb, "\nMissed evening: %s", joinIDs(r.Misses.Evening))
	}
	return sb.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("operator %d", id)
	}
	return strings.Join(parts, ", ")
}
