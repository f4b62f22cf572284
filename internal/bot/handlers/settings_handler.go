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
	"github.com/dvelkov/dutybot/internal/shift"
)

const settingsUsage = "Usage: /settings HH:MM-HH:MM HH:MM-HH:MM [weekends=on|off] [alerts=on|off] [tz=Area/City]\n" +
	"Example: /settings 07:00-10:00 19:00-22:00 weekends=off tz=Europe/Sofia"

// NewSettingsHandler returns the handler for the /settings command. Managers
// set the morning and evening windows, weekend inclusion, alerting, and the
// chat timezone. Invalid ranges and overlapping windows are rejected here so
// the classifier can rely on well-formed configs.
func NewSettingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return settingsHandler{deps}.Handle
}

type settingsHandler struct {
	deps HandlerDeps
}

func (h settingsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "settings")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send settings reply", "chat_id", chatID, "error", err)
		}
	}

	chat, err := h.deps.Store.GetOrCreateChat(ctx, chatID,
		update.Message.Chat.Title, h.deps.Config.DefaultTimezone)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve chat", "chat_id", chatID, "error", err)
		return
	}

	cfg, parseErr := parseSettings(update.Message.Text, chat)
	if parseErr != nil {
		reply(parseErr.Error() + "\n\n" + settingsUsage)
		return
	}

	if err := h.deps.Store.SaveWindowConfig(ctx, cfg); err != nil {
		log.ErrorContext(ctx, "Failed to save window config", "chat_id", chatID, "error", err)
		reply("Failed to save settings, try again.")
		return
	}

	log.InfoContext(ctx, "Window config updated", "chat_id", chatID,
		"morning", cfg.MorningStart+"-"+cfg.MorningEnd,
		"evening", cfg.EveningStart+"-"+cfg.EveningEnd)
	reply(fmt.Sprintf("Settings saved.\nMorning: %s-%s\nEvening: %s-%s\nWeekends: %s\nAlerts: %s\nTimezone: %s",
		cfg.MorningStart, cfg.MorningEnd, cfg.EveningStart, cfg.EveningEnd,
		onOff(cfg.IncludeWeekends), onOff(cfg.AlertsEnabled), cfg.Timezone))
}

// parseSettings parses the /settings argument list into a per-chat config.
func parseSettings(text string, chat *database.Chat) (*database.WindowConfig, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected both a morning and an evening window")
	}

	morningStart, morningEnd, err := parseRange(fields[1])
	if err != nil {
		return nil, fmt.Errorf("morning window: %w", err)
	}
	eveningStart, eveningEnd, err := parseRange(fields[2])
	if err != nil {
		return nil, fmt.Errorf("evening window: %w", err)
	}

	cfg := &database.WindowConfig{
		ChatID:          sql.NullInt64{Int64: chat.ID, Valid: true},
		MorningStart:    morningStart,
		MorningEnd:      morningEnd,
		EveningStart:    eveningStart,
		EveningEnd:      eveningEnd,
		AlertsEnabled:   true,
		IncludeWeekends: false,
		Timezone:        chat.Timezone,
	}

	for _, field := range fields[3:] {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return nil, fmt.Errorf("unrecognized option %q", field)
		}
		switch key {
		case "weekends":
			on, err := parseOnOff(value)
			if err != nil {
				return nil, fmt.Errorf("weekends: %w", err)
			}
			cfg.IncludeWeekends = on
		case "alerts":
			on, err := parseOnOff(value)
			if err != nil {
				return nil, fmt.Errorf("alerts: %w", err)
			}
			cfg.AlertsEnabled = on
		case "tz":
			if _, err := time.LoadLocation(value); err != nil {
				return nil, fmt.Errorf("unknown timezone %q", value)
			}
			cfg.Timezone = value
		default:
			return nil, fmt.Errorf("unrecognized option %q", field)
		}
	}

	if err := validateWindows(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseRange(s string) (string, string, error) {
	start, end, found := strings.Cut(s, "-")
	if !found {
		return "", "", fmt.Errorf("expected HH:MM-HH:MM, got %q", s)
	}
	if _, err := shift.ParseClock(start); err != nil {
		return "", "", err
	}
	if _, err := shift.ParseClock(end); err != nil {
		return "", "", err
	}
	return start, end, nil
}

// validateWindows rejects inverted ranges and overlapping windows. Bounds
// are inclusive, so a shared boundary minute counts as overlap.
func validateWindows(cfg *database.WindowConfig) error {
	ms, _ := shift.ParseClock(cfg.MorningStart)
	me, _ := shift.ParseClock(cfg.MorningEnd)
	es, _ := shift.ParseClock(cfg.EveningStart)
	ee, _ := shift.ParseClock(cfg.EveningEnd)

	if ms > me {
		return fmt.Errorf("morning window starts after it ends")
	}
	if es > ee {
		return fmt.Errorf("evening window starts after it ends")
	}
	if ms <= ee && es <= me {
		return fmt.Errorf("morning and evening windows must not overlap")
	}
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
