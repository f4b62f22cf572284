package handlers

import (
	"log/slog"

	"github.com/dvelkov/dutybot/internal/config"
	"github.com/dvelkov/dutybot/internal/database"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Pending *PendingCheckins
}
