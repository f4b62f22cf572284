package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/database"
	"github.com/dvelkov/dutybot/internal/shift"
)

const checkinCallbackPrefix = "checkin:"

// pendingTTL is how long a photo stays eligible for confirmation. Past it
// the operator must send a fresh photo.
const pendingTTL = 2 * time.Minute

type pendingPhoto struct {
	FileID     string
	UniqueID   string
	ReceivedAt time.Time
}

// PendingCheckins tracks photos awaiting window confirmation, keyed by
// (user, chat). The map is shared between the photo handler and the callback
// handler; this is the only conversational state either bot keeps.
type PendingCheckins struct {
	mu      sync.Mutex
	pending map[string]pendingPhoto
}

// NewPendingCheckins creates an empty tracker.
func NewPendingCheckins() *PendingCheckins {
	return &PendingCheckins{pending: make(map[string]pendingPhoto)}
}

func pendingKey(userID, chatID int64) string {
	return fmt.Sprintf("%d:%d", userID, chatID)
}

// Put records a photo awaiting confirmation, replacing any previous one.
// Entries whose confirmation never arrived are purged once they age past
// the staleness window, so abandoned photos don't accumulate.
func (p *PendingCheckins) Put(userID, chatID int64, fileID, uniqueID string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, photo := range p.pending {
		if at.Sub(photo.ReceivedAt) > pendingTTL {
			delete(p.pending, key)
		}
	}
	p.pending[pendingKey(userID, chatID)] = pendingPhoto{
		FileID:     fileID,
		UniqueID:   uniqueID,
		ReceivedAt: at,
	}
}

// Take removes and returns the pending photo for (user, chat), if any.
func (p *PendingCheckins) Take(userID, chatID int64) (pendingPhoto, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := pendingKey(userID, chatID)
	photo, ok := p.pending[key]
	if ok {
		delete(p.pending, key)
	}
	return photo, ok
}

// NewCheckinPhotoHandler returns the default handler for the shift bot: a
// photo from an authorized operator starts a pending check-in and the bot
// asks which window it is for. Everything else is ignored.
func NewCheckinPhotoHandler(deps HandlerDeps) bot.HandlerFunc {
	return checkinHandler{deps}.HandlePhoto
}

// NewCheckinCallbackHandler returns the handler for the window confirmation
// buttons.
func NewCheckinCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return checkinHandler{deps}.HandleCallback
}

type checkinHandler struct {
	deps HandlerDeps
}

func (h checkinHandler) HandlePhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "checkin_photo")

	if update.Message == nil || update.Message.From == nil || len(update.Message.Photo) == 0 {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	chat, err := h.deps.Store.GetOrCreateChat(ctx, chatID,
		update.Message.Chat.Title, h.deps.Config.DefaultTimezone)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve chat", "chat_id", chatID, "error", err)
		return
	}

	membership, err := h.deps.Store.GetMembership(ctx, userID, chat.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load membership", "user_id", userID, "chat_id", chatID, "error", err)
		return
	}
	if membership == nil || membership.Role != database.RoleOperator || !membership.Authorized {
		log.DebugContext(ctx, "Ignoring photo from unauthorized user", "user_id", userID, "chat_id", chatID)
		return
	}

	// Photo sizes are ordered smallest first; keep the largest variant.
	photo := update.Message.Photo[len(update.Message.Photo)-1]
	h.deps.Pending.Put(userID, chatID, photo.FileID, photo.FileUniqueID, time.Now().UTC())

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "Which window is this check-in for?",
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Morning", CallbackData: checkinCallbackPrefix + string(database.WindowMorning)},
				{Text: "Evening", CallbackData: checkinCallbackPrefix + string(database.WindowEvening)},
			}},
		},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send window prompt", "chat_id", chatID, "error", err)
	}
}

func (h checkinHandler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "checkin_callback")

	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	answer := func(text string) {
		_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            text,
			ShowAlert:       text != "",
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to answer callback query", "error", err)
		}
	}

	if cb.Message.Message == nil {
		answer("This check-in prompt is no longer available.")
		return
	}

	kind := database.WindowKind(strings.TrimPrefix(cb.Data, checkinCallbackPrefix))
	if kind != database.WindowMorning && kind != database.WindowEvening {
		log.WarnContext(ctx, "Unknown check-in callback data", "data", cb.Data)
		answer("")
		return
	}

	userID := cb.From.ID
	chatID := cb.Message.Message.Chat.ID
	now := time.Now().UTC()

	photo, ok := h.deps.Pending.Take(userID, chatID)
	if !ok {
		answer("No pending photo found. Send a new photo to check in.")
		return
	}
	if now.Sub(photo.ReceivedAt) > pendingTTL {
		answer("That photo is too old. Send a fresh one to check in.")
		return
	}

	chat, err := h.deps.Store.GetOrCreateChat(ctx, chatID,
		cb.Message.Message.Chat.Title, h.deps.Config.DefaultTimezone)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve chat", "chat_id", chatID, "error", err)
		answer("Something went wrong, try again.")
		return
	}

	membership, err := h.deps.Store.GetMembership(ctx, userID, chat.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load membership", "user_id", userID, "chat_id", chatID, "error", err)
		answer("Something went wrong, try again.")
		return
	}
	if membership == nil || membership.Role != database.RoleOperator || !membership.Authorized {
		answer("You are not authorized to check in here.")
		return
	}

	cfg, err := h.deps.Store.GetWindowConfig(ctx, chat.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load window config", "chat_id", chatID, "error", err)
		answer("Something went wrong, try again.")
		return
	}
	if cfg == nil {
		cfg = shift.FallbackConfig(chat.Timezone)
	}

	local, err := shift.InZone(now, shift.EffectiveTimezone(chat, cfg))
	if err != nil {
		log.ErrorContext(ctx, "Invalid chat timezone", "chat_id", chatID, "error", err)
		answer("Something went wrong, try again.")
		return
	}

	if shift.IsExcluded(cfg, local) {
		answer("No check-ins are expected on weekends.")
		return
	}

	openKind, open := shift.Classify(cfg, local)
	if !open || openKind != kind {
		answer(fmt.Sprintf("The %s window is not open right now.", windowLabel(kind)))
		return
	}

	err = h.deps.Store.CreateCheckin(ctx, &database.Checkin{
		UserID:       userID,
		ChatID:       chat.ID,
		Kind:         kind,
		PhotoFileID:  photo.FileID,
		FileUniqueID: photo.UniqueID,
		CheckinDate:  shift.DateOf(local),
	})
	switch {
	case errors.Is(err, database.ErrDuplicateCheckin):
		answer(fmt.Sprintf("Already recorded for the %s window today.", windowLabel(kind)))
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to store check-in", "user_id", userID, "chat_id", chatID, "error", err)
		answer("Something went wrong, try again.")
		return
	}

	log.InfoContext(ctx, "Check-in recorded",
		"user_id", userID, "chat_id", chatID, "kind", kind, "date", shift.DateOf(local))
	answer(fmt.Sprintf("Checked in for the %s window.", windowLabel(kind)))
}

func windowLabel(kind database.WindowKind) string {
	if kind == database.WindowEvening {
		return "evening"
	}
	return "morning"
}
