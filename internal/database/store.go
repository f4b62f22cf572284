package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrDuplicateCheckin is returned when a check-in already exists for the
// same (user, chat, kind, date). Expected during normal operation; callers
// answer "already recorded" and never retry.
var ErrDuplicateCheckin = errors.New("check-in already recorded")

// Store defines the data access operations used by both bots.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetOrCreateChat registers a chat on first contact and refreshes its
	// title on subsequent calls.
	GetOrCreateChat(ctx context.Context, chatID int64, title, timezone string) (*Chat, error)

	// ListChats returns every known chat.
	ListChats(ctx context.Context) ([]Chat, error)

	// GetWindowConfig resolves the effective window configuration for a chat:
	// the chat-specific row if present, else the chat-less default row.
	// Returns nil, nil when neither exists (the chat is then skipped).
	GetWindowConfig(ctx context.Context, chatID int64) (*WindowConfig, error)

	// SaveWindowConfig inserts or updates a window configuration row.
	// A config with ChatID.Valid == false targets the global default row.
	SaveWindowConfig(ctx context.Context, cfg *WindowConfig) error

	// UpsertMembership creates or updates the membership row for (user, chat).
	UpsertMembership(ctx context.Context, m *Membership) error

	// GetMembership returns the membership row for (user, chat), or nil, nil
	// when the user is unknown in that chat.
	GetMembership(ctx context.Context, userID, chatID int64) (*Membership, error)

	// ListAuthorizedOperators returns OPERATOR memberships with authorized =
	// true. This is the roster for reminders and aggregation alike.
	ListAuthorizedOperators(ctx context.Context, chatID int64) ([]Membership, error)

	// CreateCheckin inserts a new check-in event. Returns ErrDuplicateCheckin
	// when the storage-level uniqueness constraint rejects the row.
	CreateCheckin(ctx context.Context, c *Checkin) error

	// ListCheckins returns check-ins for a chat and calendar date,
	// optionally filtered by window kind.
	ListCheckins(ctx context.Context, chatID int64, date string, kind *WindowKind) ([]Checkin, error)

	// UpsertDailyRollup writes the rollup for (chat, date), overwriting any
	// prior row in place.
	UpsertDailyRollup(ctx context.Context, r *DailyRollup) error

	// GetDailyRollup returns the rollup for (chat, date), or nil, nil if absent.
	GetDailyRollup(ctx context.Context, chatID int64, date string) (*DailyRollup, error)

	// CountDailyRollups returns the number of rollup rows for (chat, date).
	CountDailyRollups(ctx context.Context, chatID int64, date string) (int, error)

	// GetOrInitPingSchedule registers a ping schedule with null next_ping_at
	// on first contact.
	GetOrInitPingSchedule(ctx context.Context, chatID int64, timezone string) (*PingSchedule, error)

	// SetNextPing stores the next ping instant for a chat.
	SetNextPing(ctx context.Context, chatID int64, at time.Time) error

	// ListDuePings returns schedules whose next_ping_at is non-null and <= now.
	ListDuePings(ctx context.Context, now time.Time) ([]PingSchedule, error)

	// ListPingSchedules returns every ping schedule row.
	ListPingSchedules(ctx context.Context) ([]PingSchedule, error)

	// CreateWish inserts a new wishlist entry.
	CreateWish(ctx context.Context, w *Wish) error

	// ListOpenWishes returns open wishes for a chat, oldest first.
	ListOpenWishes(ctx context.Context, chatID int64) ([]Wish, error)

	// CountOpenByHorizon returns the open-wish total and per-horizon counts.
	CountOpenByHorizon(ctx context.Context, chatID int64) (int, map[string]int, error)

	// RandomOpenWish returns one random open wish, or nil, nil if none exist.
	RandomOpenWish(ctx context.Context, chatID int64) (*Wish, error)

	// NearestDatedWish returns the open wish with the soonest due date,
	// or nil, nil if no open wish has one.
	NearestDatedWish(ctx context.Context, chatID int64) (*Wish, error)

	// MarkWishDone transitions a wish to done. Returns false if not found.
	MarkWishDone(ctx context.Context, id int64) (bool, error)
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetOrCreateChat(ctx context.Context, chatID int64, title, timezone string) (*Chat, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx, s.logger)

	var chat Chat
	err = tx.GetContext(ctx, &chat, `SELECT * FROM chats WHERE chat_id = ?`, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		chat = Chat{
			ChatID:    chatID,
			Title:     nullString(title),
			Timezone:  timezone,
			CreatedAt: time.Now().UTC(),
		}
		res, insErr := tx.NamedExecContext(ctx, `
            INSERT INTO chats (chat_id, title, timezone, created_at)
            VALUES (:chat_id, :title, :timezone, :created_at)`, &chat)
		if insErr != nil {
			return nil, fmt.Errorf("failed to create chat %d: %w", chatID, insErr)
		}
		if id, idErr := res.LastInsertId(); idErr == nil {
			chat.ID = id
		}
		s.logger.InfoContext(ctx, "Registered new chat", "chat_id", chatID, "timezone", timezone)
	case err != nil:
		return nil, fmt.Errorf("failed to load chat %d: %w", chatID, err)
	default:
		if title != "" && (!chat.Title.Valid || chat.Title.String != title) {
			if _, upErr := tx.ExecContext(ctx, `UPDATE chats SET title = ? WHERE id = ?`, title, chat.ID); upErr != nil {
				return nil, fmt.Errorf("failed to update chat %d title: %w", chatID, upErr)
			}
			chat.Title = nullString(title)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &chat, nil
}

func (s *sqlxStore) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := s.db.SelectContext(ctx, &chats, `SELECT * FROM chats ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (s *sqlxStore) GetWindowConfig(ctx context.Context, chatID int64) (*WindowConfig, error) {
	var cfg WindowConfig
	err := s.db.GetContext(ctx, &cfg, `SELECT * FROM window_configs WHERE chat_id = ?`, chatID)
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get window config for chat %d: %w", chatID, err)
	}

	err = s.db.GetContext(ctx, &cfg, `SELECT * FROM window_configs WHERE chat_id IS NULL LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No window config and no default row", "chat_id", chatID)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get default window config: %w", err)
	}
	return &cfg, nil
}

func (s *sqlxStore) SaveWindowConfig(ctx context.Context, cfg *WindowConfig) error {
	if cfg == nil {
		return errors.New("cannot save nil window config")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx, s.logger)

	// SQLite unique indexes treat NULLs as distinct, so the default row
	// (chat_id IS NULL) needs an explicit exists check instead of ON CONFLICT.
	var existingID int64
	var lookupErr error
	if cfg.ChatID.Valid {
		lookupErr = tx.GetContext(ctx, &existingID,
			`SELECT id FROM window_configs WHERE chat_id = ?`, cfg.ChatID.Int64)
	} else {
		lookupErr = tx.GetContext(ctx, &existingID,
			`SELECT id FROM window_configs WHERE chat_id IS NULL LIMIT 1`)
	}

	switch {
	case errors.Is(lookupErr, sql.ErrNoRows):
		_, err = tx.NamedExecContext(ctx, `
            INSERT INTO window_configs (chat_id, morning_start, morning_end,
                evening_start, evening_end, alerts_enabled, include_weekends, timezone)
            VALUES (:chat_id, :morning_start, :morning_end,
                :evening_start, :evening_end, :alerts_enabled, :include_weekends, :timezone)`, cfg)
	case lookupErr != nil:
		return fmt.Errorf("failed to look up window config: %w", lookupErr)
	default:
		cfg.ID = existingID
		_, err = tx.NamedExecContext(ctx, `
            UPDATE window_configs SET
                morning_start = :morning_start, morning_end = :morning_end,
                evening_start = :evening_start, evening_end = :evening_end,
                alerts_enabled = :alerts_enabled, include_weekends = :include_weekends,
                timezone = :timezone
            WHERE id = :id`, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to save window config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlxStore) UpsertMembership(ctx context.Context, m *Membership) error {
	if m == nil {
		return errors.New("cannot save nil membership")
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO memberships (user_id, chat_id, role, authorized, display_name, created_at, updated_at)
        VALUES (:user_id, :chat_id, :role, :authorized, :display_name, :created_at, :updated_at)
        ON CONFLICT (user_id, chat_id) DO UPDATE SET
            role = excluded.role,
            authorized = excluded.authorized,
            display_name = excluded.display_name,
            updated_at = excluded.updated_at`, m)
	if err != nil {
		return fmt.Errorf("failed to upsert membership (user %d, chat %d): %w", m.UserID, m.ChatID, err)
	}
	return nil
}

func (s *sqlxStore) GetMembership(ctx context.Context, userID, chatID int64) (*Membership, error) {
	var m Membership
	err := s.db.GetContext(ctx, &m,
		`SELECT * FROM memberships WHERE user_id = ? AND chat_id = ?`, userID, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get membership (user %d, chat %d): %w", userID, chatID, err)
	}
	return &m, nil
}

func (s *sqlxStore) ListAuthorizedOperators(ctx context.Context, chatID int64) ([]Membership, error) {
	var out []Membership
	err := s.db.SelectContext(ctx, &out, `
        SELECT * FROM memberships
        WHERE chat_id = ? AND role = ? AND authorized = 1
        ORDER BY user_id`, chatID, RoleOperator)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized operators for chat %d: %w", chatID, err)
	}
	return out, nil
}

func (s *sqlxStore) CreateCheckin(ctx context.Context, c *Checkin) error {
	if c == nil {
		return errors.New("cannot save nil check-in")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx, `
        INSERT INTO checkins (user_id, chat_id, kind, photo_file_id, file_unique_id, created_at, checkin_date)
        VALUES (:user_id, :chat_id, :kind, :photo_file_id, :file_unique_id, :created_at, :checkin_date)`, c)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.DebugContext(ctx, "Duplicate check-in rejected",
				"user_id", c.UserID, "chat_id", c.ChatID, "kind", c.Kind, "date", c.CheckinDate)
			return ErrDuplicateCheckin
		}
		return fmt.Errorf("failed to create check-in (user %d, chat %d): %w", c.UserID, c.ChatID, err)
	}
	if id, idErr := res.LastInsertId(); idErr == nil {
		c.ID = id
	}
	return nil
}

func (s *sqlxStore) ListCheckins(ctx context.Context, chatID int64, date string, kind *WindowKind) ([]Checkin, error) {
	var out []Checkin
	var err error
	if kind != nil {
		err = s.db.SelectContext(ctx, &out, `
            SELECT * FROM checkins
            WHERE chat_id = ? AND checkin_date = ? AND kind = ?
            ORDER BY id`, chatID, date, *kind)
	} else {
		err = s.db.SelectContext(ctx, &out, `
            SELECT * FROM checkins
            WHERE chat_id = ? AND checkin_date = ?
            ORDER BY id`, chatID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins for chat %d on %s: %w", chatID, date, err)
	}
	return out, nil
}

func (s *sqlxStore) UpsertDailyRollup(ctx context.Context, r *DailyRollup) error {
	if r == nil {
		return errors.New("cannot save nil rollup")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO daily_rollups (chat_id, date, morning_cnt, evening_cnt, total_operators, misses, created_at)
        VALUES (:chat_id, :date, :morning_cnt, :evening_cnt, :total_operators, :misses, :created_at)
        ON CONFLICT (chat_id, date) DO UPDATE SET
            morning_cnt = excluded.morning_cnt,
            evening_cnt = excluded.evening_cnt,
            total_operators = excluded.total_operators,
            misses = excluded.misses,
            created_at = excluded.created_at`, r)
	if err != nil {
		return fmt.Errorf("failed to upsert rollup (chat %d, date %s): %w", r.ChatID, r.Date, err)
	}
	return nil
}

func (s *sqlxStore) GetDailyRollup(ctx context.Context, chatID int64, date string) (*DailyRollup, error) {
	var r DailyRollup
	err := s.db.GetContext(ctx, &r, `SELECT * FROM daily_rollups WHERE chat_id = ? AND date = ?`, chatID, date)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get rollup (chat %d, date %s): %w", chatID, date, err)
	}
	return &r, nil
}

func (s *sqlxStore) CountDailyRollups(ctx context.Context, chatID int64, date string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM daily_rollups WHERE chat_id = ? AND date = ?`, chatID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count rollups (chat %d, date %s): %w", chatID, date, err)
	}
	return n, nil
}

func (s *sqlxStore) GetOrInitPingSchedule(ctx context.Context, chatID int64, timezone string) (*PingSchedule, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx, s.logger)

	var sched PingSchedule
	err = tx.GetContext(ctx, &sched, `SELECT * FROM ping_schedules WHERE chat_id = ?`, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		sched = PingSchedule{
			ChatID:    chatID,
			Timezone:  timezone,
			CreatedAt: time.Now().UTC(),
		}
		if _, insErr := tx.NamedExecContext(ctx, `
            INSERT INTO ping_schedules (chat_id, timezone, next_ping_at, created_at)
            VALUES (:chat_id, :timezone, NULL, :created_at)`, &sched); insErr != nil {
			return nil, fmt.Errorf("failed to init ping schedule for chat %d: %w", chatID, insErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to get ping schedule for chat %d: %w", chatID, err)
	default:
		if timezone != "" && sched.Timezone != timezone {
			if _, upErr := tx.ExecContext(ctx,
				`UPDATE ping_schedules SET timezone = ? WHERE chat_id = ?`, timezone, chatID); upErr != nil {
				return nil, fmt.Errorf("failed to update ping timezone for chat %d: %w", chatID, upErr)
			}
			sched.Timezone = timezone
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &sched, nil
}

func (s *sqlxStore) SetNextPing(ctx context.Context, chatID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ping_schedules SET next_ping_at = ? WHERE chat_id = ?`, at.UTC(), chatID)
	if err != nil {
		return fmt.Errorf("failed to set next ping for chat %d: %w", chatID, err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected rows affected setting next ping",
			"chat_id", chatID, "affected", affected)
	}
	return nil
}

func (s *sqlxStore) ListDuePings(ctx context.Context, now time.Time) ([]PingSchedule, error) {
	var out []PingSchedule
	err := s.db.SelectContext(ctx, &out, `
        SELECT * FROM ping_schedules
        WHERE next_ping_at IS NOT NULL AND next_ping_at <= ?
        ORDER BY chat_id`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list due ping schedules: %w", err)
	}
	return out, nil
}

func (s *sqlxStore) ListPingSchedules(ctx context.Context) ([]PingSchedule, error) {
	var out []PingSchedule
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM ping_schedules ORDER BY chat_id`); err != nil {
		return nil, fmt.Errorf("failed to list ping schedules: %w", err)
	}
	return out, nil
}

func (s *sqlxStore) CreateWish(ctx context.Context, w *Wish) error {
	if w == nil {
		return errors.New("cannot save nil wish")
	}
	if w.Status == "" {
		w.Status = WishOpen
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx, `
        INSERT INTO wishes (chat_id, user_id, user_name, title, photo_file_id,
            price_flag, price_amount, horizon, due_date, tags, status, created_at, done_at)
        VALUES (:chat_id, :user_id, :user_name, :title, :photo_file_id,
            :price_flag, :price_amount, :horizon, :due_date, :tags, :status, :created_at, :done_at)`, w)
	if err != nil {
		return fmt.Errorf("failed to create wish for chat %d: %w", w.ChatID, err)
	}
	if id, idErr := res.LastInsertId(); idErr == nil {
		w.ID = id
	}
	return nil
}

func (s *sqlxStore) ListOpenWishes(ctx context.Context, chatID int64) ([]Wish, error) {
	var out []Wish
	err := s.db.SelectContext(ctx, &out, `
        SELECT * FROM wishes WHERE chat_id = ? AND status = ? ORDER BY id`, chatID, WishOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open wishes for chat %d: %w", chatID, err)
	}
	return out, nil
}

func (s *sqlxStore) CountOpenByHorizon(ctx context.Context, chatID int64) (int, map[string]int, error) {
	rows := []struct {
		Horizon sql.NullString `db:"horizon"`
		N       int            `db:"n"`
	}{}
	err := s.db.SelectContext(ctx, &rows, `
        SELECT horizon, COUNT(*) AS n FROM wishes
        WHERE chat_id = ? AND status = ?
        GROUP BY horizon`, chatID, WishOpen)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count wishes for chat %d: %w", chatID, err)
	}

	total := 0
	byHorizon := make(map[string]int, len(rows))
	for _, r := range rows {
		total += r.N
		if r.Horizon.Valid && r.Horizon.String != "" {
			byHorizon[r.Horizon.String] = r.N
		}
	}
	return total, byHorizon, nil
}

func (s *sqlxStore) RandomOpenWish(ctx context.Context, chatID int64) (*Wish, error) {
	var w Wish
	err := s.db.GetContext(ctx, &w, `
        SELECT * FROM wishes WHERE chat_id = ? AND status = ?
        ORDER BY RANDOM() LIMIT 1`, chatID, WishOpen)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to pick random wish for chat %d: %w", chatID, err)
	}
	return &w, nil
}

func (s *sqlxStore) NearestDatedWish(ctx context.Context, chatID int64) (*Wish, error) {
	var w Wish
	err := s.db.GetContext(ctx, &w, `
        SELECT * FROM wishes
        WHERE chat_id = ? AND status = ? AND due_date IS NOT NULL
        ORDER BY due_date LIMIT 1`, chatID, WishOpen)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find nearest dated wish for chat %d: %w", chatID, err)
	}
	return &w, nil
}

func (s *sqlxStore) MarkWishDone(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE wishes SET status = ?, done_at = ? WHERE id = ? AND status = ?`,
		WishDone, time.Now().UTC(), id, WishOpen)
	if err != nil {
		return false, fmt.Errorf("failed to mark wish %d done: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for wish %d: %w", id, err)
	}
	return affected == 1, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
// modernc.org/sqlite surfaces these as extended result code 2067 in the
// error text; matching on the message avoids importing the driver internals.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func rollback(tx *sqlx.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Warn("Error rolling back transaction", "error", err)
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
