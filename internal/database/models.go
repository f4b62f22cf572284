package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role is a membership role within a chat.
type Role string

const (
	RoleOperator Role = "OPERATOR"
	RoleManager  Role = "MANAGER"
)

// WindowKind identifies one of the two daily attendance slots.
type WindowKind string

const (
	WindowMorning WindowKind = "MORNING"
	WindowEvening WindowKind = "EVENING"
)

// DateFormat is the canonical format for calendar-date columns.
const DateFormat = "2006-01-02"

// Chat represents a Telegram conversation known to the bot.
type Chat struct {
	ID        int64          `db:"id"`
	ChatID    int64          `db:"chat_id"`
	Title     sql.NullString `db:"title"`
	Timezone  string         `db:"timezone"`
	CreatedAt time.Time      `db:"created_at"`
}

// Membership associates a user with a chat and carries the role and
// authorization flag. Only authorized operators participate in reminders.
type Membership struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	ChatID      int64          `db:"chat_id"`
	Role        Role           `db:"role"`
	Authorized  bool           `db:"authorized"`
	DisplayName sql.NullString `db:"display_name"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Checkin is one attendance event. The (user, chat, kind, date) tuple is
// unique at the storage level; duplicates are rejected, never overwritten.
type Checkin struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	ChatID       int64      `db:"chat_id"`
	Kind         WindowKind `db:"kind"`
	PhotoFileID  string     `db:"photo_file_id"`
	FileUniqueID string     `db:"file_unique_id"`
	CreatedAt    time.Time  `db:"created_at"`
	CheckinDate  string     `db:"checkin_date"`
}

// WindowConfig holds the per-chat attendance window configuration.
// A row with NULL chat_id is the process-wide default used as fallback.
// Times of day are stored as "HH:MM" local wall-clock strings.
type WindowConfig struct {
	ID              int64         `db:"id"`
	ChatID          sql.NullInt64 `db:"chat_id"`
	MorningStart    string        `db:"morning_start"`
	MorningEnd      string        `db:"morning_end"`
	EveningStart    string        `db:"evening_start"`
	EveningEnd      string        `db:"evening_end"`
	AlertsEnabled   bool          `db:"alerts_enabled"`
	IncludeWeekends bool          `db:"include_weekends"`
	Timezone        string        `db:"timezone"`
}

// MissSet maps each window to the operators who missed it. Stored as JSON.
type MissSet struct {
	Morning []int64 `json:"morning"`
	Evening []int64 `json:"evening"`
}

// Value implements driver.Valuer for JSON storage.
func (m MissSet) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal miss set: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON storage.
func (m *MissSet) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	case nil:
		*m = MissSet{}
		return nil
	default:
		return fmt.Errorf("unsupported miss set source type %T", src)
	}
}

// DailyRollup is the per-chat per-day aggregated attendance summary,
// idempotently upserted by the aggregator keyed on (chat_id, date).
type DailyRollup struct {
	ID             int64     `db:"id"`
	ChatID         int64     `db:"chat_id"`
	Date           string    `db:"date"`
	MorningCnt     int       `db:"morning_cnt"`
	EveningCnt     int       `db:"evening_cnt"`
	TotalOperators int       `db:"total_operators"`
	Misses         MissSet   `db:"misses"`
	CreatedAt      time.Time `db:"created_at"`
}

// PingSchedule tracks when the next wishlist summary ping is due for a chat.
// NextPingAt is null until the first sweep initializes it.
type PingSchedule struct {
	ChatID     int64        `db:"chat_id"`
	Timezone   string       `db:"timezone"`
	NextPingAt sql.NullTime `db:"next_ping_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

// WishStatus enumerates wish lifecycle states.
const (
	WishOpen = "open"
	WishDone = "done"
)

// Wish is a single wishlist entry.
type Wish struct {
	ID          int64          `db:"id"`
	ChatID      int64          `db:"chat_id"`
	UserID      sql.NullInt64  `db:"user_id"`
	UserName    sql.NullString `db:"user_name"`
	Title       string         `db:"title"`
	PhotoFileID sql.NullString `db:"photo_file_id"`
	PriceFlag   bool           `db:"price_flag"`
	PriceAmount sql.NullString `db:"price_amount"`
	Horizon     sql.NullString `db:"horizon"`
	DueDate     sql.NullString `db:"due_date"`
	Tags        sql.NullString `db:"tags"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	DoneAt      sql.NullTime   `db:"done_at"`
}
