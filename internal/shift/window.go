// Package shift implements the attendance domain logic for the shift
// check-in bot: window classification, daily aggregation, and reminders.
package shift

import (
	"fmt"
	"time"

	"github.com/dvelkov/dutybot/internal/database"
)

// ParseClock parses an "HH:MM" wall-clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// minuteOfDay returns minutes since midnight for a local time.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Classify determines which attendance window is open at the given local
// time. Bounds are inclusive and the morning window is evaluated first, so
// it wins if a misconfigured evening window overlaps it. The caller must
// supply a config with start <= end per pair; the settings write path
// enforces that.
func Classify(cfg *database.WindowConfig, local time.Time) (database.WindowKind, bool) {
	m := minuteOfDay(local)

	ms, err1 := ParseClock(cfg.MorningStart)
	me, err2 := ParseClock(cfg.MorningEnd)
	if err1 == nil && err2 == nil && m >= ms && m <= me {
		return database.WindowMorning, true
	}

	es, err1 := ParseClock(cfg.EveningStart)
	ee, err2 := ParseClock(cfg.EveningEnd)
	if err1 == nil && err2 == nil && m >= es && m <= ee {
		return database.WindowEvening, true
	}

	return "", false
}

// IsExcluded reports whether check-ins are not expected on the given local
// date: true when the config excludes weekends and the date falls on a
// Saturday or Sunday.
func IsExcluded(cfg *database.WindowConfig, localDate time.Time) bool {
	if cfg.IncludeWeekends {
		return false
	}
	wd := localDate.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DateOf formats a local time as the canonical calendar-date string.
func DateOf(t time.Time) string {
	return t.Format(database.DateFormat)
}

// InZone converts a UTC instant into the named IANA timezone.
func InZone(utc time.Time, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return utc.In(loc), nil
}

// EffectiveTimezone picks the config timezone when set, else the chat's.
func EffectiveTimezone(chat *database.Chat, cfg *database.WindowConfig) string {
	if cfg != nil && cfg.Timezone != "" {
		return cfg.Timezone
	}
	return chat.Timezone
}

// FallbackConfig returns the emergency window configuration used by the
// check-in path when a chat has no config row at all: 06:00-11:00 mornings,
// 16:00-23:00 evenings, weekends excluded. Reminders and rollups never use
// it; they skip unconfigured chats instead.
func FallbackConfig(tz string) *database.WindowConfig {
	return &database.WindowConfig{
		MorningStart:    "06:00",
		MorningEnd:      "11:00",
		EveningStart:    "16:00",
		EveningEnd:      "23:00",
		AlertsEnabled:   false,
		IncludeWeekends: false,
		Timezone:        tz,
	}
}
