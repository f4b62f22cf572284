package handlers

import (
	"testing"

	"github.com/dvelkov/dutybot/internal/database"
)

func TestParseSettings(t *testing.T) {
	t.Parallel()

	chat := &database.Chat{ID: 7, ChatID: -100, Timezone: "Europe/Sofia"}

	tests := []struct {
		name    string
		text    string
		wantErr bool
		check   func(t *testing.T, cfg *database.WindowConfig)
	}{
		{
			name: "windows only",
			text: "/settings 07:00-10:00 19:00-22:00",
			check: func(t *testing.T, cfg *database.WindowConfig) {
				if cfg.MorningStart != "07:00" || cfg.EveningEnd != "22:00" {
					t.Fatalf("cfg = %+v", cfg)
				}
				if cfg.IncludeWeekends || !cfg.AlertsEnabled {
					t.Fatalf("defaults wrong: %+v", cfg)
				}
				if !cfg.ChatID.Valid || cfg.ChatID.Int64 != 7 {
					t.Fatalf("chat id not set: %+v", cfg.ChatID)
				}
				if cfg.Timezone != "Europe/Sofia" {
					t.Fatalf("timezone = %s, want chat default", cfg.Timezone)
				}
			},
		},
		{
			name: "all options",
			text: "/settings 07:00-10:00 19:00-22:00 weekends=on alerts=off tz=Europe/Berlin",
			check: func(t *testing.T, cfg *database.WindowConfig) {
				if !cfg.IncludeWeekends || cfg.AlertsEnabled {
					t.Fatalf("options not applied: %+v", cfg)
				}
				if cfg.Timezone != "Europe/Berlin" {
					t.Fatalf("timezone = %s", cfg.Timezone)
				}
			},
		},
		{name: "missing evening", text: "/settings 07:00-10:00", wantErr: true},
		{name: "bad clock", text: "/settings 7:00-10:00 19:00-22:00", wantErr: true},
		{name: "inverted morning", text: "/settings 10:00-07:00 19:00-22:00", wantErr: true},
		{name: "inverted evening", text: "/settings 07:00-10:00 22:00-19:00", wantErr: true},
		{name: "overlapping windows", text: "/settings 07:00-12:00 11:00-13:00", wantErr: true},
		{name: "touching boundary counts as overlap", text: "/settings 07:00-10:00 10:00-13:00", wantErr: true},
		{name: "unknown timezone", text: "/settings 07:00-10:00 19:00-22:00 tz=Mars/Olympus", wantErr: true},
		{name: "unknown option", text: "/settings 07:00-10:00 19:00-22:00 snooze=on", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := parseSettings(tc.text, chat)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSettings: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}
