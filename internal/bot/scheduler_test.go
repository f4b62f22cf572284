package bot_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dvelkov/dutybot/internal/bot"
	"github.com/dvelkov/dutybot/internal/bot/tasks"
	"github.com/dvelkov/dutybot/internal/config"
)

func TestSchedulerRunsTaskOnCronTick(t *testing.T) {
	t.Parallel()

	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 10, 12, 0, 30, 0, time.UTC))
	ran := make(chan struct{}, 1)

	cfg := &config.SchedulerConfig{
		Tasks: map[string]config.TaskConfig{
			"tick": {Enabled: true, Schedule: "* * * * *"},
		},
	}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}

	s, err := bot.NewScheduler(nil, cfg, taskMap, fake)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	// Wait for gocron to sleep on the timer, then cross the minute boundary.
	fake.BlockUntil(1)
	fake.Advance(time.Minute)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run after the clock crossed the cron boundary")
	}
}

func TestSchedulerSkipsDisabledTask(t *testing.T) {
	t.Parallel()

	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 10, 12, 0, 30, 0, time.UTC))
	ran := make(chan struct{}, 1)

	cfg := &config.SchedulerConfig{
		Tasks: map[string]config.TaskConfig{
			"tick": {Enabled: false, Schedule: "* * * * *"},
		},
	}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}

	s, err := bot.NewScheduler(nil, cfg, taskMap, fake)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	// No job was scheduled, so nothing watches the fake clock; advance far
	// past several boundaries and confirm silence.
	fake.Advance(3 * time.Minute)

	select {
	case <-ran:
		t.Fatal("disabled task must not run")
	case <-time.After(200 * time.Millisecond):
	}
}
