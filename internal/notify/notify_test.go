// Package notify_test tests the notification dispatch policy.
package notify_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dvelkov/dutybot/internal/notify"
)

type fakeSender struct {
	errs  []error
	calls int
}

func (f *fakeSender) SendMessage(_ context.Context, _ *tgbot.SendMessageParams) (*models.Message, error) {
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return nil, err
	}
	return &models.Message{}, nil
}

func TestSendSuccess(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d := notify.NewDispatcher(sender, nil)

	if err := d.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("calls = %d, want 1", sender.calls)
	}
}

func TestSendRetriesOnceAfterRateLimit(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errs: []error{
		&tgbot.TooManyRequestsError{Message: "too many requests", RetryAfter: 0},
	}}
	d := notify.NewDispatcher(sender, nil)

	if err := d.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sender.calls != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", sender.calls)
	}
}

func TestSendGivesUpAfterSecondRateLimit(t *testing.T) {
	t.Parallel()

	rateLimited := &tgbot.TooManyRequestsError{Message: "too many requests", RetryAfter: 0}
	sender := &fakeSender{errs: []error{rateLimited, rateLimited}}
	d := notify.NewDispatcher(sender, nil)

	err := d.Send(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error after exhausted retry")
	}
	if sender.calls != 2 {
		t.Fatalf("calls = %d, want exactly 2", sender.calls)
	}
}

func TestSendSwallowsForbidden(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errs: []error{
		fmt.Errorf("%w: bot was blocked by the user", tgbot.ErrorForbidden),
	}}
	d := notify.NewDispatcher(sender, nil)

	if err := d.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("forbidden must be swallowed, got %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on forbidden)", sender.calls)
	}
}

// Network blips get the same single retry a rate limit does.
func TestSendRetriesOnceAfterNetworkError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errs: []error{errors.New("connection reset")}}
	d := notify.NewDispatcher(sender, nil)

	if err := d.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sender.calls != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", sender.calls)
	}
}

func TestSendGivesUpAfterSecondNetworkError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	sender := &fakeSender{errs: []error{cause, cause}}
	d := notify.NewDispatcher(sender, nil)

	err := d.Send(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error after exhausted retry")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error %v does not wrap %v", err, cause)
	}
	if sender.calls != 2 {
		t.Fatalf("calls = %d, want exactly 2", sender.calls)
	}
}

func TestSendDoesNotRetryPermanentError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("%w: chat not found", tgbot.ErrorBadRequest)
	sender := &fakeSender{errs: []error{cause}}
	d := notify.NewDispatcher(sender, nil)

	err := d.Send(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error %v does not wrap %v", err, cause)
	}
	if sender.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on a final Telegram verdict)", sender.calls)
	}
}
