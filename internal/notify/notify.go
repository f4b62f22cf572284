// Package notify dispatches outbound Telegram notifications with the
// delivery policy shared by both bots: one bounded retry for transient
// failures (rate limits, network blips), and terminal skip-and-log for
// blocked recipients.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender is the outbound messaging surface of the Telegram client.
// *bot.Bot satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// Dispatcher sends notifications with at-least-once semantics: a transient
// failure is retried once (after the signalled delay for rate limits, after
// a fixed second otherwise), a forbidden recipient is logged and skipped,
// and any remaining failure is returned to the caller so the current chat's
// cycle is abandoned (the next tick retries naturally).
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender: sender,
		logger: logger.With("component", "dispatcher"),
	}
}

// Send delivers a text message to a chat under the dispatch policy.
// A Forbidden outcome returns nil so the caller's bookkeeping still runs.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, text string) error {
	err := retry.Do(
		func() error {
			_, sendErr := d.sender.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   text,
			})
			return sendErr
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.RetryIf(isTransient),
		retry.DelayType(retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, retryErr error) {
			d.logger.WarnContext(ctx, "Transient send failure, retrying",
				"chat_id", chatID, "error", retryErr)
		}),
	)
	if err == nil {
		return nil
	}

	if errors.Is(err, tgbot.ErrorForbidden) {
		d.logger.WarnContext(ctx, "Bot blocked by chat, skipping notification", "chat_id", chatID)
		return nil
	}

	return fmt.Errorf("failed to send notification to chat %d: %w", chatID, err)
}

// isTransient reports whether a failed send is worth one more attempt.
// Telegram verdicts about the request or the recipient are final; rate
// limits and anything else (timeouts, connection resets) are transient.
func isTransient(err error) bool {
	for _, permanent := range []error{tgbot.ErrorForbidden, tgbot.ErrorBadRequest, tgbot.ErrorUnauthorized} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

// retryDelay waits out the delay signalled by Telegram, plus a second of
// slack, for rate limits; other transient failures wait a fixed second.
func retryDelay(_ uint, err error, _ *retry.Config) time.Duration {
	var tooMany *tgbot.TooManyRequestsError
	if errors.As(err, &tooMany) && tooMany.RetryAfter > 0 {
		return time.Duration(tooMany.RetryAfter+1) * time.Second
	}
	return time.Second
}
