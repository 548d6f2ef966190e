// Package notify sends settlement pass summaries to Telegram.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/models"
)

// sender is the subset of tgbotapi.BotAPI used by the notifier
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a short summary after each pass
type TelegramNotifier struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	logger         *logrus.Entry
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewTelegramNotifier connects to the Bot API and creates a notifier
func NewTelegramNotifier(botToken, chatID string, logger *logrus.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, logger)
}

func newTelegramNotifier(bot sender, chatID string, logger *logrus.Logger) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return &TelegramNotifier{
		bot:            bot,
		chatID:         id,
		maxRetries:     3,
		retryDelayBase: time.Second,
		logger:         logger.WithField("component", "notify"),
		sleep:          sleepContext,
	}, nil
}

// NotifyPass sends the pass summary. Passes that found no bets are not reported.
func (n *TelegramNotifier) NotifyPass(ctx context.Context, summary *models.PassSummary) error {
	if summary == nil || summary.Processed == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			n.logger.WithField("pass_id", summary.PassID.String()).Debug("Pass summary sent")
			return nil
		}
		lastErr = err
		if i < n.maxRetries-1 {
			if err := n.sleep(ctx, n.retryDelayBase*time.Duration(i+1)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", n.maxRetries, lastErr)
}

// FormatSummary renders a pass summary as a MarkdownV2 message
func FormatSummary(s *models.PassSummary) string {
	var b strings.Builder

	b.WriteString("*Settlement pass complete*\n")
	fmt.Fprintf(&b, "%s\n\n", escapeMarkdownV2(s.StartedAt.UTC().Format("2006-01-02 15:04:05 MST")))

	fmt.Fprintf(&b, "Processed: *%d*\n", s.Processed)
	fmt.Fprintf(&b, "Updated: *%d*\n", s.Updated)
	if s.Pending > 0 {
		fmt.Fprintf(&b, "Awaiting result: %d\n", s.Pending)
	}
	if s.Unmatched > 0 {
		fmt.Fprintf(&b, "Unmatched: %d\n", s.Unmatched)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", s.Errors)
	}

	if len(s.StatusCounts) > 0 {
		statuses := make([]string, 0, len(s.StatusCounts))
		for status := range s.StatusCounts {
			statuses = append(statuses, string(status))
		}
		sort.Strings(statuses)

		b.WriteString("\n")
		for _, status := range statuses {
			fmt.Fprintf(&b, "%s: %d\n", escapeMarkdownV2(status), s.StatusCounts[models.BetStatus(status)])
		}
	}

	if s.UnresolvedGroups > 0 || s.FailedGroups > 0 {
		fmt.Fprintf(&b, "\nSkipped groups: %d unresolved, %d failed\n", s.UnresolvedGroups, s.FailedGroups)
	}
	fmt.Fprintf(&b, "\nDuration: %s", escapeMarkdownV2(s.Duration.Round(time.Millisecond).String()))

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NoopNotifier is used when notifications are disabled
type NoopNotifier struct{}

// NotifyPass does nothing
func (NoopNotifier) NotifyPass(context.Context, *models.PassSummary) error { return nil }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
