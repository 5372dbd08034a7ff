// Package notify pushes high-priority signal alerts to the BD team's
// Telegram channel. Delivery is fail-soft: a missing token or a send
// failure never blocks the pipeline.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

// Sender abstracts the telegram API call for testing.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramNotifier sends alerts for freshly scored HIGH priority signals.
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger *logrus.Logger
}

func NewTelegramNotifier(botToken, chatID string, logger *logrus.Logger) *TelegramNotifier {
	notifier := &TelegramNotifier{logger: logger}

	if botToken == "" || chatID == "" {
		logger.Info("Telegram notifications disabled: missing bot token or chat id")
		return notifier
	}
	parsed, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		logger.WithError(err).Warn("Telegram notifications disabled: invalid chat id")
		return notifier
	}

	b, err := bot.New(botToken)
	if err != nil {
		logger.WithError(err).Warn("Telegram notifications disabled: bot init failed")
		return notifier
	}

	notifier.sender = b
	notifier.chatID = parsed
	return notifier
}

// Enabled reports whether a configured bot is available.
func (n *TelegramNotifier) Enabled() bool {
	return n.sender != nil
}

// NotifyHighPriority alerts the channel about HIGH priority analyses.
// Lower priorities are skipped. Errors are logged, never returned.
func (n *TelegramNotifier) NotifyHighPriority(ctx context.Context, items []store.AnalyzedWithSignal) {
	if !n.Enabled() {
		return
	}

	var high []store.AnalyzedWithSignal
	for _, item := range items {
		if item.Priority == models.PriorityHigh {
			high = append(high, item)
		}
	}
	if len(high) == 0 {
		return
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      formatHighPriorityAlert(high),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		n.logger.WithError(err).Warn("Failed to send telegram alert")
		return
	}
	n.logger.WithField("signals", len(high)).Info("Sent high-priority telegram alert")
}

func formatHighPriorityAlert(items []store.AnalyzedWithSignal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *%d new HIGH priority signal(s)*\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n*%s* (%s, %s)\n", escapeMarkdown(item.EntityName), item.EntityType, item.Geo)
		fmt.Fprintf(&b, "Score: %d/14 · Type: %s\n", item.FinalScore, item.SignalType)
		if len(item.RecommendedActions) > 0 {
			fmt.Fprintf(&b, "Next: %s\n", escapeMarkdown(item.RecommendedActions[0]))
		}
	}
	return b.String()
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")
	return replacer.Replace(s)
}
