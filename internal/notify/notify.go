// Package notify delivers top-up notifications to users and administrators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends HTML formatted messages. Callers escape user supplied text.
type Notifier interface {
	NotifyAdmins(ctx context.Context, text string) error
	NotifyUser(ctx context.Context, chatID int64, text string) error
}

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers messages through the Telegram Bot API.
type TelegramNotifier struct {
	bot          sender
	adminChatIDs []int64
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, adminChatIDs []int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramNotifierWithBot(bot, adminChatIDs), nil
}

// NewTelegramNotifierWithBot wraps an already constructed bot.
func NewTelegramNotifierWithBot(bot *tgbotapi.BotAPI, adminChatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, adminChatIDs: adminChatIDs}
}

// NotifyAdmins sends text to every admin chat. Delivery continues past
// individual failures; the joined error lists the chats that failed.
func (n *TelegramNotifier) NotifyAdmins(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range n.adminChatIDs {
		if err := n.send(chatID, text); err != nil {
			slog.WarnContext(ctx, "admin notification failed", "chat_id", chatID, "error", err)
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// NotifyUser sends text to one user chat. A zero chat id is skipped.
func (n *TelegramNotifier) NotifyUser(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return nil
	}
	return n.send(chatID, text)
}

func (n *TelegramNotifier) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return err
}

// NopNotifier drops every message. Used when no bot token is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyAdmins(context.Context, string) error      { return nil }
func (NopNotifier) NotifyUser(context.Context, int64, string) error { return nil }
