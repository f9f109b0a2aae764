package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier отправляет уведомления в Telegram-чат владельца аккаунта.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	log    zerolog.Logger
	chatID int64
}

// NewNotifier создаёт уведомитель.
func NewNotifier(bot *tgbotapi.BotAPI, log zerolog.Logger, chatID int64) *Notifier {
	return &Notifier{bot: bot, log: log, chatID: chatID}
}

// Notify отправляет текст, разбивая его на части по лимиту Telegram.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	for _, part := range SplitMessage(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(n.chatID, part)
		if _, err := n.bot.Send(msg); err != nil {
			return fmt.Errorf("отправка уведомления: %w", err)
		}
	}
	return nil
}
