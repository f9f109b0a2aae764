package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

// Toggles включает и выключает отдельные виды уведомлений.
type Toggles struct {
	NewMessage bool
	NewOrder   bool
	Raise      bool
	Delivery   bool
	Start      bool
}

// Service переводит события агента в уведомления владельцу аккаунта.
type Service struct {
	log      zerolog.Logger
	notifier domain.Notifier
	toggles  Toggles
}

// New создаёт сервис уведомлений.
func New(log zerolog.Logger, notifier domain.Notifier, toggles Toggles) *Service {
	return &Service{log: log, notifier: notifier, toggles: toggles}
}

// Greeting отправляет приветствие после успешной авторизации.
func (s *Service) Greeting(ctx context.Context, account domain.Account) error {
	if !s.toggles.Start {
		return nil
	}
	text := fmt.Sprintf("✅ Агент запущен.\nАккаунт: %s (ID %d)\nБаланс: %.2f %s\nАктивных продаж: %d",
		account.Username, account.ID, account.Balance, account.Currency, account.ActiveSales)
	return s.notifier.Notify(ctx, text)
}

// HandleNewMessage — хэндлер события о новом сообщении.
func (s *Service) HandleNewMessage(ctx context.Context, event domain.Event) error {
	if !s.toggles.NewMessage {
		return nil
	}
	msg, ok := event.(domain.NewMessageEvent)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("💬 Новое сообщение от %s:\n%s", msg.SenderUsername, msg.MessageText)
	return s.notifier.Notify(ctx, text)
}

// HandleNewOrder — хэндлер события о новом заказе.
func (s *Service) HandleNewOrder(ctx context.Context, event domain.Event) error {
	if !s.toggles.NewOrder {
		return nil
	}
	ev, ok := event.(domain.NewOrderEvent)
	if !ok {
		return nil
	}
	order := ev.Order
	text := fmt.Sprintf("🛒 Новый заказ #%s\n%s\nПокупатель: %s\nСумма: %.2f", order.ID, order.Title, order.BuyerUsername, order.Price)
	return s.notifier.Notify(ctx, text)
}

// HandleCategoriesRaised — хэндлер события о поднятии категорий.
func (s *Service) HandleCategoriesRaised(ctx context.Context, event domain.Event) error {
	if !s.toggles.Raise {
		return nil
	}
	ev, ok := event.(domain.CategoriesRaisedEvent)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("⬆️ Подняты категории:\n%s", strings.Join(ev.Titles, "\n"))
	return s.notifier.Notify(ctx, text)
}

// HandleDeliveryResult — хэндлер события об итоге авто-выдачи.
func (s *Service) HandleDeliveryResult(ctx context.Context, event domain.Event) error {
	if !s.toggles.Delivery {
		return nil
	}
	ev, ok := event.(domain.DeliveryResultEvent)
	if !ok {
		return nil
	}
	var text string
	if ev.Errored {
		text = fmt.Sprintf("⚠️ Ошибка авто-выдачи по заказу #%s:\n%s", ev.Order.ID, ev.Text)
	} else {
		text = fmt.Sprintf("📦 Товар по заказу #%s выдан покупателю %s.", ev.Order.ID, ev.Order.BuyerUsername)
	}
	return s.notifier.Notify(ctx, text)
}
