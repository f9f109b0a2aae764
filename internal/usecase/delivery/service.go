package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

const (
	sendAttempts = 3
	sendDelay    = time.Second
)

// Rule описывает авто-выдачу по одному лоту. Если Products == true, перед
// отправкой из хранилища забирается один товар и подставляется в $product.
type Rule struct {
	Response string `json:"response"`
	Products bool   `json:"products"`
}

// Rules — таблица правил авто-выдачи, ключ — название лота.
type Rules map[string]Rule

// LoadRules читает правила авто-выдачи из JSON-файла.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла авто-выдачи: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("разбор файла авто-выдачи: %w", err)
	}
	return rules, nil
}

// EventDispatcher доставляет событие зарегистрированным хэндлерам.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event)
}

// Service выдаёт товар покупателю после оплаты заказа.
type Service struct {
	log        zerolog.Logger
	rules      Rules
	lotNames   []string
	sender     domain.MessageSender
	products   domain.ProductStore
	dispatcher EventDispatcher
	delay      time.Duration
}

// New создаёт сервис авто-выдачи. products может быть nil, если ни одно
// правило не выдаёт товары из хранилища.
func New(log zerolog.Logger, rules Rules, sender domain.MessageSender, products domain.ProductStore, dispatcher EventDispatcher) *Service {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Service{
		log:        log,
		rules:      rules,
		lotNames:   names,
		sender:     sender,
		products:   products,
		dispatcher: dispatcher,
		delay:      sendDelay,
	}
}

// match находит правило для заказа: сначала по точному совпадению названия,
// затем по вхождению названия лота в название заказа.
func (s *Service) match(orderTitle string) (string, Rule, bool) {
	title := strings.TrimSpace(orderTitle)
	if rule, ok := s.rules[title]; ok {
		return title, rule, true
	}
	for _, name := range s.lotNames {
		if strings.Contains(title, name) {
			return name, s.rules[name], true
		}
	}
	return "", Rule{}, false
}

// Handle — хэндлер события NewOrderEvent: находит правило по названию заказа,
// формирует текст выдачи и отправляет его покупателю в личную переписку.
func (s *Service) Handle(ctx context.Context, event domain.Event) error {
	ev, ok := event.(domain.NewOrderEvent)
	if !ok {
		return nil
	}
	order := ev.Order
	lotName, rule, ok := s.match(order.Title)
	if !ok {
		return nil
	}
	s.log.Info().Str("order", order.ID).Str("lot", lotName).Str("buyer", order.BuyerUsername).Msg("начинаю авто-выдачу")

	product := ""
	if rule.Products {
		if s.products == nil {
			return s.fail(ctx, order, fmt.Errorf("правило %q требует товары, но хранилище не настроено", lotName))
		}
		p, err := s.products.Pop(lotName)
		if err != nil {
			return s.fail(ctx, order, fmt.Errorf("получение товара для %q: %w", lotName, err))
		}
		product = p
	}

	text := formatDelivery(rule.Response, order, product)
	if err := s.send(ctx, order, text); err != nil {
		if product != "" {
			if pushErr := s.products.PushBack(lotName, product); pushErr != nil {
				s.log.Error().Err(pushErr).Str("lot", lotName).Msg("не удалось вернуть товар в хранилище")
			}
		}
		return s.fail(ctx, order, err)
	}

	s.log.Info().Str("order", order.ID).Str("buyer", order.BuyerUsername).Msg("товар выдан")
	s.dispatcher.Dispatch(ctx, domain.DeliveryResultEvent{Order: order, Text: text})
	return nil
}

func (s *Service) send(ctx context.Context, order domain.Order, text string) error {
	nodeID, err := s.sender.NodeIDByUsername(ctx, order.BuyerUsername)
	if err != nil {
		return fmt.Errorf("поиск переписки с %q: %w", order.BuyerUsername, err)
	}
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err := s.sender.SendMessage(ctx, nodeID, text); err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt).Str("order", order.ID).Msg("не удалось отправить выдачу")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.delay):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("превышено число попыток отправки выдачи: %w", lastErr)
}

func (s *Service) fail(ctx context.Context, order domain.Order, err error) error {
	s.dispatcher.Dispatch(ctx, domain.DeliveryResultEvent{Order: order, Text: err.Error(), Errored: true})
	return err
}

// formatDelivery подставляет в шаблон выдачи данные заказа:
// $username, $order_id, $product.
func formatDelivery(template string, order domain.Order, product string) string {
	replacer := strings.NewReplacer(
		"$username", order.BuyerUsername,
		"$order_id", order.ID,
		"$product", product,
	)
	return replacer.Replace(template)
}
