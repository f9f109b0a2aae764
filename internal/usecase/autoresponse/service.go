package autoresponse

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

const (
	sendAttempts = 3
	sendDelay    = time.Second
)

// Rule описывает правило авто-ответа на команду в чате.
type Rule struct {
	Response         string `json:"response"`
	Notify           bool   `json:"notify"`
	NotificationText string `json:"notification_text"`
}

// Rules — таблица правил, ключ — команда в нижнем регистре.
type Rules map[string]Rule

// LoadRules читает правила авто-ответов из JSON-файла.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла авто-ответов: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("разбор файла авто-ответов: %w", err)
	}
	normalized := make(Rules, len(rules))
	for command, rule := range rules {
		normalized[strings.ToLower(strings.TrimSpace(command))] = rule
	}
	return normalized, nil
}

// MessageMemory позволяет записать собственный ответ в память последних
// сообщений, чтобы он не вернулся событием на следующем опросе.
type MessageMemory interface {
	RememberMessage(nodeID int64, text, sendTime string)
}

// Service отвечает на команды покупателей заготовленными ответами.
type Service struct {
	log    zerolog.Logger
	rules  Rules
	sender domain.MessageSender
	memory MessageMemory
	now    func() time.Time
	delay  time.Duration
}

// New создаёт сервис авто-ответов. memory может быть nil.
func New(log zerolog.Logger, rules Rules, sender domain.MessageSender, memory MessageMemory) *Service {
	return &Service{
		log:    log,
		rules:  rules,
		sender: sender,
		memory: memory,
		now:    time.Now,
		delay:  sendDelay,
	}
}

// Match возвращает правило для текста сообщения, если оно является командой.
func (s *Service) Match(text string) (Rule, bool) {
	rule, ok := s.rules[strings.ToLower(strings.TrimSpace(text))]
	return rule, ok
}

// Handle — хэндлер события NewMessageEvent: если сообщение является командой,
// отправляет отформатированный ответ с небольшим числом повторных попыток.
func (s *Service) Handle(ctx context.Context, event domain.Event) error {
	msg, ok := event.(domain.NewMessageEvent)
	if !ok {
		return nil
	}
	rule, ok := s.Match(msg.MessageText)
	if !ok {
		return nil
	}

	s.log.Info().Str("command", strings.TrimSpace(msg.MessageText)).Str("user", msg.SenderUsername).Int64("node", msg.NodeID).Msg("получена команда")
	response := FormatReply(rule.Response, msg.SenderUsername, s.now())

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err := s.sender.SendMessage(ctx, msg.NodeID, response); err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt).Str("user", msg.SenderUsername).Msg("не удалось отправить ответ")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.delay):
			}
			continue
		}
		if s.memory != nil {
			s.memory.RememberMessage(msg.NodeID, response, msg.SendTime)
		}
		s.log.Info().Str("user", msg.SenderUsername).Msg("отправил ответ")
		return nil
	}
	return fmt.Errorf("превышено число попыток отправки ответа: %w", lastErr)
}

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatReply подставляет в шаблон ответа имя пользователя и дату:
// $username, $date (02.01.2006), $date_text (2 января),
// $full_date_text (2 января 2006 года).
func FormatReply(template, username string, now time.Time) string {
	dateText := fmt.Sprintf("%d %s", now.Day(), monthsGenitive[now.Month()-1])
	replacer := strings.NewReplacer(
		"$username", username,
		"$full_date_text", fmt.Sprintf("%s %d года", dateText, now.Year()),
		"$date_text", dateText,
		"$date", now.Format("02.01.2006"),
	)
	return replacer.Replace(template)
}
