package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

const tagAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// genTag возвращает случайный стартовый тэг фида. Сервер перезаписывает его
// первым же ответом, поэтому содержимое не важно.
func genTag() string {
	buf := make([]byte, 10)
	for i := range buf {
		buf[i] = tagAlphabet[rand.Intn(len(tagAlphabet))]
	}
	return string(buf)
}

type snapshotEntry struct {
	messageText string
	sendTime    string
	tag         string
	// own помечает запись, сделанную через RememberMessage. Реальное время
	// отправки собственного ответа неизвестно заранее, поэтому такая запись
	// сверяется со снапшотом только по тексту.
	own bool
}

// Service превращает ответы runner'а в дискретные события. Хранит тэги обоих
// фидов и память последних сообщений по каждой переписке. Poll вызывается
// строго последовательно одним циклом опроса, но RememberMessage может
// приходить из горутины диспетчера, поэтому состояние закрыто мьютексом.
type Service struct {
	log    zerolog.Logger
	source domain.UpdateSource
	parser domain.SnapshotParser

	mu sync.Mutex

	orderTag   string
	messageTag string

	// firstCycle подавляет эмиссию событий на первом опросе, чтобы история,
	// существовавшая до запуска, не превратилась в поток "новых" событий.
	firstCycle   bool
	lastMessages map[int64]snapshotEntry
}

// New создаёт сервис с новыми случайными тэгами: состояние фидов никогда
// не переживает перезапуск, первый опрос синхронизирует его заново.
func New(log zerolog.Logger, source domain.UpdateSource, parser domain.SnapshotParser) *Service {
	return &Service{
		log:          log,
		source:       source,
		parser:       parser,
		orderTag:     genTag(),
		messageTag:   genTag(),
		firstCycle:   true,
		lastMessages: make(map[int64]snapshotEntry),
	}
}

// Poll выполняет один запрос к runner'у и возвращает синтезированные события.
func (s *Service) Poll(ctx context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	orderTag, messageTag := s.orderTag, s.messageTag
	s.mu.Unlock()

	updates, err := s.source.GetUpdates(ctx, orderTag, messageTag)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Тэги обновляются независимо и никогда не меняются местами.
	s.orderTag = updates.OrderTag
	s.messageTag = updates.MessageTag

	var events []domain.Event

	if updates.HasCounters && !s.firstCycle {
		events = append(events, domain.OrderChangeEvent{
			Buyer:  updates.Counters.Buyer,
			Seller: updates.Counters.Seller,
		})
	}

	if updates.HasChatsHTML {
		messageEvents, err := s.diffSnapshot(updates.ChatsHTML, updates.MessageTag)
		if err != nil {
			return nil, err
		}
		events = append(events, messageEvents...)
	}

	if s.firstCycle {
		s.firstCycle = false
	}
	return events, nil
}

// diffSnapshot сравнивает полный снапшот чатов с памятью последних сообщений
// и возвращает события по изменившимся перепискам. Переписка считается
// изменившейся, если отличается текст или время отправки: одинаковый текст
// с новым временем — это новое сообщение.
func (s *Service) diffSnapshot(html, tag string) ([]domain.Event, error) {
	chats, err := s.parser.ParseChatSnapshot(html)
	if err != nil {
		return nil, fmt.Errorf("снапшот чатов: %w", err)
	}

	var events []domain.Event
	for _, chat := range chats {
		known, seen := s.lastMessages[chat.NodeID]
		changed := !seen || known.messageText != chat.MessageText || known.sendTime != chat.SendTime
		// Собственный ответ приходит в снапшоте с настоящим временем отправки,
		// которого в памяти нет: совпадения текста достаточно.
		if seen && known.own && known.messageText == chat.MessageText {
			changed = false
		}

		// Память обновляется всегда, даже когда эмиссия подавлена.
		s.lastMessages[chat.NodeID] = snapshotEntry{
			messageText: chat.MessageText,
			sendTime:    chat.SendTime,
			tag:         tag,
		}

		if !changed || s.firstCycle {
			continue
		}
		events = append(events, domain.NewMessageEvent{
			NodeID:         chat.NodeID,
			MessageText:    chat.MessageText,
			SenderUsername: chat.SenderUsername,
			SendTime:       chat.SendTime,
			Tag:            tag,
		})
	}
	return events, nil
}

// RememberMessage вручную обновляет память последних сообщений. Используется
// после отправки собственного ответа, чтобы он не вернулся событием.
func (s *Service) RememberMessage(nodeID int64, text, sendTime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMessages[nodeID] = snapshotEntry{messageText: text, sendTime: sendTime, tag: s.messageTag, own: true}
}
