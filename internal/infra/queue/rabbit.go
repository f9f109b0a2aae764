package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"funpay-agent/internal/domain"
)

// RabbitPublisher публикует события агента в exchange RabbitMQ. Сторонние
// интеграции подписываются на шину вместо загрузки плагинов в процесс.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string

	mu     sync.Mutex
	closed bool
}

type envelope struct {
	ID    string           `json:"id"`
	Kind  domain.EventKind `json:"kind"`
	At    time.Time        `json:"at"`
	Event domain.Event     `json:"event"`
}

// NewRabbitPublisher подключается к RabbitMQ и объявляет topic exchange.
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url пуст")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("подключение к rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("открытие канала: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("объявление exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish отправляет событие с routing key, равным его типу.
func (p *RabbitPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher закрыт")
	}
	payload, err := json.Marshal(envelope{
		ID:    uuid.NewString(),
		Kind:  event.Kind(),
		At:    time.Now().UTC(),
		Event: event,
	})
	if err != nil {
		return fmt.Errorf("сериализация события: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, string(event.Kind()), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("публикация события: %w", err)
	}
	return nil
}

// Close закрывает канал и подключение.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
