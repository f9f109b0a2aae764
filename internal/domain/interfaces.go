package domain

import (
	"context"
	"time"
)

// UpdateSource выполняет один запрос к runner'у с текущими тэгами фидов.
type UpdateSource interface {
	GetUpdates(ctx context.Context, orderTag, messageTag string) (RunnerUpdates, error)
}

// SnapshotParser разбирает сырой HTML снапшота chat_bookmarks в список переписок.
type SnapshotParser interface {
	ParseChatSnapshot(html string) ([]ChatSummary, error)
}

// OrderSource возвращает заказы аккаунта в порядке ответа сервера,
// пропуская заказы с ID из exclude.
type OrderSource interface {
	GetOrders(ctx context.Context, exclude []string) ([]Order, error)
}

// CategorySource загружает категории аккаунта и определяет game_id категории.
type CategorySource interface {
	GetUserCategories(ctx context.Context, userID int64) ([]Category, error)
	GetCategoryGameID(ctx context.Context, cat Category) (int64, error)
}

// LotSource возвращает лоты аккаунта и переключает состояние лота.
type LotSource interface {
	GetUserLots(ctx context.Context, userID int64) ([]Lot, error)
	ChangeLotState(ctx context.Context, lotID, gameID int64) error
}

// CategoryRaiser поднимает категории игры, к которой относится cat.
// excludeIDs содержит ID категорий, которые не нужно поднимать вместе с cat.
type CategoryRaiser interface {
	RaiseGameCategories(ctx context.Context, cat Category, excludeIDs []string) (RaiseResult, error)
}

// MessageSender отправляет сообщение в переписку node.
type MessageSender interface {
	SendMessage(ctx context.Context, nodeID int64, text string) error
	NodeIDByUsername(ctx context.Context, username string) (int64, error)
}

// Notifier отправляет уведомления во внешний канал (Telegram).
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// GameIDCache хранит соответствие составного ключа категории и game_id.
// Перезаписывается целиком после разрешения категорий.
type GameIDCache interface {
	Load(ctx context.Context) (map[string]int64, error)
	Store(ctx context.Context, games map[string]int64) error
}

// OrderJournal сохраняет увиденные заказы, чтобы перезапуск не приводил
// к повторным событиям по старым заказам.
type OrderJournal interface {
	KnownOrderIDs(ctx context.Context) ([]string, error)
	RecordOrder(ctx context.Context, order Order, seenAt time.Time) error
}

// EventPublisher публикует события во внешнюю шину для сторонних интеграций.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ProductStore выдаёт товары для авто-выдачи и возвращает их при неудаче.
type ProductStore interface {
	Pop(lotName string) (string, error)
	PushBack(lotName, product string) error
}
