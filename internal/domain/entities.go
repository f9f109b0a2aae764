package domain

import (
	"strconv"
	"time"
)

// Account описывает авторизованный аккаунт FunPay. После загрузки не изменяется.
type Account struct {
	ID          int64
	Username    string
	Balance     float64
	Currency    string
	ActiveSales int
	GoldenKey   string
	CSRFToken   string
	SessionID   string
	LoadedAt    time.Time
}

// CategoryKind определяет тип категории лотов.
type CategoryKind int

const (
	// CategoryLot — стандартная категория лотов.
	CategoryLot CategoryKind = iota
	// CategoryCurrency — категория игровой валюты, такие категории не поднимаются.
	CategoryCurrency
)

// Category описывает категорию лотов аккаунта.
type Category struct {
	ID         int64
	GameID     int64
	Title      string
	PublicLink string
	Kind       CategoryKind
}

// CacheKey возвращает составной ключ категории для кэша game_id.
func (c Category) CacheKey() string {
	kind := "0"
	if c.Kind == CategoryCurrency {
		kind = "1"
	}
	return strconv.FormatInt(c.ID, 10) + "_" + kind
}

// Lot описывает лот аккаунта.
type Lot struct {
	ID         int64
	CategoryID int64
	GameID     int64
	Title      string
	Price      string
}

// OrderStatus описывает состояние заказа.
type OrderStatus int

const (
	// OrderOutstanding — заказ оплачен, но не завершён.
	OrderOutstanding OrderStatus = iota
	// OrderCompleted — заказ завершён.
	OrderCompleted
	// OrderRefunded — по заказу оформлен возврат.
	OrderRefunded
)

// Order описывает заказ на аккаунте. ID назначается сервером и стабилен.
type Order struct {
	ID            string
	Title         string
	Price         float64
	BuyerUsername string
	BuyerID       int64
	Status        OrderStatus
}

// OrderCounters содержит счётчики заказов из фида orders_counters.
type OrderCounters struct {
	Buyer  int
	Seller int
}

// ChatSummary описывает одну переписку из снапшота chat_bookmarks.
type ChatSummary struct {
	NodeID         int64
	MessageText    string
	SendTime       string
	SenderUsername string
}

// RunnerUpdates содержит результат одного обращения к runner'у: новые тэги
// и полезную нагрузку каждого фида. Снапшот чатов приходит сырым HTML.
type RunnerUpdates struct {
	OrderTag     string
	MessageTag   string
	HasCounters  bool
	Counters     OrderCounters
	HasChatsHTML bool
	ChatsHTML    string
}

// RaiseResult описывает исход попытки поднятия категорий одной игры.
// При отказе сервера Complete == false, а ThrottleText содержит текст ответа
// с человекочитаемым временем ожидания.
type RaiseResult struct {
	Complete     bool
	ThrottleText string
	RaisedTitles []string
}
