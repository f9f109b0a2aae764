package domain

// EventKind определяет тип события, по которому диспетчер выбирает хэндлеры.
type EventKind string

const (
	// EventNewMessage — новое сообщение в переписке.
	EventNewMessage EventKind = "new_message"
	// EventOrderChange — сигнал об изменении счётчиков заказов. Не содержит
	// конкретных заказов, только повод для сверки.
	EventOrderChange EventKind = "order_change"
	// EventNewOrder — конкретный новый заказ, найденный при сверке.
	EventNewOrder EventKind = "new_order"
	// EventCategoriesRaised — категории игры подняты.
	EventCategoriesRaised EventKind = "categories_raised"
	// EventDeliveryResult — итог авто-выдачи товара по заказу.
	EventDeliveryResult EventKind = "delivery_result"
)

// Event — неизменяемое событие, потребляется диспетчером один раз.
type Event interface {
	Kind() EventKind
}

// NewMessageEvent описывает новое сообщение в переписке node.
type NewMessageEvent struct {
	NodeID         int64
	MessageText    string
	SenderUsername string
	SendTime       string
	Tag            string
}

// Kind возвращает тип события.
func (NewMessageEvent) Kind() EventKind { return EventNewMessage }

// OrderChangeEvent сигнализирует об изменении счётчиков заказов.
type OrderChangeEvent struct {
	Buyer  int
	Seller int
}

// Kind возвращает тип события.
func (OrderChangeEvent) Kind() EventKind { return EventOrderChange }

// NewOrderEvent описывает новый заказ.
type NewOrderEvent struct {
	Order Order
}

// Kind возвращает тип события.
func (NewOrderEvent) Kind() EventKind { return EventNewOrder }

// CategoriesRaisedEvent описывает успешное поднятие категорий одной игры.
type CategoriesRaisedEvent struct {
	GameID int64
	Titles []string
	Wait   int64
}

// Kind возвращает тип события.
func (CategoriesRaisedEvent) Kind() EventKind { return EventCategoriesRaised }

// DeliveryResultEvent описывает итог авто-выдачи товара.
type DeliveryResultEvent struct {
	Order   Order
	Text    string
	Errored bool
}

// Kind возвращает тип события.
func (DeliveryResultEvent) Kind() EventKind { return EventDeliveryResult }
