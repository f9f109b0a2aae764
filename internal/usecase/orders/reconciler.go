package orders

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/metrics"
)

const (
	fetchAttempts = 3
	fetchDelay    = time.Second
)

// EventDispatcher доставляет событие зарегистрированным хэндлерам.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event)
}

// Reconciler превращает сигнал об изменении счётчиков в дискретные события
// новых заказов. Хранит таблицу известных заказов и запрашивает у сервера
// только то, чего в ней нет.
type Reconciler struct {
	log        zerolog.Logger
	source     domain.OrderSource
	dispatcher EventDispatcher
	journal    domain.OrderJournal

	known      map[string]domain.Order
	retryDelay time.Duration
}

// NewReconciler создаёт сервис сверки. journal может быть nil: тогда таблица
// известных заказов живёт только в памяти процесса.
func NewReconciler(log zerolog.Logger, source domain.OrderSource, dispatcher EventDispatcher, journal domain.OrderJournal) *Reconciler {
	return &Reconciler{
		log:        log,
		source:     source,
		dispatcher: dispatcher,
		journal:    journal,
		known:      make(map[string]domain.Order),
		retryDelay: fetchDelay,
	}
}

// Seed заполняет таблицу известных заказов, чтобы перезапуск не породил
// события по заказам, увиденным прошлым запуском.
func (r *Reconciler) Seed(ctx context.Context) error {
	if r.journal == nil {
		return nil
	}
	ids, err := r.journal.KnownOrderIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.known[id] = domain.Order{ID: id}
	}
	r.log.Info().Int("orders", len(ids)).Msg("таблица заказов восстановлена из журнала")
	return nil
}

// KnownIDs возвращает отсортированный список известных ID заказов.
func (r *Reconciler) KnownIDs() []string {
	ids := make([]string, 0, len(r.known))
	for id := range r.known {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handle — хэндлер события OrderChangeEvent. Запрашивает авторитетный список
// заказов с исключением всех известных ID и эмитит событие на каждый ранее
// не виденный заказ, в порядке ответа сервера (порядок сервера считается
// стабильным, отдельная сортировка не накладывается).
func (r *Reconciler) Handle(ctx context.Context, event domain.Event) error {
	if _, ok := event.(domain.OrderChangeEvent); !ok {
		return nil
	}

	fresh, err := r.fetch(ctx)
	if err != nil {
		// Пасс сверки бросается; следующий сигнал повторит сверку с тем же
		// (неизменившимся) списком исключений.
		return err
	}

	for _, order := range fresh {
		r.known[order.ID] = order
		metrics.ReconcileNewOrders.Inc()
		r.log.Info().Str("order", order.ID).Str("buyer", order.BuyerUsername).Msg("новый заказ")
		if r.journal != nil {
			if err := r.journal.RecordOrder(ctx, order, time.Now().UTC()); err != nil {
				r.log.Error().Err(err).Str("order", order.ID).Msg("не удалось записать заказ в журнал")
			}
		}
		r.dispatcher.Dispatch(ctx, domain.NewOrderEvent{Order: order})
	}
	return nil
}

func (r *Reconciler) fetch(ctx context.Context) ([]domain.Order, error) {
	exclude := r.KnownIDs()
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		orders, err := r.source.GetOrders(ctx, exclude)
		if err == nil {
			return orders, nil
		}
		lastErr = err
		r.log.Warn().Err(err).Int("attempt", attempt).Msg("не удалось получить список заказов")
		if attempt < fetchAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.retryDelay):
			}
		}
	}
	return nil, lastErr
}
