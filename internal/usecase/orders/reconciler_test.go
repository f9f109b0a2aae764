package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

// stubOrderSource запоминает списки исключений и отдаёт заготовленные заказы.
type stubOrderSource struct {
	orders   []domain.Order
	excludes [][]string
	failures int
}

func (s *stubOrderSource) GetOrders(_ context.Context, exclude []string) ([]domain.Order, error) {
	s.excludes = append(s.excludes, append([]string(nil), exclude...))
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("сеть недоступна")
	}
	var result []domain.Order
	for _, order := range s.orders {
		skip := false
		for _, id := range exclude {
			if id == order.ID {
				skip = true
				break
			}
		}
		if !skip {
			result = append(result, order)
		}
	}
	return result, nil
}

type collectingDispatcher struct {
	events []domain.Event
}

func (d *collectingDispatcher) Dispatch(_ context.Context, event domain.Event) {
	d.events = append(d.events, event)
}

func newReconciler(source domain.OrderSource, dispatcher EventDispatcher) *Reconciler {
	r := NewReconciler(zerolog.Nop(), source, dispatcher, nil)
	r.retryDelay = time.Millisecond
	return r
}

func TestReconcileExclusion(t *testing.T) {
	source := &stubOrderSource{orders: []domain.Order{{ID: "A"}, {ID: "B"}, {ID: "C"}}}
	dispatcher := &collectingDispatcher{}
	r := newReconciler(source, dispatcher)
	r.known["A"] = domain.Order{ID: "A"}
	r.known["B"] = domain.Order{ID: "B"}

	if err := r.Handle(context.Background(), domain.OrderChangeEvent{}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(source.excludes) != 1 {
		t.Fatalf("ожидали 1 запрос, получили %d", len(source.excludes))
	}
	exclude := source.excludes[0]
	if len(exclude) != 2 || exclude[0] != "A" || exclude[1] != "B" {
		t.Fatalf("список исключений должен быть ровно [A B], получили %v", exclude)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("ожидали 1 событие нового заказа, получили %d", len(dispatcher.events))
	}
	event, ok := dispatcher.events[0].(domain.NewOrderEvent)
	if !ok || event.Order.ID != "C" {
		t.Fatalf("новым должен считаться только C: %+v", dispatcher.events[0])
	}
	if _, ok := r.known["C"]; !ok {
		t.Fatalf("заказ C должен попасть в таблицу известных")
	}
}

func TestReconcileServerOrderPreserved(t *testing.T) {
	source := &stubOrderSource{orders: []domain.Order{{ID: "Z"}, {ID: "M"}, {ID: "A"}}}
	dispatcher := &collectingDispatcher{}
	r := newReconciler(source, dispatcher)

	if err := r.Handle(context.Background(), domain.OrderChangeEvent{}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(dispatcher.events) != 3 {
		t.Fatalf("ожидали 3 события, получили %d", len(dispatcher.events))
	}
	got := []string{
		dispatcher.events[0].(domain.NewOrderEvent).Order.ID,
		dispatcher.events[1].(domain.NewOrderEvent).Order.ID,
		dispatcher.events[2].(domain.NewOrderEvent).Order.ID,
	}
	if got[0] != "Z" || got[1] != "M" || got[2] != "A" {
		t.Fatalf("порядок сервера должен сохраняться: %v", got)
	}
}

func TestReconcileRetriesThenGivesUp(t *testing.T) {
	source := &stubOrderSource{failures: 3, orders: []domain.Order{{ID: "A"}}}
	dispatcher := &collectingDispatcher{}
	r := newReconciler(source, dispatcher)

	if err := r.Handle(context.Background(), domain.OrderChangeEvent{}); err == nil {
		t.Fatalf("ожидали ошибку после исчерпания попыток")
	}
	if len(source.excludes) != 3 {
		t.Fatalf("ожидали 3 попытки, получили %d", len(source.excludes))
	}
	if len(dispatcher.events) != 0 {
		t.Fatalf("проваленный пасс не должен порождать события")
	}

	// Следующий сигнал повторяет сверку с тем же списком исключений.
	if err := r.Handle(context.Background(), domain.OrderChangeEvent{}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("после восстановления должен появиться заказ A")
	}
}

func TestReconcileRetriesAfterTransientFailure(t *testing.T) {
	source := &stubOrderSource{failures: 2, orders: []domain.Order{{ID: "A"}}}
	dispatcher := &collectingDispatcher{}
	r := newReconciler(source, dispatcher)

	if err := r.Handle(context.Background(), domain.OrderChangeEvent{}); err != nil {
		t.Fatalf("двух сбоев недостаточно для провала пасса: %v", err)
	}
	if len(source.excludes) != 3 {
		t.Fatalf("ожидали 3 обращения к источнику, получили %d", len(source.excludes))
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("ожидали 1 событие, получили %d", len(dispatcher.events))
	}
}

func TestReconcileIgnoresOtherEvents(t *testing.T) {
	source := &stubOrderSource{orders: []domain.Order{{ID: "A"}}}
	dispatcher := &collectingDispatcher{}
	r := newReconciler(source, dispatcher)

	if err := r.Handle(context.Background(), domain.NewMessageEvent{NodeID: 1}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(source.excludes) != 0 {
		t.Fatalf("чужое событие не должно запускать сверку")
	}
}
