package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/metrics"
)

// Handler обрабатывает событие. Ошибка хэндлера логируется и не мешает
// остальным хэндлерам этого события.
type Handler func(ctx context.Context, event domain.Event) error

// Dispatcher хранит упорядоченные списки хэндлеров по типам событий.
// Регистрация должна завершиться до старта циклов: после этого списки
// только читаются, и синхронизация не нужна.
type Dispatcher struct {
	log      zerolog.Logger
	handlers map[domain.EventKind][]Handler
}

// New создаёт диспетчер.
func New(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:      log,
		handlers: make(map[domain.EventKind][]Handler),
	}
}

// Register добавляет хэндлер в конец списка для типа kind.
func (d *Dispatcher) Register(kind domain.EventKind, handler Handler) {
	d.handlers[kind] = append(d.handlers[kind], handler)
}

// Dispatch последовательно вызывает все хэндлеры типа события, в порядке
// регистрации. Паника или ошибка хэндлера изолируется: оставшиеся хэндлеры
// всё равно выполняются, наружу ошибка не выходит.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) {
	kind := event.Kind()
	metrics.EventsDispatched.WithLabelValues(string(kind)).Inc()
	for i, handler := range d.handlers[kind] {
		if err := d.invoke(ctx, handler, event); err != nil {
			metrics.HandlerErrors.WithLabelValues(string(kind)).Inc()
			d.log.Error().Err(err).Str("kind", string(kind)).Int("handler", i).Msg("ошибка хэндлера события")
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в хэндлере: %v\n%s", r, debug.Stack())
		}
	}()
	return handler(ctx, event)
}
