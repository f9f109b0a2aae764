package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/metrics"
)

// EventSource отдаёт пачку событий за один опрос.
type EventSource interface {
	Poll(ctx context.Context) ([]domain.Event, error)
}

// EventDispatcher доставляет событие зарегистрированным хэндлерам.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event)
}

// Service — цикл опроса runner'а. Опрашивает источник с фиксированным
// интервалом и передаёт пачки событий потребителю через канал: порядок
// событий сохраняется, а диспетчеризация не задерживает следующий опрос.
// Одновременно в полёте не бывает больше одного запроса к источнику.
type Service struct {
	log        zerolog.Logger
	source     EventSource
	dispatcher EventDispatcher
	interval   time.Duration
	batches    chan []domain.Event
}

// New создаёт цикл опроса.
func New(log zerolog.Logger, source EventSource, dispatcher EventDispatcher, interval time.Duration) *Service {
	return &Service{
		log:        log,
		source:     source,
		dispatcher: dispatcher,
		interval:   interval,
		batches:    make(chan []domain.Event, 8),
	}
}

// Run блокирует до отмены контекста. Ошибка опроса не фатальна: цикл
// логирует её и ждёт обычный интервал.
func (s *Service) Run(ctx context.Context) {
	go s.consume(ctx)

	s.log.Info().Dur("interval", s.interval).Msg("runner запущен")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		metrics.PollCycles.Inc()
		events, err := s.source.Poll(ctx)
		if err != nil {
			metrics.PollErrors.Inc()
			s.log.Error().Err(err).Msg("не удалось получить список событий")
		} else if len(events) > 0 {
			select {
			case s.batches <- events:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("runner остановлен")
			return
		case <-ticker.C:
		}
	}
}

// consume последовательно раздаёт события хэндлерам в порядке получения.
func (s *Service) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-s.batches:
			for _, event := range batch {
				s.dispatcher.Dispatch(ctx, event)
			}
		}
	}
}
