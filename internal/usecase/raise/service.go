package raise

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/metrics"
)

const (
	// defaultWait используется, когда ответ сервера не удалось распознать:
	// короткая пауза гарантирует, что категория не застрянет навсегда.
	defaultWait = 10 * time.Second
	// successWait — пауза после успешного поднятия: сервер в любом случае
	// не даст поднять категории игры раньше, чем через час.
	successWait = time.Hour
)

// ParseWaitText детерминированно извлекает время ожидания из
// человекочитаемого отказа сервера ("Подождите 45 сек.", "Подождите 3 мин.").
// Для минут сохранено историческое правило (N-1)*60: поведение закреплено
// тестами, расписание повторных попыток на него завязано.
func ParseWaitText(text string) time.Duration {
	fields := strings.Fields(text)
	switch {
	case strings.Contains(text, "сек"):
		if len(fields) >= 2 {
			if seconds, err := strconv.Atoi(fields[1]); err == nil {
				return time.Duration(seconds) * time.Second
			}
		}
		return defaultWait
	case strings.Contains(text, "минуту"):
		return time.Minute
	case strings.Contains(text, "мин"):
		if len(fields) >= 2 {
			if minutes, err := strconv.Atoi(fields[1]); err == nil {
				return time.Duration(minutes-1) * time.Minute
			}
		}
		return defaultWait
	case strings.Contains(text, "час"):
		return time.Hour
	default:
		return defaultWait
	}
}

// EventDispatcher доставляет событие зарегистрированным хэндлерам.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event)
}

// Service — независимый цикл поднятия категорий. Категории группируются по
// game_id: поднятие одной категории игры поднимает их все, поэтому пауза
// учитывается на всю группу.
type Service struct {
	log        zerolog.Logger
	raiser     domain.CategoryRaiser
	dispatcher EventDispatcher
	categories []domain.Category
	exclude    []string

	// nextByGame хранит unix-время следующей допустимой попытки по игре.
	// Записи создаются лениво и никогда не удаляются.
	nextByGame map[int64]int64
	now        func() time.Time
}

// New создаёт цикл поднятия. exclude — ID категорий, которые не поднимаются
// вместе с остальными категориями своей игры.
func New(log zerolog.Logger, raiser domain.CategoryRaiser, dispatcher EventDispatcher, categories []domain.Category, exclude []string) *Service {
	return &Service{
		log:        log,
		raiser:     raiser,
		dispatcher: dispatcher,
		categories: categories,
		exclude:    exclude,
		nextByGame: make(map[int64]int64),
		now:        time.Now,
	}
}

// Pass делает по одной попытке на каждую группу категорий, чья пауза истекла,
// и возвращает unix-время, когда Pass стоит запустить снова. Ноль означает,
// что ни одной подходящей категории нет.
func (s *Service) Pass(ctx context.Context) int64 {
	var minNext int64
	for _, cat := range s.categories {
		if cat.Kind == domain.CategoryCurrency {
			continue
		}
		if next, ok := s.nextByGame[cat.GameID]; ok && next > s.now().Unix() {
			minNext = lesser(minNext, next)
			continue
		}

		next := s.attempt(ctx, cat)
		s.nextByGame[cat.GameID] = next
		minNext = lesser(minNext, next)
	}
	return minNext
}

// attempt выполняет одну попытку поднятия и возвращает unix-время следующей.
func (s *Service) attempt(ctx context.Context, cat domain.Category) int64 {
	result, err := s.raiser.RaiseGameCategories(ctx, cat, s.exclude)
	if err != nil {
		// Неклассифицированный сбой трактуется как отказ с короткой паузой:
		// цикл всегда двигается вперёд.
		metrics.RaiseAttempts.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("category", cat.Title).Msg("не удалось поднять категорию")
		return s.now().Add(defaultWait).Unix()
	}

	if !result.Complete {
		wait := ParseWaitText(result.ThrottleText)
		metrics.RaiseAttempts.WithLabelValues("throttled").Inc()
		s.log.Warn().Str("category", cat.Title).Dur("wait", wait).Msg("сервер просит подождать с поднятием")
		return s.now().Add(wait).Unix()
	}

	metrics.RaiseAttempts.WithLabelValues("raised").Inc()
	for _, title := range result.RaisedTitles {
		s.log.Info().Int64("game", cat.GameID).Str("category", title).Msg("поднял категорию")
	}
	s.dispatcher.Dispatch(ctx, domain.CategoriesRaisedEvent{
		GameID: cat.GameID,
		Titles: result.RaisedTitles,
		Wait:   int64(successWait / time.Second),
	})
	return s.now().Add(successWait).Unix()
}

// Run блокирует до отмены контекста, выдерживая между пассами минимальную
// паузу из всех затронутых групп.
func (s *Service) Run(ctx context.Context) {
	s.log.Info().Msg("авто-поднятие категорий запущено")
	for {
		next := s.Pass(ctx)

		delay := defaultWait
		if next > 0 {
			delay = time.Duration(next-s.now().Unix()) * time.Second
			if delay < 0 {
				delay = 0
			}
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("авто-поднятие категорий остановлено")
			return
		case <-time.After(delay):
		}
	}
}

// lesser возвращает меньший положительный unix-таймстамп.
func lesser(current, candidate int64) int64 {
	if current == 0 || candidate < current {
		return candidate
	}
	return current
}
