package categories

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

const (
	resolveAttempts = 3
	resolveDelay    = 2 * time.Second
)

// Service загружает категории аккаунта и разрешает их game_id.
// Разрешённые game_id кэшируются, чтобы не ходить на страницу каждой
// категории при каждом запуске.
type Service struct {
	log        zerolog.Logger
	source     domain.CategorySource
	cache      domain.GameIDCache
	retryDelay time.Duration
}

// New создаёт сервис категорий.
func New(log zerolog.Logger, source domain.CategorySource, cache domain.GameIDCache) *Service {
	return &Service{
		log:        log,
		source:     source,
		cache:      cache,
		retryDelay: resolveDelay,
	}
}

// Bootstrap возвращает категории аккаунта с заполненными game_id.
// Кэш перезаписывается целиком после разрешения всех категорий.
func (s *Service) Bootstrap(ctx context.Context, userID int64) ([]domain.Category, error) {
	cats, err := s.source.GetUserCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("загрузка категорий: %w", err)
	}

	known, err := s.cache.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("не удалось прочитать кэш game_id, разрешаю заново")
		known = map[string]int64{}
	}

	resolved := make(map[string]int64, len(cats))
	for i := range cats {
		key := cats[i].CacheKey()
		if gameID, ok := known[key]; ok {
			cats[i].GameID = gameID
			resolved[key] = gameID
			continue
		}
		gameID, err := s.resolve(ctx, cats[i])
		if err != nil {
			return nil, fmt.Errorf("категория %q: %w", cats[i].Title, err)
		}
		cats[i].GameID = gameID
		resolved[key] = gameID
		s.log.Debug().Str("category", cats[i].Title).Int64("game_id", gameID).Msg("определил game_id категории")
	}

	if err := s.cache.Store(ctx, resolved); err != nil {
		s.log.Warn().Err(err).Msg("не удалось сохранить кэш game_id")
	}
	s.log.Info().Int("categories", len(cats)).Msg("категории загружены")
	return cats, nil
}

func (s *Service) resolve(ctx context.Context, cat domain.Category) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		gameID, err := s.source.GetCategoryGameID(ctx, cat)
		if err == nil {
			return gameID, nil
		}
		lastErr = err
		s.log.Warn().Err(err).Int("attempt", attempt).Str("category", cat.Title).Msg("не удалось определить game_id")
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return 0, fmt.Errorf("определение game_id: %w", lastErr)
}
