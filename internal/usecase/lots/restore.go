package lots

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

// Restorer возвращает в продажу лоты, которые FunPay снял после оплаты
// последнего экземпляра. Снимок лотов делается при запуске, после каждого
// нового заказа список сверяется с текущим.
type Restorer struct {
	log    zerolog.Logger
	source domain.LotSource
	userID int64

	// gameByCategory нужен для ChangeLotState: лот включается в контексте игры.
	gameByCategory map[int64]int64
	saved          map[int64]domain.Lot
}

// NewRestorer создаёт сервис восстановления лотов.
func NewRestorer(log zerolog.Logger, source domain.LotSource, userID int64, categories []domain.Category) *Restorer {
	games := make(map[int64]int64, len(categories))
	for _, cat := range categories {
		games[cat.ID] = cat.GameID
	}
	return &Restorer{
		log:            log,
		source:         source,
		userID:         userID,
		gameByCategory: games,
		saved:          map[int64]domain.Lot{},
	}
}

// Bootstrap запоминает активные лоты аккаунта.
func (r *Restorer) Bootstrap(ctx context.Context) error {
	lots, err := r.source.GetUserLots(ctx, r.userID)
	if err != nil {
		return fmt.Errorf("загрузка лотов: %w", err)
	}
	for _, lot := range lots {
		if lot.GameID == 0 {
			lot.GameID = r.gameByCategory[lot.CategoryID]
		}
		r.saved[lot.ID] = lot
	}
	r.log.Info().Int("lots", len(lots)).Msg("лоты загружены")
	return nil
}

// Handle — хэндлер события NewOrderEvent: сверяет сохранённые лоты с текущими
// и включает обратно пропавшие.
func (r *Restorer) Handle(ctx context.Context, event domain.Event) error {
	if _, ok := event.(domain.NewOrderEvent); !ok {
		return nil
	}

	current, err := r.source.GetUserLots(ctx, r.userID)
	if err != nil {
		return fmt.Errorf("загрузка лотов для сверки: %w", err)
	}
	active := make(map[int64]struct{}, len(current))
	for _, lot := range current {
		active[lot.ID] = struct{}{}
	}

	for id, lot := range r.saved {
		if _, ok := active[id]; ok {
			continue
		}
		if lot.GameID == 0 {
			r.log.Warn().Int64("lot", lot.ID).Msg("у лота нет game_id, пропускаю восстановление")
			continue
		}
		if err := r.source.ChangeLotState(ctx, lot.ID, lot.GameID); err != nil {
			r.log.Error().Err(err).Int64("lot", lot.ID).Msg("не удалось восстановить лот")
			continue
		}
		r.log.Info().Int64("lot", lot.ID).Str("title", lot.Title).Msg("лот восстановлен")
	}
	return nil
}
