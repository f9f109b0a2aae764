package lots

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

type stubLots struct {
	lots     []domain.Lot
	restored []int64
}

func (s *stubLots) GetUserLots(context.Context, int64) ([]domain.Lot, error) {
	return append([]domain.Lot(nil), s.lots...), nil
}

func (s *stubLots) ChangeLotState(_ context.Context, lotID, _ int64) error {
	s.restored = append(s.restored, lotID)
	return nil
}

func TestHandleRestoresMissingLot(t *testing.T) {
	source := &stubLots{lots: []domain.Lot{
		{ID: 1, GameID: 100, Title: "Ключ Steam"},
		{ID: 2, GameID: 100, Title: "Прокачка"},
	}}
	restorer := NewRestorer(zerolog.Nop(), source, 42, []domain.Category{{ID: 5, GameID: 100}})

	if err := restorer.Bootstrap(context.Background()); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Лот 1 пропал после оплаты последнего экземпляра.
	source.lots = source.lots[1:]
	if err := restorer.Handle(context.Background(), domain.NewOrderEvent{}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(source.restored) != 1 || source.restored[0] != 1 {
		t.Fatalf("неверные восстановленные лоты: %v", source.restored)
	}
}

func TestHandleKeepsActiveLots(t *testing.T) {
	source := &stubLots{lots: []domain.Lot{{ID: 1, GameID: 100}}}
	restorer := NewRestorer(zerolog.Nop(), source, 42, []domain.Category{{ID: 5, GameID: 100}})

	if err := restorer.Bootstrap(context.Background()); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if err := restorer.Handle(context.Background(), domain.NewOrderEvent{}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(source.restored) != 0 {
		t.Fatalf("восстановлены активные лоты: %v", source.restored)
	}
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	source := &stubLots{}
	restorer := NewRestorer(zerolog.Nop(), source, 42, []domain.Category{{ID: 5, GameID: 100}})

	if err := restorer.Handle(context.Background(), domain.OrderChangeEvent{}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
}

type failingLots struct{}

func (failingLots) GetUserLots(context.Context, int64) ([]domain.Lot, error) {
	return nil, errors.New("сервер недоступен")
}

func (failingLots) ChangeLotState(context.Context, int64, int64) error { return nil }

func TestHandlePropagatesFetchError(t *testing.T) {
	restorer := NewRestorer(zerolog.Nop(), failingLots{}, 42, nil)
	if err := restorer.Handle(context.Background(), domain.NewOrderEvent{}); err == nil {
		t.Fatal("ожидалась ошибка загрузки лотов")
	}
}
