package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/metrics"
)

// Postgres реализует журнал заказов на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.OrderJournal = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу журнала, если её ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS seen_orders (
    order_id TEXT PRIMARY KEY,
    title    TEXT NOT NULL DEFAULT '',
    buyer    TEXT NOT NULL DEFAULT '',
    price    DOUBLE PRECISION NOT NULL DEFAULT 0,
    seen_at  TIMESTAMPTZ NOT NULL
)
`)
	if err != nil {
		return fmt.Errorf("создание таблицы журнала: %w", err)
	}
	return nil
}

// KnownOrderIDs возвращает ID всех заказов, записанных в журнал.
func (p *Postgres) KnownOrderIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT order_id FROM seen_orders ORDER BY seen_at`)
	metrics.ObserveNetworkRequest("postgres", "seen_orders_select", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение журнала заказов: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("чтение строки журнала: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход журнала заказов: %w", err)
	}
	return ids, nil
}

// RecordOrder записывает заказ в журнал. Повторная запись того же ID не ошибка.
func (p *Postgres) RecordOrder(ctx context.Context, order domain.Order, seenAt time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO seen_orders (order_id, title, buyer, price, seen_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (order_id) DO NOTHING
`, order.ID, order.Title, order.BuyerUsername, order.Price, seenAt.UTC())
	metrics.ObserveNetworkRequest("postgres", "seen_orders_insert", start, err)
	if err != nil {
		return fmt.Errorf("запись заказа в журнал: %w", err)
	}
	return nil
}
