package funpay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"funpay-agent/internal/domain"
)

// GetOrders загружает список заказов аккаунта со страницы продаж,
// пропуская заказы с ID из exclude. Порядок строк таблицы сервера
// сохраняется.
func (c *Client) GetOrders(ctx context.Context, exclude []string) ([]domain.Order, error) {
	body, err := c.getPage(ctx, "orders", c.endpoint("/orders/trade"))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("разбор страницы заказов: %w", err)
	}
	if strings.TrimSpace(doc.Find("div.user-link-name").First().Text()) == "" {
		return nil, ErrSessionExpired
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	var orders []domain.Order
	doc.Find("a.tc-item").Each(func(_ int, row *goquery.Selection) {
		order, ok := parseOrderRow(row)
		if !ok {
			return
		}
		if _, skip := excluded[order.ID]; skip {
			return
		}
		orders = append(orders, order)
	})
	return orders, nil
}

func parseOrderRow(row *goquery.Selection) (domain.Order, bool) {
	class, _ := row.Attr("class")
	var status domain.OrderStatus
	switch {
	case strings.Contains(class, "warning"):
		status = domain.OrderRefunded
	case strings.Contains(class, "info"):
		status = domain.OrderOutstanding
	default:
		status = domain.OrderCompleted
	}

	id := strings.TrimSpace(row.Find("div.tc-order").First().Text())
	if id == "" {
		return domain.Order{}, false
	}

	order := domain.Order{
		ID:     id,
		Title:  strings.TrimSpace(row.Find("div.order-desc").First().Find("div").First().Text()),
		Status: status,
	}

	rawPrice := strings.TrimSpace(row.Find("div.tc-price").First().Text())
	if parts := strings.SplitN(rawPrice, " ", 2); len(parts) > 0 {
		if price, err := strconv.ParseFloat(parts[0], 64); err == nil {
			order.Price = price
		}
	}

	buyer := row.Find("div.media-user-name").First().Find("span").First()
	order.BuyerUsername = strings.TrimSpace(buyer.Text())
	if href, ok := buyer.Attr("data-href"); ok {
		order.BuyerID = parseUserIDFromHref(href)
	}
	return order, true
}

// parseUserIDFromHref извлекает ID пользователя из ссылки вида
// https://funpay.com/users/12345/.
func parseUserIDFromHref(href string) int64 {
	trimmed := strings.TrimSuffix(href, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
