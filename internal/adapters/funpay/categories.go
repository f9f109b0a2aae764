package funpay

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"funpay-agent/internal/domain"
)

// GetUserCategories загружает категории лотов пользователя с его профиля.
// Категории игровой валюты помечаются отдельным типом: их нельзя поднимать.
func (c *Client) GetUserCategories(ctx context.Context, userID int64) ([]domain.Category, error) {
	body, err := c.getPage(ctx, "user_categories", c.endpoint(fmt.Sprintf("/users/%d/", userID)))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("разбор профиля: %w", err)
	}

	var categories []domain.Category
	doc.Find("div.offer-list-title").Each(func(_ int, title *goquery.Selection) {
		link := title.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		kind := domain.CategoryLot
		if strings.Contains(href, "chips") {
			kind = domain.CategoryCurrency
		}
		parts := strings.Split(strings.TrimSuffix(href, "/"), "/")
		if len(parts) == 0 {
			return
		}
		id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		if err != nil {
			return
		}
		categories = append(categories, domain.Category{
			ID:         id,
			Title:      strings.TrimSpace(link.Text()),
			PublicLink: href,
			Kind:       kind,
		})
	})
	return categories, nil
}

// GetCategoryGameID определяет ID игры, к которой относится категория,
// по странице редактирования её лотов.
func (c *Client) GetCategoryGameID(ctx context.Context, cat domain.Category) (int64, error) {
	var link string
	if cat.Kind == domain.CategoryLot {
		link = c.endpoint(fmt.Sprintf("/lots/%d/trade", cat.ID))
	} else {
		link = c.endpoint(fmt.Sprintf("/chips/%d/trade", cat.ID))
	}

	body, err := c.getPage(ctx, "category_game_id", link)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return 0, fmt.Errorf("разбор страницы категории: %w", err)
	}
	if strings.TrimSpace(doc.Find("div.user-link-name").First().Text()) == "" {
		return 0, ErrSessionExpired
	}

	var raw string
	if cat.Kind == domain.CategoryLot {
		raw, _ = doc.Find("div.col-sm-6").First().Find("button").First().Attr("data-game")
	} else {
		raw, _ = doc.Find(`input[name="game"]`).First().Attr("value")
	}
	gameID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("категория %d: game_id не найден на странице", cat.ID)
	}
	return gameID, nil
}

// GetUserLots загружает лоты пользователя с его профиля.
func (c *Client) GetUserLots(ctx context.Context, userID int64) ([]domain.Lot, error) {
	body, err := c.getPage(ctx, "user_lots", c.endpoint(fmt.Sprintf("/users/%d/", userID)))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("разбор профиля: %w", err)
	}

	var lots []domain.Lot
	doc.Find("div.offer").Each(func(_ int, section *goquery.Selection) {
		var categoryID int64
		if href, ok := section.Find("div.offer-list-title a").First().Attr("href"); ok {
			parts := strings.Split(strings.TrimSuffix(href, "/"), "/")
			categoryID, _ = strconv.ParseInt(parts[len(parts)-1], 10, 64)
		}
		section.Find("a.tc-item").Each(func(_ int, item *goquery.Selection) {
			href, ok := item.Attr("href")
			if !ok {
				return
			}
			id := parseLotIDFromHref(href)
			if id == 0 {
				return
			}
			lots = append(lots, domain.Lot{
				ID:         id,
				CategoryID: categoryID,
				Title:      strings.TrimSpace(item.Find("div.tc-desc-text").First().Text()),
				Price:      strings.TrimSpace(item.Find("div.tc-price").First().Text()),
			})
		})
	})
	return lots, nil
}

// ChangeLotState переключает состояние лота (активирует деактивированный лот).
func (c *Client) ChangeLotState(ctx context.Context, lotID, gameID int64) error {
	form := url.Values{}
	form.Set("lot", strconv.FormatInt(lotID, 10))
	form.Set("game", strconv.FormatInt(gameID, 10))
	form.Set("csrf_token", c.csrfToken)
	_, err := c.postForm(ctx, "change_lot_state", c.endpoint("/lots/changeState"), form)
	return err
}

// parseLotIDFromHref извлекает ID лота из ссылки вида /lots/offer?id=12345.
func parseLotIDFromHref(href string) int64 {
	idx := strings.Index(href, "id=")
	if idx < 0 {
		return 0
	}
	raw := href[idx+len("id="):]
	if amp := strings.IndexByte(raw, '&'); amp >= 0 {
		raw = raw[:amp]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
