package funpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"funpay-agent/internal/domain"
)

type raiseResponse struct {
	Error *bool  `json:"error"`
	Msg   string `json:"msg"`
	Modal string `json:"modal"`
}

// RaiseGameCategories поднимает категории игры, к которой относится cat.
// Возможны три исхода от сервера:
//   - отказ с текстом "Подождите ..." — возвращается RaiseResult с ThrottleText;
//   - прямой успех без modal-формы (у аккаунта одна категория этой игры);
//   - modal-форма с чекбоксами остальных категорий игры — отправляется
//     повторный запрос со всеми их ID, кроме excludeIDs.
func (c *Client) RaiseGameCategories(ctx context.Context, cat domain.Category, excludeIDs []string) (domain.RaiseResult, error) {
	form := url.Values{}
	form.Set("game_id", strconv.FormatInt(cat.GameID, 10))
	form.Set("node_id", strconv.FormatInt(cat.ID, 10))

	body, err := c.postForm(ctx, "raise", c.endpoint("/lots/raise"), form)
	if err != nil {
		return domain.RaiseResult{}, err
	}
	var check raiseResponse
	if err := json.Unmarshal(body, &check); err != nil {
		return domain.RaiseResult{}, fmt.Errorf("разбор ответа на поднятие: %w", err)
	}

	switch {
	case check.Error != nil && *check.Error:
		// Любая ошибка сервера трактуется как "слишком рано". Если текст не
		// содержит времени ожидания, парсер времени вернёт дефолтную паузу.
		return domain.RaiseResult{Complete: false, ThrottleText: check.Msg}, nil
	case check.Error != nil:
		// error == false без modal: сервер поднял единственную категорию сам.
		return domain.RaiseResult{Complete: true, RaisedTitles: []string{cat.Title}}, nil
	case check.Modal != "":
		return c.raiseSiblings(ctx, cat, check.Modal, excludeIDs)
	default:
		return domain.RaiseResult{}, fmt.Errorf("непонятный ответ на поднятие: %s", string(body))
	}
}

// raiseSiblings разбирает modal-форму и поднимает все категории игры разом.
func (c *Client) raiseSiblings(ctx context.Context, cat domain.Category, modal string, excludeIDs []string) (domain.RaiseResult, error) {
	ids, titles, err := parseRaiseModal(modal, excludeIDs)
	if err != nil {
		return domain.RaiseResult{}, err
	}

	form := url.Values{}
	form.Set("game_id", strconv.FormatInt(cat.GameID, 10))
	form.Set("node_id", strconv.FormatInt(cat.ID, 10))
	for _, id := range ids {
		form.Add("node_ids[]", id)
	}

	body, err := c.postForm(ctx, "raise_siblings", c.endpoint("/lots/raise"), form)
	if err != nil {
		return domain.RaiseResult{}, err
	}
	var resp raiseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.RaiseResult{}, fmt.Errorf("разбор ответа на поднятие: %w", err)
	}
	if resp.Error != nil && *resp.Error {
		return domain.RaiseResult{Complete: false, ThrottleText: resp.Msg}, nil
	}
	return domain.RaiseResult{Complete: true, RaisedTitles: titles}, nil
}

// parseRaiseModal извлекает ID и названия категорий из чекбоксов modal-формы.
func parseRaiseModal(modal string, excludeIDs []string) ([]string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modal))
	if err != nil {
		return nil, nil, fmt.Errorf("разбор modal-формы: %w", err)
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	var ids, titles []string
	doc.Find("div.checkbox").Each(func(_ int, box *goquery.Selection) {
		id, ok := box.Find("input").First().Attr("value")
		if !ok {
			return
		}
		if _, skip := excluded[id]; skip {
			return
		}
		ids = append(ids, id)
		titles = append(titles, strings.TrimSpace(box.Find("label").First().Text()))
	})
	return ids, titles, nil
}
