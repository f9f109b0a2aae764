package funpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/metrics"
)

type appData struct {
	UserID    int64  `json:"userId"`
	CSRFToken string `json:"csrf-token"`
}

// FetchAccount авторизуется по golden_key и загружает данные об аккаунте
// с главной страницы. Также сохраняет в клиенте CSRF-токен и PHPSESSID,
// которые нужны для запросов к runner'у.
func (c *Client) FetchAccount(ctx context.Context) (_ domain.Account, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("funpay", "account", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("cookie", c.cookie())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Account{}, fmt.Errorf("запрос главной страницы: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return domain.Account{}, fmt.Errorf("главная страница: статус %d: %w", resp.StatusCode, ErrBadStatus)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Account{}, fmt.Errorf("разбор главной страницы: %w", err)
	}

	username := strings.TrimSpace(doc.Find("div.user-link-name").First().Text())
	if username == "" {
		return domain.Account{}, ErrSessionExpired
	}

	rawAppData, ok := doc.Find("body").Attr("data-app-data")
	if !ok {
		return domain.Account{}, fmt.Errorf("на странице нет data-app-data")
	}
	var app appData
	if err := json.Unmarshal([]byte(rawAppData), &app); err != nil {
		return domain.Account{}, fmt.Errorf("разбор data-app-data: %w", err)
	}

	account := domain.Account{
		ID:        app.UserID,
		Username:  username,
		GoldenKey: c.goldenKey,
		CSRFToken: app.CSRFToken,
		LoadedAt:  start,
	}

	if badge := strings.TrimSpace(doc.Find("span.badge-trade").First().Text()); badge != "" {
		if sales, err := strconv.Atoi(badge); err == nil {
			account.ActiveSales = sales
		}
	}
	if badge := strings.TrimSpace(doc.Find("span.badge-balance").First().Text()); badge != "" {
		parts := strings.SplitN(badge, " ", 2)
		if balance, err := strconv.ParseFloat(parts[0], 64); err == nil {
			account.Balance = balance
		}
		if len(parts) == 2 {
			account.Currency = parts[1]
		}
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "PHPSESSID" {
			account.SessionID = cookie.Value
		}
	}

	c.csrfToken = account.CSRFToken
	c.sessionID = account.SessionID
	c.userID = account.ID
	return account, nil
}
