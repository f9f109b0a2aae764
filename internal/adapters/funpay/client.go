package funpay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"funpay-agent/internal/infra/metrics"
)

// Типовые ошибки клиента. Клиент различает классы отказов, чтобы циклы
// могли логировать их по-разному, но ни одна из них не фатальна для процесса.
var (
	// ErrSessionExpired возвращается, когда сервер перестал узнавать сессию.
	// Автоматического обновления сессии нет: агент продолжит получать эту
	// ошибку до перезапуска с новым ключом.
	ErrSessionExpired = errors.New("сессия недействительна")
	// ErrNotFound возвращается на 404 от сервера.
	ErrNotFound = errors.New("страница не найдена")
	// ErrBadStatus возвращается на любой другой не-2xx статус.
	ErrBadStatus = errors.New("неожиданный статус ответа")
)

// Client выполняет запросы к FunPay от имени одного аккаунта.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	goldenKey  string

	// Заполняются в FetchAccount и далее не меняются.
	csrfToken string
	sessionID string
	userID    int64
}

// Option настраивает клиент.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout задаёт тайм-аут запросов.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New создаёт клиент FunPay.
func New(baseURL, goldenKey string, opts ...Option) (*Client, error) {
	if goldenKey == "" {
		return nil, fmt.Errorf("golden_key не задан")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("разбор базового URL: %w", err)
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		goldenKey:  goldenKey,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) endpoint(path string) string {
	ref := *c.baseURL
	ref.Path = path
	return ref.String()
}

func (c *Client) cookie() string {
	cookie := "golden_key=" + c.goldenKey
	if c.sessionID != "" {
		cookie += "; PHPSESSID=" + c.sessionID
	}
	return cookie
}

// getPage выполняет GET с сессионной cookie и возвращает тело ответа.
func (c *Client) getPage(ctx context.Context, operation, rawURL string) (_ io.ReadCloser, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("funpay", operation, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("cookie", c.cookie())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос %s: %w", operation, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", operation, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: статус %d: %w", operation, resp.StatusCode, ErrBadStatus)
	}
	return resp.Body, nil
}

// postForm выполняет POST формы с заголовками AJAX-запроса FunPay.
func (c *Client) postForm(ctx context.Context, operation, rawURL string, form url.Values) (_ []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("funpay", operation, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set("cookie", c.cookie())
	req.Header.Set("content-type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("x-requested-with", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос %s: %w", operation, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%s: %w", operation, ErrSessionExpired)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: статус %d: %w", operation, resp.StatusCode, ErrBadStatus)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа %s: %w", operation, err)
	}
	return body, nil
}
