package funpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// runnerTransport отвечает на запросы к runner'у заранее заданными объектами
// и запоминает тела запросов.
type runnerTransport struct {
	responses []string
	forms     []map[string][]string
}

func (t *runnerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	form, err := parseFormBody(string(body))
	if err != nil {
		return nil, err
	}
	t.forms = append(t.forms, form)

	response := t.responses[0]
	if len(t.responses) > 1 {
		t.responses = t.responses[1:]
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(response)),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

func parseFormBody(body string) (map[string][]string, error) {
	form := map[string][]string{}
	for _, pair := range strings.Split(body, "&") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, err := url.QueryUnescape(parts[0])
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(parts[1])
		if err != nil {
			return nil, err
		}
		form[key] = append(form[key], value)
	}
	return form, nil
}

func newRunnerClient(t *testing.T, responses ...string) (*Client, *runnerTransport) {
	t.Helper()
	transport := &runnerTransport{responses: responses}
	client, err := New("https://funpay.com", "key", WithHTTPClient(&http.Client{Transport: transport}))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return client, transport
}

func sentTags(t *testing.T, form map[string][]string) (orderTag, messageTag string) {
	t.Helper()
	raw, ok := form["objects"]
	if !ok || len(raw) == 0 {
		t.Fatalf("в запросе нет objects")
	}
	var subs []runnerSubRequest
	if err := json.Unmarshal([]byte(raw[0]), &subs); err != nil {
		t.Fatalf("не удалось разобрать objects: %v", err)
	}
	for _, sub := range subs {
		switch sub.Type {
		case feedOrdersCounters:
			orderTag = sub.Tag
		case feedChatBookmarks:
			messageTag = sub.Tag
		}
	}
	return orderTag, messageTag
}

func TestGetUpdatesTagRoundTrip(t *testing.T) {
	first := `{"objects":[
		{"type":"orders_counters","tag":"oo11","data":{"buyer":1,"seller":2}},
		{"type":"chat_bookmarks","tag":"mm11","data":{"html":"<div></div>"}}
	]}`
	second := `{"objects":[
		{"type":"orders_counters","tag":"oo22","data":{"buyer":1,"seller":2}},
		{"type":"chat_bookmarks","tag":"mm22","data":{"html":"<div></div>"}}
	]}`
	client, transport := newRunnerClient(t, first, second)

	updates, err := client.GetUpdates(context.Background(), "o0", "m0")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if updates.OrderTag != "oo11" || updates.MessageTag != "mm11" {
		t.Fatalf("тэги обновлены неверно: %+v", updates)
	}

	// Тэг каждого фида должен уйти в следующий запрос ровно в свой слот.
	if _, err := client.GetUpdates(context.Background(), updates.OrderTag, updates.MessageTag); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	orderTag, messageTag := sentTags(t, transport.forms[1])
	if orderTag != "oo11" {
		t.Fatalf("ожидали тэг oo11 в фиде заказов, получили %q", orderTag)
	}
	if messageTag != "mm11" {
		t.Fatalf("ожидали тэг mm11 в фиде сообщений, получили %q", messageTag)
	}
}

func TestGetUpdatesKeepsTagsOnEmptyFeed(t *testing.T) {
	// Сервер вернул объекты без данных: тэги всё равно перезаписываются.
	response := `{"objects":[
		{"type":"orders_counters","tag":"oNew"},
		{"type":"chat_bookmarks","tag":"mNew"}
	]}`
	client, _ := newRunnerClient(t, response)

	updates, err := client.GetUpdates(context.Background(), "oOld", "mOld")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if updates.OrderTag != "oNew" || updates.MessageTag != "mNew" {
		t.Fatalf("тэги не перезаписаны: %+v", updates)
	}
	if updates.HasCounters || updates.HasChatsHTML {
		t.Fatalf("не ожидали данных фидов: %+v", updates)
	}
}

func TestGetUpdatesMalformedBody(t *testing.T) {
	client, _ := newRunnerClient(t, "<html>это не JSON</html>")
	if _, err := client.GetUpdates(context.Background(), "o", "m"); err == nil {
		t.Fatalf("ожидали ошибку разбора")
	}
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	client, transport := newRunnerClient(t, `{"response":{}}`)
	if err := client.SendMessage(context.Background(), 5, "   "); err == nil {
		t.Fatalf("ожидали ошибку на пустом сообщении")
	}
	if len(transport.forms) != 0 {
		t.Fatalf("пустое сообщение не должно уходить на сервер")
	}
}

func TestSendMessageServerError(t *testing.T) {
	client, _ := newRunnerClient(t, `{"response":{"error":"чат закрыт"}}`)
	if err := client.SendMessage(context.Background(), 5, "привет"); err == nil {
		t.Fatalf("ожидали ошибку сервера")
	}
}
