package funpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"funpay-agent/internal/domain"
)

const (
	feedOrdersCounters = "orders_counters"
	feedChatBookmarks  = "chat_bookmarks"
)

type runnerObject struct {
	Type string          `json:"type"`
	Tag  string          `json:"tag"`
	Data json.RawMessage `json:"data"`
}

type runnerResponse struct {
	Objects []runnerObject `json:"objects"`
}

type runnerSubRequest struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Tag  string `json:"tag"`
	Data bool   `json:"data"`
}

type countersData struct {
	Buyer  int `json:"buyer"`
	Seller int `json:"seller"`
}

type chatsData struct {
	HTML string `json:"html"`
}

// GetUpdates выполняет один запрос к runner'у с текущими тэгами обоих фидов.
// Возвращённые тэги нужно передать в следующий вызов: тэг каждого фида
// обновляется независимо и никогда не подставляется в другой фид.
func (c *Client) GetUpdates(ctx context.Context, orderTag, messageTag string) (domain.RunnerUpdates, error) {
	objects, err := json.Marshal([]runnerSubRequest{
		{Type: feedOrdersCounters, ID: c.userID, Tag: orderTag, Data: false},
		{Type: feedChatBookmarks, ID: c.userID, Tag: messageTag, Data: false},
	})
	if err != nil {
		return domain.RunnerUpdates{}, fmt.Errorf("сериализация запроса: %w", err)
	}

	form := url.Values{}
	form.Set("objects", string(objects))
	form.Set("request", "false")
	form.Set("csrf_token", c.csrfToken)

	body, err := c.postForm(ctx, "runner", c.endpoint("/runner/"), form)
	if err != nil {
		return domain.RunnerUpdates{}, err
	}

	var parsed runnerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.RunnerUpdates{}, fmt.Errorf("разбор ответа runner'а: %w", err)
	}

	// Тэги перезаписываются ответом сервера даже при пустых данных фида.
	updates := domain.RunnerUpdates{OrderTag: orderTag, MessageTag: messageTag}
	for _, obj := range parsed.Objects {
		switch obj.Type {
		case feedOrdersCounters:
			updates.OrderTag = obj.Tag
			var counters countersData
			if len(obj.Data) > 0 && json.Unmarshal(obj.Data, &counters) == nil {
				updates.HasCounters = true
				updates.Counters = domain.OrderCounters(counters)
			}
		case feedChatBookmarks:
			updates.MessageTag = obj.Tag
			var chats chatsData
			if len(obj.Data) > 0 && json.Unmarshal(obj.Data, &chats) == nil && chats.HTML != "" {
				updates.HasChatsHTML = true
				updates.ChatsHTML = chats.HTML
			}
		}
	}
	return updates, nil
}

type chatMessageRequest struct {
	Action string          `json:"action"`
	Data   chatMessageData `json:"data"`
}

type chatMessageData struct {
	Node        int64  `json:"node"`
	LastMessage int64  `json:"last_message"`
	Content     string `json:"content"`
}

type chatMessageResponse struct {
	Response *struct {
		Error *string `json:"error"`
	} `json:"response"`
}

// SendMessage отправляет сообщение в переписку node.
func (c *Client) SendMessage(ctx context.Context, nodeID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("пустой текст сообщения")
	}
	request, err := json.Marshal(chatMessageRequest{
		Action: "chat_message",
		Data:   chatMessageData{Node: nodeID, LastMessage: -1, Content: text},
	})
	if err != nil {
		return fmt.Errorf("сериализация запроса: %w", err)
	}

	form := url.Values{}
	form.Set("objects", "")
	form.Set("request", string(request))
	form.Set("csrf_token", c.csrfToken)

	body, err := c.postForm(ctx, "send_message", c.endpoint("/runner/"), form)
	if err != nil {
		return err
	}

	var parsed chatMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("разбор ответа: %w", err)
	}
	if parsed.Response == nil {
		return fmt.Errorf("сервер не подтвердил отправку")
	}
	if parsed.Response.Error != nil {
		return fmt.Errorf("сервер отклонил сообщение: %s", *parsed.Response.Error)
	}
	return nil
}
