package funpay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"funpay-agent/internal/domain"
)

// ParseChatSnapshot разбирает сырой HTML снапшота chat_bookmarks в список
// переписок. Снапшот всегда полный, а не дельта: подавление уже увиденных
// сообщений выполняет Message-Diff, не парсер.
func (c *Client) ParseChatSnapshot(html string) ([]domain.ChatSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("разбор снапшота чатов: %w", err)
	}

	var chats []domain.ChatSummary
	doc.Find("a.contact-item").Each(func(_ int, item *goquery.Selection) {
		rawID, ok := item.Attr("data-id")
		if !ok {
			return
		}
		nodeID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return
		}
		chats = append(chats, domain.ChatSummary{
			NodeID:         nodeID,
			MessageText:    strings.TrimSpace(item.Find("div.contact-item-message").First().Text()),
			SendTime:       strings.TrimSpace(item.Find("div.contact-item-time").First().Text()),
			SenderUsername: strings.TrimSpace(item.Find("div.media-user-name").First().Text()),
		})
	})
	return chats, nil
}

// NodeIDByUsername находит ID переписки с пользователем по его нику,
// просматривая страницу чатов аккаунта.
func (c *Client) NodeIDByUsername(ctx context.Context, username string) (int64, error) {
	body, err := c.getPage(ctx, "chat_page", c.endpoint("/chat/"))
	if err != nil {
		return 0, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return 0, fmt.Errorf("разбор страницы чатов: %w", err)
	}

	var nodeID int64
	var found bool
	doc.Find("a.contact-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		name := strings.TrimSpace(item.Find("div.media-user-name").First().Text())
		if name != username {
			return true
		}
		rawID, ok := item.Attr("data-id")
		if !ok {
			return true
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return true
		}
		nodeID = id
		found = true
		return false
	})
	if !found {
		return 0, fmt.Errorf("переписка с пользователем %q не найдена", username)
	}
	return nodeID, nil
}
