package notify

import (
	"strings"
	"testing"
	"time"

	"funpay-agent/internal/domain"
)

func TestGreetingLines(t *testing.T) {
	account := domain.Account{Username: "seller", Balance: 12.5, Currency: "₽", ActiveSales: 3}
	cases := []struct {
		hour  int
		hello string
	}{
		{2, "Доброй ночи"},
		{9, "Доброе утро"},
		{14, "Добрый день"},
		{20, "Добрый вечер"},
	}
	for _, tc := range cases {
		now := time.Date(2024, time.March, 8, tc.hour, 0, 0, 0, time.UTC)
		lines := GreetingLines(account, now)
		if len(lines) != 3 {
			t.Fatalf("час %d: ожидали 3 строки, получили %d", tc.hour, len(lines))
		}
		if !strings.HasPrefix(lines[0], tc.hello) {
			t.Fatalf("час %d: неверное обращение: %q", tc.hour, lines[0])
		}
		if !strings.Contains(lines[0], "seller") {
			t.Fatalf("в приветствии нет ника: %q", lines[0])
		}
		if !strings.Contains(lines[2], "3") {
			t.Fatalf("в приветствии нет числа продаж: %q", lines[2])
		}
	}
}
