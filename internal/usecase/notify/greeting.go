package notify

import (
	"fmt"
	"time"

	"funpay-agent/internal/domain"
)

// GreetingLines возвращает строки приветствия после авторизации,
// с обращением по времени суток.
func GreetingLines(account domain.Account, now time.Time) []string {
	var hello string
	switch hour := now.Hour(); {
	case hour < 4:
		hello = "Доброй ночи"
	case hour < 12:
		hello = "Доброе утро"
	case hour < 17:
		hello = "Добрый день"
	default:
		hello = "Добрый вечер"
	}
	return []string{
		fmt.Sprintf("%s, %s.", hello, account.Username),
		fmt.Sprintf("Баланс: %.2f %s.", account.Balance, account.Currency),
		fmt.Sprintf("Активных продаж: %d.", account.ActiveSales),
	}
}
