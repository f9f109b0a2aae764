package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию агента.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`

	FunPay struct {
		GoldenKey      string        `envconfig:"FUNPAY_GOLDEN_KEY"`
		BaseURL        string        `envconfig:"FUNPAY_BASE_URL" default:"https://funpay.com"`
		RequestTimeout time.Duration `envconfig:"FUNPAY_REQUEST_TIMEOUT" default:"10s"`
		PollInterval   time.Duration `envconfig:"FUNPAY_POLL_INTERVAL" default:"6s"`
	} `envconfig:""`

	Features struct {
		AutoRaise    bool `envconfig:"AUTO_RAISE" default:"true"`
		AutoResponse bool `envconfig:"AUTO_RESPONSE" default:"true"`
		AutoDelivery bool `envconfig:"AUTO_DELIVERY" default:"true"`
		AutoRestore  bool `envconfig:"AUTO_RESTORE" default:"false"`
	} `envconfig:""`

	Raise struct {
		ExcludeCategoryIDs []string `envconfig:"RAISE_EXCLUDE_CATEGORY_IDS"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_CHAT_ID"`

		NewMessageNotification bool `envconfig:"TG_NEW_MESSAGE_NOTIFICATION" default:"true"`
		NewOrderNotification   bool `envconfig:"TG_NEW_ORDER_NOTIFICATION" default:"true"`
		RaiseNotification      bool `envconfig:"TG_RAISE_NOTIFICATION" default:"true"`
		DeliveryNotification   bool `envconfig:"TG_DELIVERY_NOTIFICATION" default:"true"`
		StartNotification      bool `envconfig:"TG_START_NOTIFICATION" default:"true"`
	} `envconfig:""`

	Storage struct {
		CacheFile    string `envconfig:"CACHE_FILE" default:"storage/cache/categories.json"`
		ResponseFile string `envconfig:"AUTO_RESPONSE_FILE" default:"configs/auto_response.json"`
		DeliveryFile string `envconfig:"AUTO_DELIVERY_FILE" default:"configs/auto_delivery.json"`
		ProductsFile string `envconfig:"PRODUCTS_FILE" default:"storage/products.json"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	PGDSN     string `envconfig:"PG_DSN"`

	Rabbit struct {
		URL      string `envconfig:"RABBITMQ_URL"`
		Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"funpay.events"`
	} `envconfig:""`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
