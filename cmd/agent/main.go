package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"funpay-agent/internal/adapters/funpay"
	"funpay-agent/internal/adapters/repo"
	"funpay-agent/internal/adapters/telegram"
	"funpay-agent/internal/domain"
	"funpay-agent/internal/infra/cache"
	"funpay-agent/internal/infra/config"
	"funpay-agent/internal/infra/db"
	applog "funpay-agent/internal/infra/log"
	"funpay-agent/internal/infra/metrics"
	"funpay-agent/internal/infra/products"
	"funpay-agent/internal/infra/queue"
	"funpay-agent/internal/usecase/autoresponse"
	"funpay-agent/internal/usecase/categories"
	"funpay-agent/internal/usecase/delivery"
	"funpay-agent/internal/usecase/dispatch"
	"funpay-agent/internal/usecase/lots"
	"funpay-agent/internal/usecase/notify"
	"funpay-agent/internal/usecase/orders"
	"funpay-agent/internal/usecase/poller"
	"funpay-agent/internal/usecase/raise"
	"funpay-agent/internal/usecase/runner"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	if cfg.FunPay.GoldenKey == "" {
		logger.Fatal().Msg("agent: не указан ключ аккаунта (FUNPAY_GOLDEN_KEY)")
	}
	client, err := funpay.New(cfg.FunPay.BaseURL, cfg.FunPay.GoldenKey, funpay.WithTimeout(cfg.FunPay.RequestTimeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("agent: не удалось создать клиент FunPay")
	}

	accountCtx, accountCancel := context.WithTimeout(ctx, 30*time.Second)
	account, err := client.FetchAccount(accountCtx)
	accountCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("agent: не удалось авторизоваться на FunPay")
	}
	logger.Info().Str("username", account.Username).Int64("id", account.ID).Msg("agent: авторизован")
	for _, line := range notify.GreetingLines(account, time.Now()) {
		logger.Info().Msg(line)
	}

	var gameIDCache domain.GameIDCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		gameIDCache = cache.NewRedis(rdb, "funpay:game_ids")
	} else {
		gameIDCache = cache.NewFile(cfg.Storage.CacheFile)
	}

	categoryService := categories.New(logger.With().Str("component", "categories").Logger(), client, gameIDCache)
	cats, err := categoryService.Bootstrap(ctx, account.ID)
	if err != nil {
		logger.Fatal().Err(err).Msg("agent: не удалось загрузить категории")
	}

	var journal domain.OrderJournal
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("agent: нет подключения к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("agent: не удалось подготовить схему БД")
		}
		journal = pg
	}

	dispatcher := dispatch.New(logger.With().Str("component", "dispatch").Logger())

	var notifyService *notify.Service
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("agent: не удалось создать Telegram-бота")
		}
		notifier := telegram.NewNotifier(botAPI, logger.With().Str("component", "telegram").Logger(), cfg.Telegram.ChatID)
		notifyService = notify.New(logger.With().Str("component", "notify").Logger(), notifier, notify.Toggles{
			NewMessage: cfg.Telegram.NewMessageNotification,
			NewOrder:   cfg.Telegram.NewOrderNotification,
			Raise:      cfg.Telegram.RaiseNotification,
			Delivery:   cfg.Telegram.DeliveryNotification,
			Start:      cfg.Telegram.StartNotification,
		})
		dispatcher.Register(domain.EventNewMessage, notifyService.HandleNewMessage)
		dispatcher.Register(domain.EventNewOrder, notifyService.HandleNewOrder)
		dispatcher.Register(domain.EventCategoriesRaised, notifyService.HandleCategoriesRaised)
		dispatcher.Register(domain.EventDeliveryResult, notifyService.HandleDeliveryResult)
	}

	if cfg.Rabbit.URL != "" {
		publisher, err := queue.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("agent: не удалось подключиться к RabbitMQ")
		}
		defer publisher.Close()
		bridge := func(ctx context.Context, event domain.Event) error {
			return publisher.Publish(ctx, event)
		}
		for _, kind := range []domain.EventKind{
			domain.EventNewMessage,
			domain.EventNewOrder,
			domain.EventCategoriesRaised,
			domain.EventDeliveryResult,
		} {
			dispatcher.Register(kind, bridge)
		}
	}

	runnerService := runner.New(logger.With().Str("component", "runner").Logger(), client, client)

	reconciler := orders.NewReconciler(logger.With().Str("component", "orders").Logger(), client, dispatcher, journal)
	if err := reconciler.Seed(ctx); err != nil {
		logger.Fatal().Err(err).Msg("agent: не удалось прочитать журнал заказов")
	}
	dispatcher.Register(domain.EventOrderChange, reconciler.Handle)

	if cfg.Features.AutoResponse {
		rules, err := autoresponse.LoadRules(cfg.Storage.ResponseFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("agent: не удалось загрузить авто-ответы")
		}
		responder := autoresponse.New(logger.With().Str("component", "autoresponse").Logger(), rules, client, runnerService)
		dispatcher.Register(domain.EventNewMessage, responder.Handle)
	}

	if cfg.Features.AutoDelivery {
		rules, err := delivery.LoadRules(cfg.Storage.DeliveryFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("agent: не удалось загрузить авто-выдачу")
		}
		store := products.NewFile(cfg.Storage.ProductsFile)
		deliveryService := delivery.New(logger.With().Str("component", "delivery").Logger(), rules, client, store, dispatcher)
		dispatcher.Register(domain.EventNewOrder, deliveryService.Handle)
	}

	if cfg.Features.AutoRestore {
		restorer := lots.NewRestorer(logger.With().Str("component", "lots").Logger(), client, account.ID, cats)
		if err := restorer.Bootstrap(ctx); err != nil {
			logger.Fatal().Err(err).Msg("agent: не удалось загрузить лоты")
		}
		dispatcher.Register(domain.EventNewOrder, restorer.Handle)
	}

	if notifyService != nil {
		if err := notifyService.Greeting(ctx, account); err != nil {
			logger.Warn().Err(err).Msg("agent: не удалось отправить приветствие")
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		pollerService := poller.New(logger.With().Str("component", "poller").Logger(), runnerService, dispatcher, cfg.FunPay.PollInterval)
		pollerService.Run(ctx)
	}()

	if cfg.Features.AutoRaise {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raiseService := raise.New(logger.With().Str("component", "raise").Logger(), client, dispatcher, cats, cfg.Raise.ExcludeCategoryIDs)
			raiseService.Run(ctx)
		}()
	}

	logger.Info().Msg("agent: запущен")
	wg.Wait()
	logger.Info().Msg("agent: остановлен")
}
