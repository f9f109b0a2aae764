package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	PollCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runner_poll_cycles_total",
		Help: "Количество итераций опроса runner'а",
	})
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runner_poll_errors_total",
		Help: "Ошибки опроса runner'а",
	})
	EventsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_dispatched_total",
		Help: "Количество событий, переданных в диспетчер",
	}, []string{"kind"})
	HandlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handler_errors_total",
		Help: "Ошибки хэндлеров событий",
	}, []string{"kind"})
	RaiseAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "raise_attempts_total",
		Help: "Попытки поднятия категорий",
	}, []string{"outcome"})
	ReconcileNewOrders = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_new_orders_total",
		Help: "Новые заказы, найденные при сверке",
	})
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		PollCycles,
		PollErrors,
		EventsDispatched,
		HandlerErrors,
		RaiseAttempts,
		ReconcileNewOrders,
		NetworkRequestDuration,
	)
}

// StartServer запускает HTTP сервер с эндпоинтами /metrics и /healthz.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
}
