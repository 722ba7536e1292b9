// Payment Service — микросервис обработки платежей.
// REST API для обработки, возврата и просмотра платежей.
// События жизненного цикла платежа публикуются в Kafka через Outbox Pattern,
// уведомления отправляются в Notification Service fire-and-forget.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/payment-service/internal/events"
	"example.com/payment-service/internal/gateway"
	"example.com/payment-service/internal/handler"
	"example.com/payment-service/internal/middleware"
	"example.com/payment-service/internal/notification"
	"example.com/payment-service/internal/repository"
	"example.com/payment-service/internal/seed"
	"example.com/payment-service/internal/service"
	"example.com/payment-service/pkg/config"
	dbpkg "example.com/payment-service/pkg/db"
	"example.com/payment-service/pkg/healthcheck"
	"example.com/payment-service/pkg/jwt"
	"example.com/payment-service/pkg/kafka"
	"example.com/payment-service/pkg/logger"
	"example.com/payment-service/pkg/metrics"
	"example.com/payment-service/pkg/outbox"
	"example.com/payment-service/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	log := logger.With().Str("service", "payment-service").Logger()

	log.Info().
		Str("env", cfg.App.Env).
		Int("port", cfg.HTTP.Port).
		Str("gateway_mode", cfg.Gateway.Mode).
		Msg("Запуск Payment Service")

	// === Observability: Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    "payment-service",
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Подключение к зависимостям ===

	// Подключаемся к MySQL
	db, err := dbpkg.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к MySQL")
	}
	log.Info().Msg("Подключение к MySQL установлено")

	// Миграция схемы: платежи + outbox событий
	if err := db.AutoMigrate(&repository.PaymentModel{}, &outbox.OutboxModel{}); err != nil {
		log.Fatal().Err(err).Msg("Ошибка миграции схемы БД")
	}

	// Подключаемся к Redis (кеш платежей)
	rdb := dbpkg.ConnectRedis(cfg.Redis)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия Redis")
		}
	}()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal().Err(err).Msg("Ошибка подключения к Redis")
	}
	pingCancel()
	log.Info().Msg("Подключение к Redis установлено")

	// ReadinessChecker для /readyz — проверяет MySQL и Redis
	readinessCheck := healthcheck.Composite(
		func(ctx context.Context) error { return healthcheck.CheckMySQL(ctx, db) },
		func(ctx context.Context) error { return healthcheck.CheckRedis(ctx, rdb) },
	)

	// === Observability: Metrics ===

	var metricsServer *metrics.Server
	var metricsWg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(
			cfg.Metrics.Addr(),
			"payment-service",
			metrics.WithReadinessCheck(readinessCheck),
		)
		metricsWg.Add(1)
		go func() {
			defer metricsWg.Done()
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === Инициализация бизнес-логики ===

	// Repository: GORM + Redis read-through кеш
	paymentRepo := repository.NewCachedPaymentRepository(
		repository.NewPaymentRepository(db),
		rdb,
		cfg.Redis.CacheTTL,
	)

	// Платёжный шлюз: симулятор или реальный HTTP клиент
	var gatewayClient gateway.Client
	switch cfg.Gateway.Mode {
	case config.GatewayModeHTTP:
		gatewayClient = gateway.NewHTTPClient(cfg.Gateway)
		log.Info().Str("base_url", cfg.Gateway.BaseURL).Msg("Платёжный шлюз: HTTP")
	default:
		gatewayClient = gateway.NewSimulatedClient(cfg.Gateway)
		log.Info().Float64("failure_rate", cfg.Gateway.FailureRate).Msg("Платёжный шлюз: симулятор")
	}

	// Notification Service клиент (fire-and-forget webhooks)
	notifier := notification.NewClient(cfg.Notification)

	// Контекст для graceful shutdown фоновых воркеров
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka: события платежа через Outbox Pattern
	var publisher events.Publisher
	var kafkaProducer *kafka.Producer
	var workersWg sync.WaitGroup

	if len(cfg.Kafka.Brokers) > 0 {
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Инициализация Kafka")

		// Создаём топики если не существуют
		if err := kafka.EnsureTopics(cfg.Kafka.Brokers, kafka.TopicPaymentEvents); err != nil {
			log.Warn().Err(err).Msg("Не удалось создать топики (возможно Kafka недоступна)")
		}

		kafkaProducer, err = kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка создания Kafka Producer")
		}

		outboxRepo := outbox.NewOutboxRepository(db, "payment")
		publisher = events.NewOutboxPublisher(outboxRepo)

		// Outbox Worker: читает outbox → отправляет в Kafka (at-least-once)
		outboxWorker := outbox.NewOutboxWorker(outboxRepo, kafkaProducer, outbox.DefaultWorkerConfig(), "payment")
		workersWg.Add(1)
		go func() {
			defer workersWg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Паника в Outbox Worker")
				}
			}()
			outboxWorker.Run(ctx)
		}()

		log.Info().Msg("Outbox Worker запущен")
	} else {
		publisher = events.NewNoopPublisher()
		log.Warn().Msg("Kafka не настроена — публикация событий отключена")
	}

	paymentService := service.NewPaymentService(paymentRepo, gatewayClient, notifier, publisher)

	// Демо-данные для dev окружения
	if cfg.Seed.Enabled {
		if err := seed.Load(ctx, paymentRepo); err != nil {
			log.Error().Err(err).Msg("Ошибка загрузки демо-данных")
		}
	}

	// === HTTP сервер ===

	// JWT защита админских маршрутов (опциональна: без ключа dev режим)
	var authMW gin.HandlerFunc
	if cfg.JWT.PublicKeyPath != "" {
		validator, err := jwt.NewValidator(jwt.Config{
			PublicKeyPath: cfg.JWT.PublicKeyPath,
			Issuer:        cfg.JWT.Issuer,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка загрузки публичного ключа JWT")
		}
		authMW = middleware.Auth(validator)
		log.Info().Str("issuer", cfg.JWT.Issuer).Msg("JWT защита админских маршрутов включена")
	} else {
		log.Warn().Msg("JWT ключ не задан — админские маршруты без авторизации")
	}

	router := handler.NewRouter(handler.RouterConfig{
		PaymentHandler:    handler.NewPaymentHandler(paymentService),
		AuthMW:            authMW,
		ReadinessCheck:    handler.ReadinessChecker(readinessCheck),
		NotificationProbe: healthcheck.NewHTTPProbe("notification-service", cfg.Notification.URL+"/health", 2*time.Second),
		Debug:             cfg.IsDevelopment(),
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP сервер запущен")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	// Останавливаем приём новых запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки HTTP сервера")
	}

	// Останавливаем фоновые воркеры и ждём их завершения
	cancel()
	workersWg.Wait()

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия Kafka Producer")
		}
	}

	// Закрываем подключение к MySQL
	if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия MySQL")
		}
	}

	// Останавливаем Metrics Server и ждём завершения горутины
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
		metricsWg.Wait()
	}

	// Останавливаем Tracing (flush spans)
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	log.Info().Msg("Payment Service остановлен")
}
