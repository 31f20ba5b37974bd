package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"mind-reader-backend/internal/adapters/notify"
	"mind-reader-backend/internal/adapters/realtime"
	"mind-reader-backend/internal/adapters/repo"
	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/cache"
	"mind-reader-backend/internal/infra/config"
	"mind-reader-backend/internal/infra/db"
	applog "mind-reader-backend/internal/infra/log"
	"mind-reader-backend/internal/infra/metrics"
	"mind-reader-backend/internal/infra/queue"
	fanoutusecase "mind-reader-backend/internal/usecase/fanout"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9091")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("notifier: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()

	var alertQueue domain.NotifyQueue
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitAlertQueue(cfg.AMQPURL, cfg.Queues.MoodAlerts)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: не удалось инициализировать очередь RabbitMQ")
		}
		defer func() { _ = rabbit.Close() }()
		alertQueue = rabbit
	} else {
		alertQueue = queue.NewRedisAlertQueue(redisClient, cfg.Queues.MoodAlerts)
	}

	// Воркер не держит websocket-подключений: события уходят в Redis-канал,
	// локальный хаб нужен мосту только как приёмник и остаётся пустым.
	hub := realtime.NewHub(logger.With().Str("component", "realtime").Logger())
	bridge := realtime.NewRedisBridge(redisClient, cfg.Realtime.Channel, hub, logger.With().Str("component", "realtime").Logger())

	var sender fanoutusecase.AlertSender
	if cfg.Telegram.Token != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: не удалось создать бота")
		}
		sender = notify.NewTelegram(botAPI, logger.With().Str("component", "telegram").Logger())
	}

	worker := fanoutusecase.NewService(
		repoAdapter, repoAdapter, repoAdapter,
		alertQueue, bridge, cache.NewRedis(redisClient), sender,
		logger.With().Str("component", "fanout").Logger(),
	)

	logger.Info().Msg("notifier: воркер запущен")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("notifier: воркер завершился с ошибкой")
	}
	logger.Info().Msg("notifier: остановлен")
}
