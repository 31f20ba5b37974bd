package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"mind-reader-backend/internal/adapters/realtime"
	"mind-reader-backend/internal/adapters/repo"
	"mind-reader-backend/internal/adapters/rest"
	"mind-reader-backend/internal/adapters/sentiment"
	"mind-reader-backend/internal/adapters/translate"
	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/config"
	"mind-reader-backend/internal/infra/db"
	"mind-reader-backend/internal/infra/hf"
	infrahttp "mind-reader-backend/internal/infra/http"
	applog "mind-reader-backend/internal/infra/log"
	"mind-reader-backend/internal/infra/metrics"
	"mind-reader-backend/internal/infra/queue"
	analysisusecase "mind-reader-backend/internal/usecase/analysis"
	authusecase "mind-reader-backend/internal/usecase/auth"
	friendsusecase "mind-reader-backend/internal/usecase/friends"
	notificationsusecase "mind-reader-backend/internal/usecase/notifications"
	profileusecase "mind-reader-backend/internal/usecase/profile"
	weeklyusecase "mind-reader-backend/internal/usecase/weekly"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("api: не указан секрет JWT (JWT_SECRET)")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("api: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()

	// RabbitMQ предпочтительнее: переживает рестарт Redis. Без AMQP_URL
	// очередь живёт в Redis list.
	var alertQueue domain.NotifyQueue
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitAlertQueue(cfg.AMQPURL, cfg.Queues.MoodAlerts)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось инициализировать очередь RabbitMQ")
		}
		defer func() { _ = rabbit.Close() }()
		alertQueue = rabbit
	} else {
		alertQueue = queue.NewRedisAlertQueue(redisClient, cfg.Queues.MoodAlerts)
	}

	hub := realtime.NewHub(logger.With().Str("component", "realtime").Logger())
	defer hub.Shutdown()
	bridge := realtime.NewRedisBridge(redisClient, cfg.Realtime.Channel, hub, logger.With().Str("component", "realtime").Logger())
	go bridge.Run(ctx)

	hfClient := hf.NewClient(cfg.HuggingFace.APIKey, "", cfg.HuggingFace.Timeout)
	primary := sentiment.NewRoberta(hfClient, cfg.HuggingFace.PrimaryModel, cfg.HuggingFace.Timeout)
	secondary := sentiment.NewStarBert(hfClient, cfg.HuggingFace.SecondaryModel, cfg.HuggingFace.Timeout)
	cascade := sentiment.NewCascade(primary, secondary, logger.With().Str("component", "sentiment").Logger())

	translators := []domain.Translator{
		translate.NewGoogle(cfg.Translate.ProviderTimeout),
		translate.NewDeepL(cfg.Translate.DeepLKey, cfg.Translate.ProviderTimeout),
		translate.NewLibre(cfg.Translate.LibreURL, cfg.Translate.LibreKey, cfg.Translate.ProviderTimeout),
	}
	chain := translate.NewChain(logger.With().Str("component", "translate").Logger(), translators...)

	analysisSvc := analysisusecase.NewService(
		repoAdapter, repoAdapter, chain, cascade, alertQueue,
		logger.With().Str("component", "analysis").Logger(),
		cfg.Mood.NegativeAlert,
	).WithStatusProbes(primary, translators)
	weeklySvc := weeklyusecase.NewService(repoAdapter, repoAdapter, logger.With().Str("component", "weekly").Logger())
	authSvc := authusecase.NewService(repoAdapter, cfg.JWTSecret, cfg.JWTTTL)
	friendsSvc := friendsusecase.NewService(repoAdapter, repoAdapter, bridge, logger.With().Str("component", "friends").Logger())
	notificationsSvc := notificationsusecase.NewService(repoAdapter, repoAdapter, logger.With().Str("component", "notifications").Logger())
	profileSvc := profileusecase.NewService(repoAdapter)

	handler := rest.NewHandler(
		authSvc, analysisSvc, weeklySvc, friendsSvc, notificationsSvc, profileSvc,
		hub,
		logger.With().Str("component", "rest").Logger(),
		cfg.JWTSecret,
		cfg.RateLimit.AnalysisPerMinute,
	)

	server := infrahttp.NewServer(logger.With().Str("component", "http").Logger())
	handler.Register(server.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("api: получен сигнал остановки")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер завершился с ошибкой")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: graceful shutdown не удался")
	}
}
