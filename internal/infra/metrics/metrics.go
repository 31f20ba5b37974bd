package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	AnalysisRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_requests_total",
		Help: "Количество запросов на анализ текста",
	})
	AnalysisDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_seconds",
		Help:    "Время полного анализа: перевод, тональность, сохранение",
		Buckets: prometheus.DefBuckets,
	})
	SentimentFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentiment_fallback_total",
		Help: "Переключения на резервную модель тональности",
	})
	TranslationProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "translation_provider_errors_total",
		Help: "Ошибки провайдеров перевода",
	}, []string{"provider"})
	MoodAlertsEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_alerts_enqueued_total",
		Help: "Поставленные в очередь задачи рассылки mood-алертов",
	})
	NotificationsFanoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_fanout_total",
		Help: "Созданные при рассылке уведомления",
	})
	RealtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Текущее число websocket-подключений",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		AnalysisRequestsTotal,
		AnalysisDurationSeconds,
		SentimentFallbackTotal,
		TranslationProviderErrors,
		MoodAlertsEnqueuedTotal,
		NotificationsFanoutTotal,
		RealtimeConnections,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
