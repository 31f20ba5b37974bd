package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Amsterdam"`
	Port   int    `envconfig:"PORT" default:"8080"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQPURL string `envconfig:"AMQP_URL"`

	HuggingFace struct {
		APIKey         string        `envconfig:"HUGGINGFACE_API_KEY"`
		PrimaryModel   string        `envconfig:"HF_SENTIMENT_MODEL" default:"cardiffnlp/twitter-roberta-base-sentiment"`
		SecondaryModel string        `envconfig:"HF_SENTIMENT_FALLBACK_MODEL" default:"nlptown/bert-base-multilingual-uncased-sentiment"`
		Timeout        time.Duration `envconfig:"HF_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Translate struct {
		DeepLKey        string        `envconfig:"DEEPL_API_KEY"`
		LibreURL        string        `envconfig:"LIBRETRANSLATE_URL" default:"https://libretranslate.de"`
		LibreKey        string        `envconfig:"LIBRETRANSLATE_API_KEY"`
		ProviderTimeout time.Duration `envconfig:"TRANSLATE_TIMEOUT" default:"5s"`
	} `envconfig:""`

	Mood struct {
		// Порог негатива, после которого уходят уведомления друзьям.
		// Значение историческое, не подбиралось.
		NegativeAlert float64 `envconfig:"MOOD_NEGATIVE_ALERT_THRESHOLD" default:"0.6"`
	} `envconfig:""`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Queues struct {
		MoodAlerts string `envconfig:"MOOD_ALERTS_QUEUE_KEY" default:"mood_alert_jobs"`
	} `envconfig:""`

	Realtime struct {
		Channel string `envconfig:"REALTIME_CHANNEL" default:"realtime_events"`
	} `envconfig:""`

	RateLimit struct {
		AnalysisPerMinute int `envconfig:"ANALYSIS_RATE_LIMIT" default:"30"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
