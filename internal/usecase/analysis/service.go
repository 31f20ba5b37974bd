package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// ErrEmptyText — в запросе нет текста для анализа.
var ErrEmptyText = errors.New("требуется непустой текст")

const (
	sourceLang    = "tr"
	targetLang    = "en"
	excerptLength = 50
)

// Service выполняет анализ текста: перевод, тональность, сохранение,
// рассылка алертов друзьям.
type Service struct {
	users          domain.UserRepo
	analyses       domain.AnalysisRepo
	translator     domain.Translator
	sentiment      domain.SentimentAnalyzer
	queue          domain.NotifyQueue
	log            zerolog.Logger
	alertThreshold float64

	probeSentiment   domain.SentimentAnalyzer
	probeTranslators []domain.Translator
}

// NewService создаёт сервис анализа.
func NewService(users domain.UserRepo, analyses domain.AnalysisRepo, translator domain.Translator, sentiment domain.SentimentAnalyzer, queue domain.NotifyQueue, log zerolog.Logger, alertThreshold float64) *Service {
	if alertThreshold <= 0 {
		alertThreshold = 0.6
	}
	return &Service{
		users:          users,
		analyses:       analyses,
		translator:     translator,
		sentiment:      sentiment,
		queue:          queue,
		log:            log,
		alertThreshold: alertThreshold,
	}
}

// WithStatusProbes задаёт компоненты для эндпоинта статуса: основную
// модель тональности и отдельных провайдеров перевода.
func (s *Service) WithStatusProbes(sentiment domain.SentimentAnalyzer, translators []domain.Translator) *Service {
	s.probeSentiment = sentiment
	s.probeTranslators = translators
	return s
}

// LabelScore — одна метка с оценкой в ответе клиенту.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result — итог анализа: исходный текст, перевод и три оценки
// в фиксированном порядке Negatif, Nötr, Pozitif. Метки турецкие,
// их ждёт клиентское приложение.
type Result struct {
	Text           string       `json:"text"`
	TranslatedText string       `json:"translatedText"`
	Sentiments     []LabelScore `json:"sentiments"`
}

// AnalyzeText прогоняет текст через перевод и каскад моделей, сохраняет
// запись и при сильном негативе ставит задачу на рассылку алертов.
//
// Ошибка сохранения не отменяет ответ: результат классификации уже
// получен и возвращается клиенту в любом случае.
func (s *Service) AnalyzeText(ctx context.Context, userID uuid.UUID, text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, ErrEmptyText
	}
	metrics.AnalysisRequestsTotal.Inc()
	started := time.Now()
	defer func() { metrics.AnalysisDurationSeconds.Observe(time.Since(started).Seconds()) }()

	// Пользователь проверяется до дорогих внешних вызовов.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return Result{}, err
	}

	textToAnalyze := text
	translatedText := ""
	if hasTurkishChars(text) {
		translated, err := s.translator.Translate(ctx, text, sourceLang, targetLang)
		switch {
		case err != nil:
			// Перевод best-effort: при сбое анализируем оригинал.
			s.log.Warn().Err(err).Msg("analysis: перевод не удался, используется оригинал")
		case translated != text:
			translatedText = translated
			textToAnalyze = translated
		}
	}

	sentiment, err := s.sentiment.Analyze(ctx, textToAnalyze)
	if err != nil {
		return Result{}, err
	}

	record := domain.Analysis{
		UserID:         userID,
		Text:           text,
		TranslatedText: translatedText,
		Sentiment:      sentiment,
		Label:          sentiment.Label(),
		Score:          sentiment.Score(),
	}
	saved, err := s.analyses.Save(ctx, record)
	if err != nil {
		// Результат классификации дороже записи: логируем и отвечаем.
		s.log.Error().Err(err).Msg("analysis: сохранение записи не удалось")
		saved = record
	} else if record.Label == domain.LabelNegative && sentiment.Negative > s.alertThreshold {
		s.enqueueAlert(ctx, saved)
	}

	return Result{
		Text:           text,
		TranslatedText: translatedText,
		Sentiments: []LabelScore{
			{Label: "Negatif", Score: sentiment.Negative},
			{Label: "Nötr", Score: sentiment.Neutral},
			{Label: "Pozitif", Score: sentiment.Positive},
		},
	}, nil
}

func (s *Service) enqueueAlert(ctx context.Context, analysis domain.Analysis) {
	job := domain.MoodAlertJob{
		AnalysisID:  analysis.ID,
		SenderID:    analysis.UserID,
		MoodValue:   analysis.Sentiment.Negative,
		TextExcerpt: excerpt(analysis.Text, excerptLength),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// Рассылка не должна ломать основной ответ.
		s.log.Error().Err(err).Msg("analysis: постановка алерта в очередь не удалась")
		return
	}
	metrics.MoodAlertsEnqueuedTotal.Inc()
}

// List возвращает записи пользователя, новые первыми.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Analysis, error) {
	return s.analyses.ListByUser(ctx, userID)
}

// Delete удаляет запись, если она принадлежит вызывающему.
func (s *Service) Delete(ctx context.Context, userID, analysisID uuid.UUID) error {
	return s.analyses.Delete(ctx, analysisID, userID)
}

// Status — состояние внешних сервисов.
type Status struct {
	Sentiment   string            `json:"sentiment"`
	Translation map[string]string `json:"translation"`
	Message     string            `json:"message"`
}

// CheckStatus опрашивает внешние сервисы. Никогда не возвращает жёсткую
// ошибку: каждый сбой деградирует до статусной строки.
func (s *Service) CheckStatus(ctx context.Context) Status {
	status := Status{Translation: make(map[string]string)}

	if s.probeSentiment != nil {
		if _, err := s.probeSentiment.Analyze(ctx, "Hello world"); err != nil {
			s.log.Warn().Err(err).Msg("status: модель тональности недоступна")
			status.Sentiment = domain.StatusError
		} else {
			status.Sentiment = domain.StatusAvailable
		}
	} else {
		status.Sentiment = domain.StatusNotConfigured
	}

	anyTranslation := false
	for _, provider := range s.probeTranslators {
		_, err := provider.Translate(ctx, "test", sourceLang, targetLang)
		switch {
		case err == nil:
			status.Translation[provider.Name()] = domain.StatusAvailable
			anyTranslation = true
		case errors.Is(err, domain.ErrProviderNotConfigured):
			status.Translation[provider.Name()] = domain.StatusNotConfigured
		default:
			s.log.Warn().Err(err).Str("provider", provider.Name()).Msg("status: провайдер перевода недоступен")
			status.Translation[provider.Name()] = domain.StatusError
		}
	}

	switch {
	case status.Sentiment == domain.StatusAvailable && anyTranslation:
		status.Message = "все сервисы работают"
	case status.Sentiment == domain.StatusAvailable:
		status.Message = "анализ тональности работает, сервисы перевода недоступны"
	case anyTranslation:
		status.Message = "сервисы перевода работают, анализ тональности недоступен"
	default:
		status.Message = "внешние сервисы недоступны"
	}
	return status
}

func hasTurkishChars(text string) bool {
	return strings.ContainsAny(text, "çğıöşüÇĞİÖŞÜıİ")
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
