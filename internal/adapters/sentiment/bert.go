package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mind-reader-backend/internal/domain"
)

// StarBert — резервная модель с пятизвёздочной шкалой.
// 1–2 звезды — негатив, 3 — нейтраль, 4–5 — позитив. Если в одну корзину
// попадает несколько меток, берётся максимум оценки, не сумма.
type StarBert struct {
	client  classifyClient
	model   string
	timeout time.Duration
}

// NewStarBert создаёт адаптер резервной модели.
func NewStarBert(client classifyClient, model string, timeout time.Duration) *StarBert {
	if model == "" {
		model = "nlptown/bert-base-multilingual-uncased-sentiment"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StarBert{client: client, model: model, timeout: timeout}
}

// Analyze классифицирует текст резервной моделью.
func (s *StarBert) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	labels, err := s.client.Classify(ctx, s.model, text)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("резервная модель: %w", err)
	}

	var result domain.Sentiment
	for _, item := range labels {
		label := strings.ToLower(item.Label)
		switch {
		case strings.Contains(label, "1 star") || strings.Contains(label, "2 stars"):
			if item.Score > result.Negative {
				result.Negative = item.Score
			}
		case strings.Contains(label, "3 stars"):
			if item.Score > result.Neutral {
				result.Neutral = item.Score
			}
		case strings.Contains(label, "4 stars") || strings.Contains(label, "5 stars"):
			if item.Score > result.Positive {
				result.Positive = item.Score
			}
		}
	}
	return result, nil
}
