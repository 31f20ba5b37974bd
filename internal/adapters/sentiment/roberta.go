package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/hf"
)

type classifyClient interface {
	Classify(ctx context.Context, model, text string) ([]hf.Classification, error)
}

// Roberta — основная трёхклассовая модель тональности.
// Метки ординальные (LABEL_0/1/2) и отображаются позиционно:
// 0 — негатив, 1 — нейтраль, 2 — позитив.
type Roberta struct {
	client  classifyClient
	model   string
	timeout time.Duration
}

// NewRoberta создаёт адаптер основной модели.
func NewRoberta(client classifyClient, model string, timeout time.Duration) *Roberta {
	if model == "" {
		model = "cardiffnlp/twitter-roberta-base-sentiment"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Roberta{client: client, model: model, timeout: timeout}
}

// Analyze классифицирует текст основной моделью.
func (r *Roberta) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	labels, err := r.client.Classify(ctx, r.model, text)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("основная модель: %w", err)
	}

	var result domain.Sentiment
	for _, item := range labels {
		switch strings.ToUpper(item.Label) {
		case "NEGATIVE", "LABEL_0":
			result.Negative = item.Score
		case "NEUTRAL", "LABEL_1":
			result.Neutral = item.Score
		case "POSITIVE", "LABEL_2":
			result.Positive = item.Score
		}
	}
	return result, nil
}
