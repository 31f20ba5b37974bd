package sentiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// Cascade — двухуровневый каскад моделей: основная, затем резервная.
// Ретраев и бэкоффа нет: один переход на резерв, дальше жёсткая ошибка.
type Cascade struct {
	primary   domain.SentimentAnalyzer
	secondary domain.SentimentAnalyzer
	log       zerolog.Logger
}

// NewCascade создаёт каскад.
func NewCascade(primary, secondary domain.SentimentAnalyzer, log zerolog.Logger) *Cascade {
	return &Cascade{primary: primary, secondary: secondary, log: log}
}

// Analyze пробует основную модель, при любой её ошибке — резервную.
// Если обе недоступны, возвращает domain.ErrSentimentUnavailable.
func (c *Cascade) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	result, primaryErr := c.primary.Analyze(ctx, text)
	if primaryErr == nil {
		return result, nil
	}
	c.log.Warn().Err(primaryErr).Msg("sentiment: основная модель недоступна, переключение на резервную")
	metrics.SentimentFallbackTotal.Inc()

	result, secondaryErr := c.secondary.Analyze(ctx, text)
	if secondaryErr == nil {
		return result, nil
	}
	c.log.Error().Err(secondaryErr).Msg("sentiment: резервная модель недоступна")
	return domain.Sentiment{}, fmt.Errorf("%w: %s; %s", domain.ErrSentimentUnavailable, primaryErr, secondaryErr)
}
