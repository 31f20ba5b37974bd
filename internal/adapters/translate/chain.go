package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// Chain пробует провайдеров перевода в фиксированном порядке и возвращает
// первый пригодный результат: непустую строку, отличную от исходной.
//
// Асимметрия ошибок сохранена намеренно: жёсткая ошибка возвращается
// только если случались транспортные сбои; если провайдеры отработали,
// но перевод не изменил текст, молча возвращается оригинал.
type Chain struct {
	providers []domain.Translator
	log       zerolog.Logger
}

// NewChain создаёт цепочку провайдеров в порядке приоритета.
func NewChain(log zerolog.Logger, providers ...domain.Translator) *Chain {
	return &Chain{providers: providers, log: log}
}

// Name возвращает имя цепочки.
func (c *Chain) Name() string { return "chain" }

// Providers возвращает список провайдеров для проверки статуса.
func (c *Chain) Providers() []domain.Translator {
	return c.providers
}

// Translate перебирает провайдеров по порядку.
func (c *Chain) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var lastErr error
	for _, provider := range c.providers {
		result, err := provider.Translate(ctx, text, sourceLang, targetLang)
		if err != nil {
			lastErr = err
			metrics.TranslationProviderErrors.WithLabelValues(provider.Name()).Inc()
			c.log.Warn().Err(err).Str("provider", provider.Name()).Msg("translate: провайдер недоступен")
			continue
		}
		if usable(result, text) {
			c.log.Debug().Str("provider", provider.Name()).Msg("translate: перевод получен")
			return result, nil
		}
		c.log.Debug().Str("provider", provider.Name()).Msg("translate: результат пустой или совпадает с оригиналом")
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrTranslationUnavailable, lastErr)
	}
	// Никто не упал, но и перевода нет: возвращаем оригинал без ошибки.
	return text, nil
}

func usable(result, original string) bool {
	return strings.TrimSpace(result) != "" && result != original
}
