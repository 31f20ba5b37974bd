package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mind-reader-backend/internal/infra/metrics"
)

// Libre переводит через инстанс LibreTranslate. API-ключ опционален.
type Libre struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewLibre создаёт провайдера.
func NewLibre(baseURL, apiKey string, timeout time.Duration) *Libre {
	if baseURL == "" {
		baseURL = "https://libretranslate.de"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Libre{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// Name возвращает имя провайдера.
func (l *Libre) Name() string { return "libretranslate" }

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate переводит текст.
func (l *Libre) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	payload, err := json.Marshal(libreRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("libretranslate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("libretranslate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := l.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("translate", "translate", "libretranslate", start, err)
		return "", fmt.Errorf("libretranslate: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("translate", "translate", "libretranslate", start, err)
		return "", fmt.Errorf("libretranslate: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("libretranslate: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("translate", "translate", "libretranslate", start, err)
		return "", err
	}
	metrics.ObserveNetworkRequest("translate", "translate", "libretranslate", start, nil)

	var parsed libreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("libretranslate: decode response: %w", err)
	}
	if parsed.TranslatedText == "" {
		return "", fmt.Errorf("libretranslate: ответ не содержит перевода")
	}
	return parsed.TranslatedText, nil
}
