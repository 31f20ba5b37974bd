package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

const deeplEndpoint = "https://api-free.deepl.com/v2/translate"

// DeepL переводит через DeepL API (free tier).
type DeepL struct {
	http    *http.Client
	apiKey  string
	timeout time.Duration
}

// NewDeepL создаёт провайдера.
func NewDeepL(apiKey string, timeout time.Duration) *DeepL {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DeepL{http: &http.Client{Timeout: timeout}, apiKey: apiKey, timeout: timeout}
}

// Name возвращает имя провайдера.
func (d *DeepL) Name() string { return "deepl" }

// Configured сообщает, задан ли API-ключ.
func (d *DeepL) Configured() bool { return d.apiKey != "" }

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate переводит текст. DeepL ожидает языки в верхнем регистре.
func (d *DeepL) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !d.Configured() {
		return "", fmt.Errorf("deepl: %w", domain.ErrProviderNotConfigured)
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("auth_key", d.apiKey)
	form.Set("text", text)
	form.Set("source_lang", strings.ToUpper(sourceLang))
	form.Set("target_lang", strings.ToUpper(targetLang))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deeplEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := d.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("translate", "translate", "deepl", start, err)
		return "", fmt.Errorf("deepl: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("translate", "translate", "deepl", start, err)
		return "", fmt.Errorf("deepl: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("deepl: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("translate", "translate", "deepl", start, err)
		return "", err
	}
	metrics.ObserveNetworkRequest("translate", "translate", "deepl", start, nil)

	var parsed deeplResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("deepl: decode response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("deepl: ответ не содержит перевода")
	}
	return parsed.Translations[0].Text, nil
}
