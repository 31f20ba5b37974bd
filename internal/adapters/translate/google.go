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

	"mind-reader-backend/internal/infra/metrics"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// Google переводит через публичный endpoint Google Translate.
// Ключ не требуется, но формат ответа недокументирован: вложенные массивы,
// из которых собираются переведённые сегменты.
type Google struct {
	http    *http.Client
	timeout time.Duration
}

// NewGoogle создаёт провайдера.
func NewGoogle(timeout time.Duration) *Google {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Google{http: &http.Client{Timeout: timeout}, timeout: timeout}
}

// Name возвращает имя провайдера.
func (g *Google) Name() string { return "google" }

// Translate переводит текст.
func (g *Google) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	// Слишком короткие тексты не переводим.
	if len([]rune(text)) <= 2 {
		return text, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sourceLang)
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("google: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("translate", "translate", "google", start, err)
		return "", fmt.Errorf("google: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("translate", "translate", "google", start, err)
		return "", fmt.Errorf("google: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("google: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("translate", "translate", "google", start, err)
		return "", err
	}
	metrics.ObserveNetworkRequest("translate", "translate", "google", start, nil)
	return parseGoogleResponse(body)
}

func parseGoogleResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", fmt.Errorf("google: неожиданная форма ответа")
	}
	var segments [][]any
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("google: неожиданная форма сегментов")
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if chunk, ok := seg[0].(string); ok {
			b.WriteString(chunk)
		}
	}
	return b.String(), nil
}
