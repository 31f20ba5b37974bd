package hf

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

const defaultBaseURL = "https://api-inference.huggingface.co"

// Client выполняет запросы к HuggingFace Inference API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient создаёт клиента HuggingFace.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout + 5*time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Classification — одна метка с оценкой из ответа модели.
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

// Classify вызывает /models/{model} и возвращает плоский список меток.
// Inference API отдаёт классификацию либо как [[{label,score}...]],
// либо как [{label,score}...] — оба варианта принимаются.
func (c *Client) Classify(ctx context.Context, model, text string) ([]Classification, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("huggingface: api key is empty")
	}
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("huggingface: marshal request: %w", err)
	}
	endpoint := c.baseURL + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("huggingface: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("huggingface", "classify", model, start, err)
		return nil, fmt.Errorf("huggingface: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("huggingface", "classify", model, start, err)
		return nil, fmt.Errorf("huggingface: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Error != "" {
			err = fmt.Errorf("huggingface: %s", apiErr.Error)
		} else {
			err = fmt.Errorf("huggingface: unexpected status %d", resp.StatusCode)
		}
		metrics.ObserveNetworkRequest("huggingface", "classify", model, start, err)
		return nil, err
	}

	labels, err := parseClassifications(respBody)
	metrics.ObserveNetworkRequest("huggingface", "classify", model, start, err)
	if err != nil {
		return nil, err
	}
	return labels, nil
}

func parseClassifications(body []byte) ([]Classification, error) {
	var nested [][]Classification
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}
	var flat []Classification
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	return nil, fmt.Errorf("huggingface: неожиданная форма ответа: %s", clip(string(body), 200))
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
