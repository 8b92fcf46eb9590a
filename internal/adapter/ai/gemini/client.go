// Package gemini implements the AI provider port against the Google Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/solislegal/leadbot/internal/adapter/ai/tokencount"
	"github.com/solislegal/leadbot/internal/adapter/observability"
	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
)

// Client issues single completion attempts against Gemini.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// New constructs a Gemini client with the configured request timeout.
func New(cfg config.Config) *Client {
	return &Client{
		apiKey:  cfg.GeminiAPIKey,
		baseURL: cfg.GeminiBaseURL,
		model:   cfg.GeminiModel,
		hc: &http.Client{
			Timeout:   cfg.AIRequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name implements domain.AIProvider.
func (c *Client) Name() string { return "gemini" }

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Complete implements domain.AIProvider with the same fault classification as
// the OpenAI client: ErrTransport for network/HTTP trouble, ErrEmptyResponse
// for an envelope with no candidates or no text.
func (c *Client) Complete(ctx domain.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if c.apiKey == "" {
		return domain.Completion{}, fmt.Errorf("%w: GEMINI_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Prompt}}},
		},
		"systemInstruction": map[string]any{
			"parts": []map[string]string{{"text": req.Instruction}},
		},
		"generationConfig": map[string]any{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
		},
	}
	b, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	start := time.Now()
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAICall(c.Name(), "transport_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: gemini: %v", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveAICall(c.Name(), "transport_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: gemini: read body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(bodyBytes)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		slog.Warn("gemini non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
			slog.String("body", snippet))
		observability.ObserveAICall(c.Name(), "http_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: gemini: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		observability.ObserveAICall(c.Name(), "decode_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: gemini: decode: %v", domain.ErrTransport, err)
	}

	tokens := out.UsageMetadata.TotalTokenCount
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == "" {
		observability.ObserveAICall(c.Name(), "empty", time.Since(start), tokens)
		return domain.Completion{TokensUsed: tokens}, fmt.Errorf("%w: gemini: no candidates", domain.ErrEmptyResponse)
	}

	text := out.Candidates[0].Content.Parts[0].Text
	if tokens == 0 {
		tokens = tokencount.EstimateCallTokensDefault(req.Instruction, req.Prompt, text, c.model)
	}
	observability.ObserveAICall(c.Name(), "ok", time.Since(start), tokens)
	return domain.Completion{Text: text, TokensUsed: tokens}, nil
}
