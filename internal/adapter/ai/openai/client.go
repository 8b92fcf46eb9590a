// Package openai implements the AI provider port against the OpenAI chat
// completions API.
package openai

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

// Client issues single completion attempts; retry and fail-over live in the
// orchestrator.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// New constructs an OpenAI client with the configured request timeout.
func New(cfg config.Config) *Client {
	return &Client{
		apiKey:  cfg.OpenAIAPIKey,
		baseURL: cfg.OpenAIBaseURL,
		model:   cfg.OpenAIModel,
		hc: &http.Client{
			Timeout:   cfg.AIRequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name implements domain.AIProvider.
func (c *Client) Name() string { return "openai" }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete implements domain.AIProvider. One HTTP attempt: transport
// failures, timeouts, 429 and 5xx map to ErrTransport; a well-formed envelope
// without usable text maps to ErrEmptyResponse, carrying any metered usage.
func (c *Client) Complete(ctx domain.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if c.apiKey == "" {
		return domain.Completion{}, fmt.Errorf("%w: OPENAI_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := map[string]any{
		"model":       c.model,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": req.Instruction},
			{"role": "user", "content": req.Prompt},
		},
	}
	b, _ := json.Marshal(body)

	start := time.Now()
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	r.Header.Set("Authorization", "Bearer "+c.apiKey)
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAICall(c.Name(), "transport_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: openai: %v", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveAICall(c.Name(), "transport_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: openai: read body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(bodyBytes)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		slog.Warn("openai non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet))
		observability.ObserveAICall(c.Name(), "http_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: openai: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		observability.ObserveAICall(c.Name(), "decode_error", time.Since(start), 0)
		return domain.Completion{}, fmt.Errorf("%w: openai: decode: %v", domain.ErrTransport, err)
	}

	tokens := out.Usage.TotalTokens
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		observability.ObserveAICall(c.Name(), "empty", time.Since(start), tokens)
		return domain.Completion{TokensUsed: tokens}, fmt.Errorf("%w: openai: no choices", domain.ErrEmptyResponse)
	}

	text := out.Choices[0].Message.Content
	if tokens == 0 {
		tokens = tokencount.EstimateCallTokensDefault(req.Instruction, req.Prompt, text, c.model)
	}
	observability.ObserveAICall(c.Name(), "ok", time.Since(start), tokens)
	return domain.Completion{Text: text, TokensUsed: tokens}, nil
}
