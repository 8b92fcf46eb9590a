// Package telegram is a thin client for the messaging platform's Bot API.
// It implements the Messenger and Notifier ports; rendering and keyboard
// construction stay in the handlers that use it.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
)

// Client talks to the Bot API over HTTPS.
type Client struct {
	token          string
	baseURL        string
	operatorChatID int64
	hc             *http.Client
}

// New constructs a Client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		token:          cfg.BotToken,
		baseURL:        cfg.BotAPIBaseURL,
		operatorChatID: cfg.OperatorChatID,
		hc: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// call posts one Bot API method. Platform-level failures surface their
// description verbatim so the fault boundary's allow-list can match them.
func (c *Client) call(ctx domain.Context, method string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(r)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: read body: %w", method, err)
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("telegram %s: status %d: decode: %w", method, resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram %s: %s", method, out.Description)
	}
	return nil
}

// SendMessage implements domain.Messenger.
func (c *Client) SendMessage(ctx domain.Context, chatID int64, text string) error {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
}

// AnswerCallback implements domain.Messenger.
func (c *Client) AnswerCallback(ctx domain.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload)
}

// Notify implements domain.Notifier: delivers to the operator chat.
func (c *Client) Notify(ctx domain.Context, text string) error {
	if c.operatorChatID == 0 {
		return nil
	}
	return c.SendMessage(ctx, c.operatorChatID, text)
}

// SetWebhook registers the inbound webhook with its shared secret.
func (c *Client) SetWebhook(ctx domain.Context, webhookURL, secret string) error {
	return c.call(ctx, "setWebhook", map[string]any{
		"url":          webhookURL,
		"secret_token": secret,
	})
}
