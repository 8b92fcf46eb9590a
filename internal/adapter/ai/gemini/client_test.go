package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solislegal/leadbot/internal/adapter/ai/gemini"
	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
)

func newClient(t *testing.T, baseURL string) *gemini.Client {
	t.Helper()
	return gemini.New(config.Config{
		GeminiAPIKey:     "AIzaTest",
		GeminiBaseURL:    baseURL,
		GeminiModel:      "gemini-2.0-flash",
		AIRequestTimeout: 2 * time.Second,
	})
}

func req() domain.CompletionRequest {
	return domain.CompletionRequest{
		Prompt:      "what is a contract",
		Instruction: "you are a legal assistant",
		MaxTokens:   100,
		Temperature: 0.3,
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "AIzaTest", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "contents")
		assert.Contains(t, body, "systemInstruction")

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "a contract is an agreement"}]}}],
			"usageMetadata": {"totalTokenCount": 33}
		}`))
	}))
	defer srv.Close()

	c, err := newClient(t, srv.URL).Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "a contract is an agreement", c.Text)
	assert.Equal(t, 33, c.TokensUsed)
}

func TestComplete_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	c, err := newClient(t, srv.URL).Complete(context.Background(), req())
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
	assert.Empty(t, c.Text)
}

func TestComplete_EmptyParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": []}}]}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Complete(context.Background(), req())
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Complete(context.Background(), req())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	client := gemini.New(config.Config{GeminiBaseURL: "http://unused", AIRequestTimeout: time.Second})
	_, err := client.Complete(context.Background(), req())
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestComplete_EstimatesTokensWhenUsageMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "short answer"}]}}]}`))
	}))
	defer srv.Close()

	c, err := newClient(t, srv.URL).Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Positive(t, c.TokensUsed)
}
