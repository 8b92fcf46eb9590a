package sheets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solislegal/leadbot/internal/adapter/repo/sheets"
	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
)

func newRepo(baseURL string) *sheets.Repo {
	return sheets.New(config.Config{SheetsBaseURL: baseURL, SheetsAPIKey: "key-1"})
}

func TestAppendLead(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/leads", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newRepo(srv.URL).AppendLead(context.Background(), domain.Lead{
		ID:        "lead-1",
		CallerID:  42,
		Name:      "Ada",
		Phone:     "+15550100",
		Topic:     "contracts",
		Score:     80,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", got["id"])
	assert.Equal(t, float64(42), got["caller_id"])
	assert.Equal(t, "2025-06-01T12:00:00Z", got["created_at"])
}

func TestAppendTicket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tickets", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newRepo(srv.URL).AppendTicket(context.Background(), domain.Ticket{ID: "t-1", CallerID: 42})
	require.NoError(t, err)
}

func TestListArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": "a1", "title": "Tenant rights", "url": "https://example.com/a1"},
			{"id": "a2", "title": "Small claims", "url": "https://example.com/a2"}
		]`))
	}))
	defer srv.Close()

	articles, err := newRepo(srv.URL).ListArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Tenant rights", articles[0].Title)
}

func TestBridgeFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newRepo(srv.URL).AppendLead(context.Background(), domain.Lead{ID: "lead-1"})
	assert.ErrorIs(t, err, domain.ErrTransport)

	_, err = newRepo(srv.URL).ListArticles(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}
