// Package sheets is a thin client for the spreadsheet bridge that backs the
// lead book. The bridge exposes the sheet as a small REST surface; this
// client does no caching or retry, callers own resilience.
package sheets

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

// Repo implements domain.LeadRepository over the bridge's REST API.
type Repo struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New constructs a Repo from configuration.
func New(cfg config.Config) *Repo {
	return &Repo{
		baseURL: cfg.SheetsBaseURL,
		apiKey:  cfg.SheetsAPIKey,
		hc: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type leadRow struct {
	ID        string `json:"id"`
	CallerID  int64  `json:"caller_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Topic     string `json:"topic"`
	Question  string `json:"question"`
	Score     int    `json:"score"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

type ticketRow struct {
	ID        string `json:"id"`
	CallerID  int64  `json:"caller_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type articleRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (r *Repo) do(ctx domain.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("sheets %s: marshal: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("sheets %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sheets %s: %v", domain.ErrTransport, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sheets %s: status %d", domain.ErrTransport, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: sheets %s: decode: %v", domain.ErrTransport, path, err)
		}
	}
	return nil
}

// AppendLead writes one lead row.
func (r *Repo) AppendLead(ctx domain.Context, l domain.Lead) error {
	return r.do(ctx, http.MethodPost, "/leads", leadRow{
		ID:        l.ID,
		CallerID:  l.CallerID,
		Username:  l.Username,
		Name:      l.Name,
		Phone:     l.Phone,
		Topic:     l.Topic,
		Question:  l.Question,
		Score:     l.Score,
		Source:    l.Source,
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
	}, nil)
}

// AppendTicket writes one consultation ticket row.
func (r *Repo) AppendTicket(ctx domain.Context, t domain.Ticket) error {
	return r.do(ctx, http.MethodPost, "/tickets", ticketRow{
		ID:        t.ID,
		CallerID:  t.CallerID,
		Question:  t.Question,
		Answer:    t.Answer,
		Status:    t.Status,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}, nil)
}

// ListArticles reads the published knowledge-base entries.
func (r *Repo) ListArticles(ctx domain.Context) ([]domain.Article, error) {
	var rows []articleRow
	if err := r.do(ctx, http.MethodGet, "/articles", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Article{ID: row.ID, Title: row.Title, URL: row.URL})
	}
	return out, nil
}
