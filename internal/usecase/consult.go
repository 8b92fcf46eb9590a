package usecase

import (
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/quota"
	"github.com/solislegal/leadbot/internal/service/templates"
)

// Completer is the slice of the call orchestrator the consult flow needs.
type Completer interface {
	CallWithFallback(ctx domain.Context, primary string, req domain.CompletionRequest) (domain.Completion, error)
}

// ConsultService answers legal questions through the AI providers, under a
// daily per-caller quota, and records each exchange as a ticket.
type ConsultService struct {
	AI          Completer
	Quota       quota.Limiter
	Repo        domain.LeadRepository
	Texts       *templates.Store
	Primary     string
	Instruction string
	MaxTokens   int
	Temperature float64
	OperatorID  int64
}

// Ask produces the reply text for one question. Provider exhaustion and quota
// refusal are expected outcomes, not faults: both return a friendly text and a
// nil error so the boundary stays quiet.
func (s ConsultService) Ask(ctx domain.Context, ev domain.Event, question string) (string, error) {
	if s.Quota != nil && ev.CallerID != s.OperatorID {
		d, _ := s.Quota.Allow(ctx, ev.CallerID)
		if !d.Allowed {
			return s.Texts.Textf("quota_exceeded", ev.Lang, d.Limit, d.ResetIn.Round(time.Minute)), nil
		}
	}

	c, err := s.AI.CallWithFallback(ctx, s.Primary, domain.CompletionRequest{
		Prompt:      question,
		Instruction: s.Instruction,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAllProvidersFailed) {
			slog.Warn("consultation degraded, no provider available",
				slog.Int64("caller_id", ev.CallerID))
			return s.Texts.Text("ai_unavailable", ev.Lang), nil
		}
		return "", err
	}

	s.recordTicket(ctx, ev, question, c.Text)
	return html.EscapeString(c.Text) + s.Texts.Text("disclaimer", ev.Lang), nil
}

// recordTicket is best-effort: the caller already has an answer, a record
// store hiccup must not take it away.
func (s ConsultService) recordTicket(ctx domain.Context, ev domain.Event, question, answer string) {
	t := domain.Ticket{
		ID:        uuid.NewString(),
		CallerID:  ev.CallerID,
		Question:  question,
		Answer:    answer,
		Status:    "answered",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.AppendTicket(ctx, t); err != nil {
		slog.Error("append ticket failed",
			slog.String("ticket_id", t.ID), slog.Any("error", err))
	}
}

// Articles renders the knowledge-base listing.
func (s ConsultService) Articles(ctx domain.Context, lang string) (string, error) {
	articles, err := s.Repo.ListArticles(ctx)
	if err != nil {
		return "", err
	}
	if len(articles) == 0 {
		return s.Texts.Text("articles_empty", lang), nil
	}
	out := s.Texts.Text("articles_header", lang)
	for _, a := range articles {
		out += "\n• <a href=\"" + a.URL + "\">" + html.EscapeString(a.Title) + "</a>"
	}
	return out, nil
}
