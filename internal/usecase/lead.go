package usecase

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/solislegal/leadbot/internal/adapter/observability"
	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/templates"
)

// Keyword heuristics for lead temperature. Hot topics signal high-value
// corporate work; warm ones signal routine billable matters.
var (
	hotKeywords = []string{
		"m&a", "merger", "acquisition", "ipo", "listing", "investment",
		"million", "fund", "shares", "esop", "мфца", "aifc", "слияние",
		"поглощение", "миллион", "инвестиц", "акции", "опцион",
	}
	warmKeywords = []string{
		"contract", "tax", "license", "dispute", "court", "arbitration",
		"bankruptcy", "employment", "dismissal", "fine", "тоо", "регистрац",
		"налог", "лицензи", "договор", "спор", "суд", "арбитраж", "трудов",
	}
)

type leadInput struct {
	Name     string `validate:"required,min=2,max=100"`
	Phone    string `validate:"required,min=6,max=20,e164|numeric"`
	Question string `validate:"required,min=5,max=2000"`
}

// LeadService captures call-back requests into the record store and pings
// the operator about each one.
type LeadService struct {
	Repo     domain.LeadRepository
	Notifier domain.Notifier
	Texts    *templates.Store
	validate *validator.Validate
}

// NewLeadService constructs a LeadService with a shared validator instance.
func NewLeadService(repo domain.LeadRepository, n domain.Notifier, texts *templates.Store) LeadService {
	return LeadService{Repo: repo, Notifier: n, Texts: texts, validate: validator.New()}
}

// Submit parses a "Name; phone; question" message, validates it, scores it,
// and persists the lead. Malformed input returns the correction prompt with a
// nil error so the boundary stays quiet.
func (s LeadService) Submit(ctx domain.Context, ev domain.Event, raw string) (string, error) {
	in, ok := parseLead(raw)
	if !ok {
		return s.Texts.Text("lead_invalid", ev.Lang), nil
	}
	if err := s.validate.Struct(in); err != nil {
		return s.Texts.Text("lead_invalid", ev.Lang), nil
	}

	lead := domain.Lead{
		ID:        uuid.NewString(),
		CallerID:  ev.CallerID,
		Username:  ev.Username,
		Name:      in.Name,
		Phone:     in.Phone,
		Question:  in.Question,
		Score:     ScoreLead(in.Question),
		Source:    "bot",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.AppendLead(ctx, lead); err != nil {
		return "", fmt.Errorf("persist lead: %w", err)
	}
	observability.LeadsCapturedTotal.Inc()

	s.notifyOperator(ctx, lead)
	return s.Texts.Textf("lead_thanks", ev.Lang, html.EscapeString(in.Name)), nil
}

func (s LeadService) notifyOperator(ctx domain.Context, l domain.Lead) {
	report := fmt.Sprintf(
		"🔥 New lead (%s, score %d)\nName: %s\nPhone: %s\nQuestion: %s",
		Label(l.Score), l.Score,
		html.EscapeString(l.Name), html.EscapeString(l.Phone), html.EscapeString(l.Question),
	)
	if err := s.Notifier.Notify(ctx, report); err != nil {
		slog.Error("lead notification failed",
			slog.String("lead_id", l.ID), slog.Any("error", err))
	}
}

// parseLead splits "Name; phone; question". The question may itself contain
// semicolons.
func parseLead(raw string) (leadInput, bool) {
	parts := strings.SplitN(raw, ";", 3)
	if len(parts) != 3 {
		return leadInput{}, false
	}
	in := leadInput{
		Name:     strings.TrimSpace(parts[0]),
		Phone:    normalizePhone(parts[1]),
		Question: strings.TrimSpace(parts[2]),
	}
	return in, in.Name != "" && in.Phone != "" && in.Question != ""
}

func normalizePhone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	return b.String()
}

// ScoreLead grades a question by keyword heuristics: hot topics land 80-100,
// warm ones 40-80, everything else a flat 10.
func ScoreLead(question string) int {
	q := strings.ToLower(question)
	if n := countMatches(q, hotKeywords); n > 0 {
		return 80 + min(n*5, 20)
	}
	if n := countMatches(q, warmKeywords); n > 0 {
		return 40 + min(n*10, 40)
	}
	return 10
}

// Label maps a score to the operator-facing temperature band.
func Label(score int) string {
	switch {
	case score >= 80:
		return "HOT"
	case score >= 40:
		return "Warm"
	default:
		return "Cold"
	}
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
