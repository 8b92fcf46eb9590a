package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/solislegal/leadbot/internal/adapter/observability"
	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/admission"
	"github.com/solislegal/leadbot/internal/service/faultboundary"
	"github.com/solislegal/leadbot/internal/service/templates"
	"github.com/solislegal/leadbot/pkg/textx"
)

// maxQuestionRunes bounds what one message may feed into a provider prompt.
const maxQuestionRunes = 2000

// Conversation state: after /lead the next plain message is parsed as a lead
// form; any other plain message is a consultation question.
type convState int

const (
	stateIdle convState = iota
	stateAwaitLead
)

// Dispatcher routes inbound events: admission gate first, then the fault
// boundary around the routed handler. Throttled events are dropped silently;
// banned callers get exactly one wait notice per event.
type Dispatcher struct {
	Gate      *admission.Gate
	Boundary  *faultboundary.Boundary
	Messenger domain.Messenger
	Texts     *templates.Store
	Consult   ConsultService
	Leads     LeadService
	Documents DocumentsService

	mu     sync.Mutex
	states map[int64]convState
}

var supportedLangs = map[string]bool{"en": true, "ru": true, "kz": true}

// normalizeLang collapses platform language codes onto the supported set.
func normalizeLang(code string) string {
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = code[:i]
	}
	code = strings.ToLower(code)
	if code == "kk" {
		code = "kz"
	}
	if supportedLangs[code] {
		return code
	}
	return templates.DefaultLang
}

// Dispatch handles one inbound event end to end. It never returns an error:
// faults stop at the boundary.
func (d *Dispatcher) Dispatch(ctx domain.Context, ev domain.Event) {
	ev.Lang = normalizeLang(ev.Lang)
	now := time.Now()

	res := d.Gate.Admit(ev.CallerID, now)
	observability.AdmissionDecisionsTotal.WithLabelValues(res.Decision.String()).Inc()
	observability.ActiveBans.Set(float64(d.Gate.ActiveBans(now)))

	switch res.Decision {
	case admission.Throttle:
		return
	case admission.Ban:
		seconds := int(math.Ceil(res.RetryAfter.Seconds()))
		notice := d.Texts.Textf("ban_notice", ev.Lang, seconds)
		if err := d.Messenger.SendMessage(ctx, ev.ChatID, notice); err != nil {
			slog.Warn("ban notice failed",
				slog.Int64("caller_id", ev.CallerID), slog.Any("error", err))
		}
		return
	}

	d.Boundary.Invoke(ctx, ev, d.route(ev))
}

// route picks the handler for an admitted event.
func (d *Dispatcher) route(ev domain.Event) faultboundary.Handler {
	switch {
	case ev.IsCallback():
		return d.handleCallback
	case strings.HasPrefix(ev.Text, "/"):
		return d.handleCommand
	default:
		return d.handleText
	}
}

func (d *Dispatcher) handleCommand(ctx domain.Context, ev domain.Event) error {
	cmd := strings.ToLower(strings.TrimSpace(ev.Text))
	if i := strings.IndexAny(cmd, " @"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start", "/help":
		d.setState(ev.CallerID, stateIdle)
		return d.reply(ctx, ev, d.Texts.Text("welcome", ev.Lang))
	case "/consult":
		d.setState(ev.CallerID, stateIdle)
		return d.reply(ctx, ev, d.Texts.Text("consult_intro", ev.Lang))
	case "/lead":
		d.setState(ev.CallerID, stateAwaitLead)
		return d.reply(ctx, ev, d.Texts.Text("lead_prompt", ev.Lang))
	case "/docs":
		return d.sendDocumentList(ctx, ev)
	case "/articles":
		text, err := d.Consult.Articles(ctx, ev.Lang)
		if err != nil {
			return err
		}
		return d.reply(ctx, ev, text)
	default:
		return d.reply(ctx, ev, d.Texts.Text("unknown_command", ev.Lang))
	}
}

func (d *Dispatcher) handleCallback(ctx domain.Context, ev domain.Event) error {
	if err := d.Messenger.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
		return err
	}
	// Keyboard taps reuse the command routes.
	ev.Text = "/" + ev.Data
	return d.handleCommand(ctx, ev)
}

func (d *Dispatcher) handleText(ctx domain.Context, ev domain.Event) error {
	question := textx.TruncateRunes(textx.SanitizeText(ev.Text), maxQuestionRunes)
	if question == "" {
		return nil
	}

	if d.state(ev.CallerID) == stateAwaitLead {
		d.setState(ev.CallerID, stateIdle)
		text, err := d.Leads.Submit(ctx, ev, question)
		if err != nil {
			return err
		}
		return d.reply(ctx, ev, text)
	}

	text, err := d.Consult.Ask(ctx, ev, question)
	if err != nil {
		return err
	}
	return d.reply(ctx, ev, text)
}

func (d *Dispatcher) sendDocumentList(ctx domain.Context, ev domain.Event) error {
	docs, err := d.Documents.List()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return d.reply(ctx, ev, d.Texts.Text("docs_empty", ev.Lang))
	}
	out := d.Texts.Text("docs_intro", ev.Lang)
	for _, doc := range docs {
		out += fmt.Sprintf("\n• %s (%s, %d KB)", doc.Name, doc.MIME, (doc.Size+1023)/1024)
	}
	return d.reply(ctx, ev, out)
}

func (d *Dispatcher) reply(ctx domain.Context, ev domain.Event, text string) error {
	return d.Messenger.SendMessage(ctx, ev.ChatID, text)
}

func (d *Dispatcher) state(callerID int64) convState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[callerID]
}

func (d *Dispatcher) setState(callerID int64, s convState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.states == nil {
		d.states = map[int64]convState{}
	}
	if s == stateIdle {
		delete(d.states, callerID)
		return
	}
	d.states[callerID] = s
}
