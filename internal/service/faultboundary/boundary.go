// Package faultboundary is the outermost error wrapper around inbound
// interaction handlers. No fault leaves this layer: the caller gets a fixed
// reassurance, the operator gets a redacted report, and the per-kind counter
// is bumped. The boundary itself never fails outward.
package faultboundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/solislegal/leadbot/internal/adapter/observability"
	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/redact"
)

// Benign platform conditions that are safe to suppress. This taxonomy is
// dictated by the messaging platform's API, so substring matching is the only
// option here; everything the service owns uses sentinel errors instead.
var suppressedPlatformErrors = []string{
	"message is not modified",
	"query is too old",
	"message to edit not found",
	"message can't be edited",
	"message can't be deleted",
	"bot was blocked by the user",
	"user is deactivated",
	"chat not found",
}

const maxFaultMessageLen = 300

// Tracker forwards faults to an external error-tracking service. Optional.
type Tracker interface {
	Capture(err error, callerID int64)
}

// Handler is one routed inbound interaction.
type Handler func(ctx context.Context, ev domain.Event) error

// Boundary wraps handler invocations and owns the per-kind fault counters.
type Boundary struct {
	messenger    domain.Messenger
	notifier     domain.Notifier
	tracker      Tracker
	reassureText string

	mu     sync.Mutex
	counts map[string]uint64
}

// New constructs a Boundary. tracker may be nil.
func New(m domain.Messenger, n domain.Notifier, tracker Tracker, reassureText string) *Boundary {
	return &Boundary{
		messenger:    m,
		notifier:     n,
		tracker:      tracker,
		reassureText: reassureText,
		counts:       make(map[string]uint64),
	}
}

// Invoke runs the handler for ev and intercepts any fault, including panics.
// It never returns an error and never re-raises: every fault terminates here
// with a caller-visible and operator-visible outcome.
func (b *Boundary) Invoke(ctx context.Context, ev domain.Event, h Handler) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = h(ctx, ev)
	}()
	if err == nil {
		return
	}

	if isSuppressed(err) {
		observability.SuppressedFaultsTotal.Inc()
		slog.Debug("suppressed platform fault",
			slog.Int64("caller_id", ev.CallerID),
			slog.String("error", err.Error()))
		if ev.IsCallback() {
			b.ackCallback(ctx, ev)
		}
		return
	}

	kind := faultKind(err)
	msg := redact.Redact(truncate(err.Error(), maxFaultMessageLen))

	count := b.bump(kind)
	observability.FaultsTotal.WithLabelValues(kind).Inc()

	slog.Error("fault intercepted",
		slog.String("kind", kind),
		slog.String("error", msg),
		slog.Int64("caller_id", ev.CallerID),
		slog.String("username", ev.Username),
		slog.Uint64("occurrences", count))

	b.replyCaller(ctx, ev)
	b.notifyOperator(ctx, ev, kind, msg, count)
	if b.tracker != nil {
		b.tracker.Capture(err, ev.CallerID)
	}
}

// Counters returns a snapshot of the per-kind fault counts.
func (b *Boundary) Counters() map[string]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]uint64, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// Reset clears the fault counters. Administrative action only.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts = make(map[string]uint64)
}

func (b *Boundary) bump(kind string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[kind]++
	return b.counts[kind]
}

// replyCaller sends the fixed reassurance. Best-effort: a reply failure is
// logged and swallowed.
func (b *Boundary) replyCaller(ctx context.Context, ev domain.Event) {
	if b.messenger == nil || ev.ChatID == 0 {
		return
	}
	if ev.IsCallback() {
		b.ackCallback(ctx, ev)
	}
	if err := b.messenger.SendMessage(ctx, ev.ChatID, b.reassureText); err != nil {
		slog.Warn("failed to deliver reassurance to caller",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("error", redact.Redact(err.Error())))
	}
}

func (b *Boundary) ackCallback(ctx context.Context, ev domain.Event) {
	if b.messenger == nil {
		return
	}
	if err := b.messenger.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
		slog.Debug("callback ack failed", slog.String("error", redact.Redact(err.Error())))
	}
}

// notifyOperator sends a structured report. Best-effort, same as replyCaller.
func (b *Boundary) notifyOperator(ctx context.Context, ev domain.Event, kind, msg string, count uint64) {
	if b.notifier == nil {
		return
	}
	report := fmt.Sprintf(
		"🚨 Fault [%s UTC]\nkind: %s\nmessage: %s\ncaller: %d @%s\noccurrences: %d",
		time.Now().UTC().Format("15:04:05"), kind, msg, ev.CallerID, ev.Username, count)
	if err := b.notifier.Notify(ctx, report); err != nil {
		slog.Warn("failed to notify operator",
			slog.String("kind", kind),
			slog.String("error", redact.Redact(err.Error())))
	}
}

func isSuppressed(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range suppressedPlatformErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// faultKind maps an error to its counter label. The service-owned taxonomy is
// matched with errors.Is; anything else is unclassified.
func faultKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrAllProvidersFailed):
		return "all_providers_failed"
	case errors.Is(err, domain.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case strings.HasPrefix(err.Error(), "panic:"):
		return "panic"
	default:
		return "unclassified"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
