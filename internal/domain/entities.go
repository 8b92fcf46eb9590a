// Package domain holds the core entities, ports, and error taxonomy.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	// ErrTransport covers network failures, timeouts, and retryable
	// provider statuses (429, 5xx). Retried, then triggers fail-over.
	ErrTransport = errors.New("provider transport failure")
	// ErrEmptyResponse means the provider answered with a syntactically
	// valid envelope that carries no usable text. Never retried against
	// the same provider; triggers fail-over immediately.
	ErrEmptyResponse = errors.New("provider returned empty response")
	// ErrAllProvidersFailed is terminal: every configured provider was
	// exhausted. It always wraps the last underlying fault.
	ErrAllProvidersFailed = errors.New("all providers failed")
	ErrInternal           = errors.New("internal error")
)

// Event is one inbound interaction from the messaging platform, already
// stripped down to what dispatching needs.
type Event struct {
	CallerID   int64
	ChatID     int64
	Username   string
	Lang       string
	Text       string
	CallbackID string
	Data       string
	ReceivedAt time.Time
}

// IsCallback reports whether the event originated from an inline-keyboard tap.
func (e Event) IsCallback() bool { return e.CallbackID != "" }

// CompletionRequest is a provider-independent AI call.
type CompletionRequest struct {
	Prompt      string
	Instruction string
	MaxTokens   int
	Temperature float64
}

// Completion is the result of a successful provider call.
// Invariant: Text is non-empty; an empty payload surfaces as ErrEmptyResponse,
// never as a Completion with empty text. TokensUsed may be populated even on
// failed calls when the provider metered the attempt.
type Completion struct {
	Text       string
	TokensUsed int
}

// Lead is a captured prospect record destined for the external record store.
type Lead struct {
	ID        string
	CallerID  int64
	Username  string
	Name      string
	Phone     string
	Topic     string
	Question  string
	Score     int
	Source    string
	CreatedAt time.Time
}

// Ticket is a consultation request routed to a lawyer.
type Ticket struct {
	ID        string
	CallerID  int64
	Question  string
	Answer    string
	Status    string
	CreatedAt time.Time
}

// Article is a published knowledge-base entry.
type Article struct {
	ID    string
	Title string
	URL   string
}

// Ports

// AIProvider issues one completion attempt against a single provider.
//go:generate mockery --name=AIProvider --with-expecter --filename=aiprovider_mock.go
type AIProvider interface {
	Name() string
	Complete(ctx Context, req CompletionRequest) (Completion, error)
}

// Messenger delivers a message to a chat on the messaging platform.
type Messenger interface {
	SendMessage(ctx Context, chatID int64, text string) error
	AnswerCallback(ctx Context, callbackID, text string) error
}

// Notifier delivers a message to the single privileged operator identity.
type Notifier interface {
	Notify(ctx Context, text string) error
}

// LeadRepository is the thin client over the spreadsheet-backed record store.
type LeadRepository interface {
	AppendLead(ctx Context, l Lead) error
	AppendTicket(ctx Context, t Ticket) error
	ListArticles(ctx Context) ([]Article, error)
}

// Context aliases the standard context; adapters pass context.Context through.
type Context = context.Context
