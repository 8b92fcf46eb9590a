package usecase_test

import (
	"context"
	"errors"
	"sync"

	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/quota"
)

type fakeRepo struct {
	mu       sync.Mutex
	leads    []domain.Lead
	tickets  []domain.Ticket
	articles []domain.Article
	fail     error
}

func (r *fakeRepo) AppendLead(_ context.Context, l domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.leads = append(r.leads, l)
	return nil
}

func (r *fakeRepo) AppendTicket(_ context.Context, t domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.tickets = append(r.tickets, t)
	return nil
}

func (r *fakeRepo) ListArticles(context.Context) ([]domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	return r.articles, nil
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []string
	chatIDs []int64
	acked   []string
	sendErr error
	ackErr  error
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, text)
	m.chatIDs = append(m.chatIDs, chatID)
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, callbackID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = append(m.acked, callbackID)
	return nil
}

func (m *fakeMessenger) lastSent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []string
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, text)
	return nil
}

type fakeCompleter struct {
	completion domain.Completion
	err        error
	calls      int
	lastReq    domain.CompletionRequest
}

func (c *fakeCompleter) CallWithFallback(_ context.Context, _ string, req domain.CompletionRequest) (domain.Completion, error) {
	c.calls++
	c.lastReq = req
	return c.completion, c.err
}

type fakeQuota struct {
	decision quota.Decision
	calls    int
}

func (q *fakeQuota) Allow(context.Context, int64) (quota.Decision, error) {
	q.calls++
	return q.decision, nil
}

var errBridgeDown = errors.New("bridge down")
