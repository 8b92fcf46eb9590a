package ai_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solislegal/leadbot/internal/adapter/ai"
	"github.com/solislegal/leadbot/internal/domain"
)

type scriptedProvider struct {
	name    string
	calls   int
	results []func() (domain.Completion, error)
	// fallback result when the script runs out
	finally func() (domain.Completion, error)
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(_ domain.Context, _ domain.CompletionRequest) (domain.Completion, error) {
	p.calls++
	if len(p.results) > 0 {
		next := p.results[0]
		p.results = p.results[1:]
		return next()
	}
	if p.finally != nil {
		return p.finally()
	}
	return domain.Completion{}, errors.New("script exhausted")
}

func alwaysTransport(name string) *scriptedProvider {
	return &scriptedProvider{name: name, finally: func() (domain.Completion, error) {
		return domain.Completion{}, fmt.Errorf("%w: %s down", domain.ErrTransport, name)
	}}
}

func alwaysEmpty(name string, tokens int) *scriptedProvider {
	return &scriptedProvider{name: name, finally: func() (domain.Completion, error) {
		return domain.Completion{TokensUsed: tokens}, fmt.Errorf("%w: no candidates", domain.ErrEmptyResponse)
	}}
}

func alwaysOK(name, text string, tokens int) *scriptedProvider {
	return &scriptedProvider{name: name, finally: func() (domain.Completion, error) {
		return domain.Completion{Text: text, TokensUsed: tokens}, nil
	}}
}

func fastPolicy() ai.RetryPolicy {
	return ai.RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestCallWithRetry_TransportRetriedThenSucceeds(t *testing.T) {
	p := &scriptedProvider{name: "openai"}
	p.results = []func() (domain.Completion, error){
		func() (domain.Completion, error) {
			return domain.Completion{}, fmt.Errorf("%w: flaky", domain.ErrTransport)
		},
		func() (domain.Completion, error) {
			return domain.Completion{Text: "answer", TokensUsed: 10}, nil
		},
	}
	o := ai.NewOrchestrator([]domain.AIProvider{p}, fastPolicy())

	c, err := o.CallWithRetry(context.Background(), p, domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "answer", c.Text)
	assert.Equal(t, 2, p.calls)
}

func TestCallWithRetry_EmptyResponseNotRetried(t *testing.T) {
	p := alwaysEmpty("openai", 0)
	o := ai.NewOrchestrator([]domain.AIProvider{p}, fastPolicy())

	_, err := o.CallWithRetry(context.Background(), p, domain.CompletionRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
	assert.Equal(t, 1, p.calls, "empty response is structural, never retried")
}

func TestCallWithFallback_PrimaryRetriedExactlyMaxAttempts(t *testing.T) {
	primary := alwaysTransport("openai")
	secondary := alwaysOK("gemini", "from gemini", 20)
	o := ai.NewOrchestrator([]domain.AIProvider{primary, secondary}, fastPolicy())

	c, err := o.CallWithFallback(context.Background(), "openai", domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", c.Text)
	assert.Equal(t, 3, primary.calls, "primary attempted exactly MaxAttempts times")
	assert.Equal(t, 1, secondary.calls)
}

func TestCallWithFallback_AllEmptyFailsTerminally(t *testing.T) {
	p1 := alwaysEmpty("openai", 0)
	p2 := alwaysEmpty("gemini", 0)
	o := ai.NewOrchestrator([]domain.AIProvider{p1, p2}, fastPolicy())

	_, err := o.CallWithFallback(context.Background(), "openai", domain.CompletionRequest{})
	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
	assert.ErrorIs(t, err, domain.ErrEmptyResponse, "terminal fault carries the last underlying fault")
	assert.Equal(t, 1, p1.calls, "no provider attempted more than once")
	assert.Equal(t, 1, p2.calls)
}

func TestCallWithFallback_PrimarySelectsStartOfOrder(t *testing.T) {
	p1 := alwaysOK("openai", "from openai", 5)
	p2 := alwaysOK("gemini", "from gemini", 5)
	o := ai.NewOrchestrator([]domain.AIProvider{p1, p2}, fastPolicy())

	c, err := o.CallWithFallback(context.Background(), "gemini", domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", c.Text)
	assert.Zero(t, p1.calls)
}

func TestCallWithFallback_UnknownPrimaryKeepsConfiguredOrder(t *testing.T) {
	p1 := alwaysOK("openai", "from openai", 5)
	p2 := alwaysOK("gemini", "from gemini", 5)
	o := ai.NewOrchestrator([]domain.AIProvider{p1, p2}, fastPolicy())

	c, err := o.CallWithFallback(context.Background(), "mystery", domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from openai", c.Text)
}

func TestCallWithFallback_NoProviders(t *testing.T) {
	o := ai.NewOrchestrator(nil, fastPolicy())
	_, err := o.CallWithFallback(context.Background(), "openai", domain.CompletionRequest{})
	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
}

func TestTokensConsumed_AccumulatesAcrossAttempts(t *testing.T) {
	// The primary meters 7 tokens on each failed (empty) attempt; the
	// secondary succeeds with 20. Every attempt counts toward the total.
	primary := alwaysEmpty("openai", 7)
	secondary := alwaysOK("gemini", "ok", 20)
	o := ai.NewOrchestrator([]domain.AIProvider{primary, secondary}, fastPolicy())

	_, err := o.CallWithFallback(context.Background(), "openai", domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(27), o.TokensConsumed())
}

func TestProviders_ReportsConfiguredOrder(t *testing.T) {
	o := ai.NewOrchestrator([]domain.AIProvider{alwaysOK("openai", "", 0), alwaysOK("gemini", "", 0)}, fastPolicy())
	assert.Equal(t, []string{"openai", "gemini"}, o.Providers())
}
