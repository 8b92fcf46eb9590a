// Package ai coordinates the configured AI providers: bounded retry against
// one provider, then deterministic fail-over to the next.
package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/redact"
)

// RetryPolicy bounds the per-provider retry loop. Backoff is exponential with
// RandomizationFactor zero so attempt timing is reproducible.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy matches the documented defaults: three attempts,
// 500ms initial backoff doubling up to 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2.0,
	}
}

// Orchestrator owns the provider list in fail-over order and the running
// token total across every attempt, metered failures included.
type Orchestrator struct {
	providers []domain.AIProvider
	policy    RetryPolicy
	tokens    atomic.Int64
}

// NewOrchestrator constructs an Orchestrator. Provider order is the
// configured fail-over order and is never reshuffled.
func NewOrchestrator(providers []domain.AIProvider, policy RetryPolicy) *Orchestrator {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Orchestrator{providers: providers, policy: policy}
}

// TokensConsumed reports the cumulative tokens used across all attempts since
// process start.
func (o *Orchestrator) TokensConsumed() int64 { return o.tokens.Load() }

// Providers returns the configured fail-over order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// CallWithRetry attempts one provider up to policy.MaxAttempts times.
// Transport faults are retried with exponential backoff; an empty response is
// structural, not transient, so it fails over immediately.
func (o *Orchestrator) CallWithRetry(ctx domain.Context, p domain.AIProvider, req domain.CompletionRequest) (domain.Completion, error) {
	var out domain.Completion
	attempt := 0
	op := func() error {
		attempt++
		c, err := p.Complete(ctx, req)
		// Failed attempts may still be metered by the provider.
		o.tokens.Add(int64(c.TokensUsed))
		if err != nil {
			if errors.Is(err, domain.ErrTransport) {
				slog.Warn("provider attempt failed",
					slog.String("provider", p.Name()),
					slog.Int("attempt", attempt),
					slog.String("error", redact.Redact(err.Error())))
				return err
			}
			// EmptyResponse, invalid config, and anything else: no point
			// hammering the same provider again.
			return backoff.Permanent(err)
		}
		out = c
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = o.policy.InitialInterval
	expo.MaxInterval = o.policy.MaxInterval
	expo.Multiplier = o.policy.Multiplier
	expo.RandomizationFactor = 0 // deterministic, reproducible in tests
	expo.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(o.policy.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return domain.Completion{}, fmt.Errorf("provider %s: %w", p.Name(), err)
	}
	return out, nil
}

// CallWithFallback walks the providers in configured order starting at
// primary, retrying each per policy. When every provider is exhausted it
// returns ErrAllProvidersFailed wrapping the last underlying fault.
func (o *Orchestrator) CallWithFallback(ctx domain.Context, primary string, req domain.CompletionRequest) (domain.Completion, error) {
	ordered := o.orderedFrom(primary)
	if len(ordered) == 0 {
		return domain.Completion{}, fmt.Errorf("%w: no providers configured", domain.ErrAllProvidersFailed)
	}

	var lastErr error
	for _, p := range ordered {
		c, err := o.CallWithRetry(ctx, p, req)
		if err == nil {
			slog.Info("ai call succeeded",
				slog.String("provider", p.Name()),
				slog.Int("tokens_used", c.TokensUsed))
			return c, nil
		}
		lastErr = err
		slog.Warn("provider exhausted, failing over",
			slog.String("provider", p.Name()),
			slog.String("error", redact.Redact(err.Error())))
	}

	return domain.Completion{}, fmt.Errorf("%w: %w", domain.ErrAllProvidersFailed, lastErr)
}

// orderedFrom rotates the configured order so the named primary goes first.
// An unknown name keeps the configured order untouched.
func (o *Orchestrator) orderedFrom(primary string) []domain.AIProvider {
	idx := -1
	for i, p := range o.providers {
		if p.Name() == primary {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return o.providers
	}
	out := make([]domain.AIProvider, 0, len(o.providers))
	out = append(out, o.providers[idx:]...)
	out = append(out, o.providers[:idx]...)
	return out
}
