// Package tokencount estimates token usage for AI calls whose provider
// envelope omits usage accounting.
//
// It uses tiktoken-go, a Go port of OpenAI's official tokenizer. Gemini does
// not share OpenAI's vocabulary, but cl100k_base is close enough for cost
// observability, which is all this feeds.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	normalized := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalized]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[normalized]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalized)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[normalized] = enc
	return enc, nil
}

// normalizeModelName maps model IDs to tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// Gemini and everything else approximate well enough with the
		// GPT-4 encoding for accounting purposes.
		return "gpt-4"
	}
}

// CountTokens counts the tokens in text for the given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// EstimateCallTokens approximates the total tokens of one completed call:
// instruction + prompt with per-message overhead, plus the completion text.
func (c *Counter) EstimateCallTokens(instruction, prompt, completion, model string) int {
	enc, err := c.encodingFor(model)
	if err != nil {
		// Rough fallback: ~4 chars per token.
		return (len(instruction) + len(prompt) + len(completion)) / 4
	}

	// 3 tokens per message + 1 for the role, plus the assistant reply priming.
	const perMessage = 4
	n := 2*perMessage + 3
	n += len(enc.Encode(instruction, nil, nil))
	n += len(enc.Encode(prompt, nil, nil))
	n += len(enc.Encode(completion, nil, nil))
	return n
}

// EstimateCallTokensDefault uses the default counter.
func EstimateCallTokensDefault(instruction, prompt, completion, model string) int {
	return DefaultCounter.EstimateCallTokens(instruction, prompt, completion, model)
}
