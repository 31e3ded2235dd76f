// Package llm adapts chat model providers to the single completion call the
// SQL generation strategies need.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderOpenAI    = "OPEN_AI"
	ProviderAnthropic = "ANTHROPIC"
)

var ErrUnknownProvider = errors.New("llm: unknown provider")

// ChatRequest is one system+user exchange.
type ChatRequest struct {
	System string
	Prompt string
}

type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Settings is a fully resolved model selection. It is comparable so it can
// key the factory cache.
type Settings struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

func normalizeProvider(raw string) (string, error) {
	switch provider := strings.ToUpper(strings.TrimSpace(raw)); provider {
	case "", ProviderOpenAI, "OPENAI":
		return ProviderOpenAI, nil
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
}
