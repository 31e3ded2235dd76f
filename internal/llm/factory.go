package llm

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Defaults fill the fields a per-request selection leaves empty.
type Defaults struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Selection is the caller-supplied part of a model choice.
type Selection struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// maxCachedModels bounds the per-settings model cache. Callers may pick
// arbitrary models and endpoints per request.
const maxCachedModels = 32

// Factory builds chat models on demand and reuses them per resolved settings.
type Factory struct {
	defaults   Defaults
	httpClient *http.Client

	mu     sync.Mutex
	models map[Settings]ChatModel
}

func NewFactory(defaults Defaults) *Factory {
	timeout := defaults.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Factory{
		defaults:   defaults,
		httpClient: &http.Client{Timeout: timeout},
		models:     map[Settings]ChatModel{},
	}
}

func (f *Factory) ChatModel(sel Selection) (ChatModel, error) {
	settings, err := f.resolve(sel)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if model, ok := f.models[settings]; ok {
		return model, nil
	}

	var model ChatModel
	switch settings.Provider {
	case ProviderAnthropic:
		model, err = NewAnthropicModel(settings, f.httpClient)
	default:
		model, err = NewOpenAIModel(settings, f.httpClient)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s chat model: %w", settings.Provider, err)
	}
	if len(f.models) >= maxCachedModels {
		for key := range f.models {
			delete(f.models, key)
			break
		}
	}
	f.models[settings] = model
	return model, nil
}

func (f *Factory) resolve(sel Selection) (Settings, error) {
	provider := sel.Provider
	if strings.TrimSpace(provider) == "" {
		provider = f.defaults.Provider
	}
	normalized, err := normalizeProvider(provider)
	if err != nil {
		return Settings{}, err
	}
	settings := Settings{
		Provider:    normalized,
		BaseURL:     strings.TrimSpace(sel.BaseURL),
		APIKey:      strings.TrimSpace(sel.APIKey),
		Model:       strings.TrimSpace(sel.Model),
		Temperature: sel.Temperature,
		MaxTokens:   sel.MaxTokens,
	}
	// Endpoint and model only carry over to the default provider. The
	// server key is only ever sent to the server endpoint.
	if defaultProvider, err := normalizeProvider(f.defaults.Provider); err == nil && defaultProvider == normalized {
		settings.BaseURL = firstNonEmpty(settings.BaseURL, f.defaults.BaseURL)
		settings.Model = firstNonEmpty(settings.Model, f.defaults.Model)
		if settings.APIKey == "" && sameEndpoint(settings.BaseURL, f.defaults.BaseURL) {
			settings.APIKey = strings.TrimSpace(f.defaults.APIKey)
		}
	}
	if settings.Temperature == 0 {
		settings.Temperature = f.defaults.Temperature
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = f.defaults.MaxTokens
	}
	return settings, nil
}

func sameEndpoint(a, b string) bool {
	normalize := func(raw string) string {
		return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	}
	return normalize(a) == normalize(b)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
