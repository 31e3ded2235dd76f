package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIModelComplete(t *testing.T) {
	var received map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-test",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "SELECT 1"}}},
		})
	}))
	defer ts.Close()

	model, err := NewOpenAIModel(Settings{BaseURL: ts.URL + "/", APIKey: "test-key", Model: "gpt-test"}, nil)
	require.NoError(t, err)

	out, err := model.Complete(context.Background(), ChatRequest{System: "sys", Prompt: "question"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
	assert.Equal(t, "gpt-test", received["model"])
	messages, ok := received["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func TestOpenAIModelNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer ts.Close()

	model, err := NewOpenAIModel(Settings{BaseURL: ts.URL, Model: "gpt-test"}, nil)
	require.NoError(t, err)
	_, err = model.Complete(context.Background(), ChatRequest{Prompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAnthropicModelComplete(t *testing.T) {
	var received map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "SELECT 2"}},
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 3, "output_tokens": 2},
		})
	}))
	defer ts.Close()

	model, err := NewAnthropicModel(Settings{BaseURL: ts.URL, APIKey: "k", Model: "claude-test"}, nil)
	require.NoError(t, err)

	out, err := model.Complete(context.Background(), ChatRequest{System: "sys", Prompt: "question"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", out)
	assert.Equal(t, "claude-test", received["model"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, received["max_tokens"])
	assert.NotNil(t, received["system"])
}

func TestFactoryResolvesDefaultsAndCaches(t *testing.T) {
	factory := NewFactory(Defaults{Provider: "OPEN_AI", BaseURL: "http://localhost:1", Model: "gpt-default", MaxTokens: 256})

	first, err := factory.ChatModel(Selection{})
	require.NoError(t, err)
	second, err := factory.ChatModel(Selection{Provider: "open_ai"})
	require.NoError(t, err)
	assert.Same(t, first, second)

	settings, err := factory.resolve(Selection{Model: "gpt-other", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, Settings{
		Provider:    ProviderOpenAI,
		BaseURL:     "http://localhost:1",
		Model:       "gpt-other",
		Temperature: 0.2,
		MaxTokens:   256,
	}, settings)
}

func TestFactoryDoesNotLeakDefaultEndpointAcrossProviders(t *testing.T) {
	factory := NewFactory(Defaults{Provider: "OPEN_AI", BaseURL: "http://openai.local", APIKey: "sk", Model: "gpt"})

	settings, err := factory.resolve(Selection{Provider: "ANTHROPIC", Model: "claude"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, settings.Provider)
	assert.Empty(t, settings.BaseURL)
	assert.Empty(t, settings.APIKey)

	model, err := factory.ChatModel(Selection{Provider: "ANTHROPIC", Model: "claude"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicModel{}, model)
}

func TestFactoryKeepsServerKeyOnServerEndpoint(t *testing.T) {
	var authorization string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"SELECT 1"}}]}`))
	}))
	defer ts.Close()

	factory := NewFactory(Defaults{Provider: "OPEN_AI", BaseURL: "http://llm.internal/v1", APIKey: "server-secret", Model: "gpt"})

	model, err := factory.ChatModel(Selection{BaseURL: ts.URL})
	require.NoError(t, err)
	_, err = model.Complete(context.Background(), ChatRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.NotContains(t, authorization, "server-secret")

	settings, err := factory.resolve(Selection{BaseURL: "http://llm.internal/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "server-secret", settings.APIKey)

	settings, err = factory.resolve(Selection{BaseURL: ts.URL, APIKey: "caller-key"})
	require.NoError(t, err)
	assert.Equal(t, "caller-key", settings.APIKey)
}

func TestFactoryBoundsModelCache(t *testing.T) {
	factory := NewFactory(Defaults{Provider: "OPEN_AI", BaseURL: "http://localhost:1", Model: "gpt"})
	for i := 0; i < maxCachedModels*2; i++ {
		_, err := factory.ChatModel(Selection{Model: fmt.Sprintf("model-%d", i)})
		require.NoError(t, err)
	}
	factory.mu.Lock()
	defer factory.mu.Unlock()
	assert.LessOrEqual(t, len(factory.models), maxCachedModels)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	factory := NewFactory(Defaults{Model: "m"})
	_, err := factory.ChatModel(Selection{Provider: "COHERE"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestFactoryRequiresModel(t *testing.T) {
	factory := NewFactory(Defaults{Provider: "OPEN_AI"})
	_, err := factory.ChatModel(Selection{})
	require.Error(t, err)
}
