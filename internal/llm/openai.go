package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIModel talks to any OpenAI-compatible chat completions endpoint.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAIModel(settings Settings, httpClient *http.Client) (*OpenAIModel, error) {
	if strings.TrimSpace(settings.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	clientConfig := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(strings.TrimSpace(settings.BaseURL), "/")
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAIModel{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       settings.Model,
		temperature: settings.Temperature,
		maxTokens:   settings.MaxTokens,
	}, nil
}

func (m *OpenAIModel) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: float32(m.temperature),
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
