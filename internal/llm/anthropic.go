package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

type AnthropicModel struct {
	client      sdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewAnthropicModel(settings Settings, httpClient *http.Client) (*AnthropicModel, error) {
	if strings.TrimSpace(settings.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(settings.APIKey)}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	maxTokens := int64(settings.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicModel{
		client:      sdk.NewClient(opts...),
		model:       settings.Model,
		temperature: settings.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (m *AnthropicModel) Complete(ctx context.Context, req ChatRequest) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(m.model),
		MaxTokens:   m.maxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
		Temperature: sdk.Float(m.temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic create message: %w", err)
	}
	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic create message: no text content in response")
	}
	return out.String(), nil
}
