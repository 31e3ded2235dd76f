package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/s2sql/s2sql/internal/chat"
	chatmodel "github.com/s2sql/s2sql/internal/llm"
)

// ChatModels resolves the chat model for a request's model configuration.
type ChatModels interface {
	ChatModel(sel chatmodel.Selection) (chatmodel.ChatModel, error)
}

// OnePassStrategy asks the model for the SQL in a single prompt, sampling it
// several times and voting when configured for self-consistency.
type OnePassStrategy struct {
	models  ChatModels
	samples int
	logger  *slog.Logger
}

func NewOnePassStrategy(models ChatModels, samples int, logger *slog.Logger) *OnePassStrategy {
	if samples < 1 {
		samples = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OnePassStrategy{models: models, samples: samples, logger: logger}
}

func (s *OnePassStrategy) Generate(ctx context.Context, req Request) (Response, error) {
	model, err := s.models.ChatModel(selectionFor(req.ModelConfig))
	if err != nil {
		return Response{}, err
	}
	prompt := chatmodel.ChatRequest{System: systemPrompt, Prompt: buildPrompt(req)}

	answers := make([]string, s.samples)
	failures := make([]error, s.samples)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.samples; i++ {
		g.Go(func() error {
			out, err := model.Complete(gctx, prompt)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			answers[i] = cleanSQL(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	resp, valid := vote(answers, req.DynamicExemplars)
	if valid == 0 {
		if err := errors.Join(failures...); err != nil {
			return Response{}, fmt.Errorf("all %d samples failed: %w", s.samples, err)
		}
		return Response{}, fmt.Errorf("model returned no SQL in %d samples", s.samples)
	}
	if valid < s.samples {
		s.logger.Warn("some samples produced no sql",
			slog.Int("samples", s.samples),
			slog.Int("valid", valid),
		)
	}
	return resp, nil
}

// vote weights each distinct SQL by its share of the valid samples. Ties go
// to the SQL seen first.
func vote(answers []string, fewShots []chat.Exemplar) (Response, int) {
	counts := map[string]int{}
	order := make([]string, 0, len(answers))
	valid := 0
	for _, sql := range answers {
		if sql == "" {
			continue
		}
		valid++
		if _, ok := counts[sql]; !ok {
			order = append(order, sql)
		}
		counts[sql]++
	}
	if valid == 0 {
		return Response{}, 0
	}

	resp := Response{SQLRespMap: make(map[string]SQLResp, len(order))}
	best := 0
	for _, sql := range order {
		resp.SQLRespMap[sql] = SQLResp{
			Weight:   float64(counts[sql]) / float64(valid),
			FewShots: fewShots,
		}
		if counts[sql] > best {
			best = counts[sql]
			resp.SQLOutput = sql
		}
	}
	return resp, valid
}

func selectionFor(cfg chat.ModelConfig) chatmodel.Selection {
	return chatmodel.Selection{
		Provider:    cfg.Provider,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
}
