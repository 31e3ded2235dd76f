package llm

import (
	"context"
	"io"
	"log/slog"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/observability"
)

// Recorder receives every successful generation, for example to build an
// exemplar library.
type Recorder interface {
	Record(ctx context.Context, req Request, resp Response) error
}

// ExemplarSource supplies few-shot exemplars for a data set when the turn
// carries none of its own.
type ExemplarSource interface {
	Lookup(ctx context.Context, dataSetID int64, limit int) ([]chat.Exemplar, error)
}

type Result struct {
	Skipped    bool      `json:"skipped"`
	SkipReason string    `json:"skip_reason,omitempty"`
	DataSetID  int64     `json:"data_set_id,omitempty"`
	Request    *Request  `json:"request,omitempty"`
	Response   *Response `json:"response,omitempty"`
}

// Parser runs one query turn through the gate, data set resolution,
// compilation and dispatch.
type Parser struct {
	service  *RequestService
	resolver chat.DataSetResolver
	recorder Recorder
	logger   *slog.Logger

	exemplars     ExemplarSource
	exemplarLimit int
}

func NewParser(service *RequestService, resolver chat.DataSetResolver, recorder Recorder, logger *slog.Logger) *Parser {
	if resolver == nil {
		resolver = chat.HeuristicResolver{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{service: service, resolver: resolver, recorder: recorder, logger: logger}
}

// UseExemplars enables exemplar lookup for turns without dynamic exemplars.
func (p *Parser) UseExemplars(source ExemplarSource, limit int) {
	p.exemplars = source
	p.exemplarLimit = limit
}

func (p *Parser) Parse(ctx context.Context, qctx *chat.QueryContext) (Result, error) {
	if reason := p.service.skipReason(qctx); reason != "" {
		observability.ObserveParse(observability.ParseOutcomeSkipped)
		return Result{Skipped: true, SkipReason: reason}, nil
	}

	dataSetID, ok := p.resolver.Resolve(ctx, qctx)
	if !ok {
		observability.ObserveParse(observability.ParseOutcomeSkipped)
		return Result{Skipped: true, SkipReason: "no data set could be resolved"}, nil
	}

	req, err := p.service.BuildRequest(qctx, dataSetID)
	if err != nil {
		observability.ObserveParse(observability.ParseOutcomeFailed)
		return Result{DataSetID: dataSetID}, err
	}
	if len(req.DynamicExemplars) == 0 && p.exemplars != nil && p.exemplarLimit > 0 {
		exemplars, err := p.exemplars.Lookup(ctx, dataSetID, p.exemplarLimit)
		if err != nil {
			p.logger.WarnContext(ctx, "exemplar lookup failed",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.Int64("data_set_id", dataSetID),
				slog.Any("error", err),
			)
		} else {
			req.DynamicExemplars = exemplars
		}
	}
	resp, err := p.service.RunText2SQL(ctx, req)
	if err != nil {
		observability.ObserveParse(observability.ParseOutcomeFailed)
		return Result{DataSetID: dataSetID, Request: &req}, err
	}
	observability.ObserveParse(observability.ParseOutcomeGenerated)

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, req, resp); err != nil {
			p.logger.WarnContext(ctx, "record generation failed",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.Int64("data_set_id", dataSetID),
				slog.Any("error", err),
			)
		}
	}
	p.logger.InfoContext(ctx, "text2sql generated",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.Int64("data_set_id", dataSetID),
		slog.String("sql_gen_type", string(req.SQLGenType)),
		slog.Int("candidates", len(resp.SQLRespMap)),
	)
	return Result{DataSetID: dataSetID, Request: &req, Response: &resp}, nil
}
