package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/observability"
)

const currentDateLayout = "2006-01-02"

type ServiceConfig struct {
	LinkingValueEnabled bool
	StrategyType        string
}

// SatisfactionChecker reports whether earlier parses already answer a query.
type SatisfactionChecker interface {
	IsSkip(qctx *chat.QueryContext) bool
}

// RequestService gates, compiles and dispatches text-to-SQL requests. It is
// built once at startup and shared by all query turns.
type RequestService struct {
	linkingEnabled bool
	genType        SQLGenType
	registry       *Registry
	checker        SatisfactionChecker
	logger         *slog.Logger
	now            func() time.Time
}

// NewRequestService validates the configured strategy type against the
// registry so a bad configuration fails at startup.
func NewRequestService(cfg ServiceConfig, registry *Registry, checker SatisfactionChecker, logger *slog.Logger) (*RequestService, error) {
	if registry == nil {
		return nil, fmt.Errorf("strategy registry is required")
	}
	genType, err := ParseSQLGenType(cfg.StrategyType)
	if err != nil {
		return nil, err
	}
	if _, err := registry.Get(genType); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RequestService{
		linkingEnabled: cfg.LinkingValueEnabled,
		genType:        genType,
		registry:       registry,
		checker:        checker,
		logger:         logger,
		now:            time.Now,
	}, nil
}

func (s *RequestService) SQLGenType() SQLGenType {
	return s.genType
}

func (s *RequestService) IsSkip(qctx *chat.QueryContext) bool {
	return s.skipReason(qctx) != ""
}

func (s *RequestService) skipReason(qctx *chat.QueryContext) string {
	if !qctx.Text2SQLType.EnableLLM() {
		s.logger.Info("llm not enabled, skip", slog.String("text2sql_type", string(qctx.Text2SQLType)))
		return "llm generation not enabled for " + string(qctx.Text2SQLType)
	}
	if s.checker != nil && s.checker.IsSkip(qctx) {
		s.logger.Info("query already satisfied, skip", slog.String("query_text", qctx.QueryText))
		return "query already satisfied by rule parse"
	}
	return ""
}

// BuildRequest compiles the generation request for a data set. Callers gate
// with IsSkip first.
func (s *RequestService) BuildRequest(qctx *chat.QueryContext, dataSetID int64) (Request, error) {
	if qctx.Schema == nil {
		return Request{}, fmt.Errorf("query context has no semantic schema")
	}
	dataSet, ok := qctx.Schema.DataSet(dataSetID)
	if !ok {
		return Request{}, fmt.Errorf("%w: %d", ErrUnknownDataSet, dataSetID)
	}
	fields := newFieldIndex(qctx.Schema, dataSetID)

	extracted, err := linkingValues(qctx, dataSetID, fields)
	if err != nil {
		return Request{}, err
	}
	projection, err := project(qctx, dataSetID, fields)
	if err != nil {
		return Request{}, err
	}

	linking := make([]ElementValue, 0, len(extracted))
	if s.linkingEnabled {
		linking = append(linking, extracted...)
	}
	observability.ObserveLinkingValues(len(linking))

	var partitionFormat string
	if partition, ok := dataSet.PartitionDimension(); ok {
		partitionFormat = partition.TimeFormat
	}
	dataSetName := dataSet.DataSet.Name
	return Request{
		QueryText:       qctx.QueryText,
		FilterCondition: FilterCondition{},
		Schema: Schema{
			DataSetID:     dataSetID,
			DataSetName:   dataSetName,
			DomainName:    dataSetName,
			FieldNameList: projection.FieldNames,
			Metrics:       projection.Metrics,
			Dimensions:    projection.Dimensions,
			Terms:         projection.Terms,

			PartitionTimeFormat: partitionFormat,
		},
		PriorExts:        PriorExts(qctx, dataSetID, projection.FieldNames),
		Linking:          linking,
		CurrentDate:      s.now().Format(currentDateLayout),
		SQLGenType:       s.genType,
		ModelConfig:      qctx.ModelConfig,
		PromptConfig:     qctx.PromptConfig,
		DynamicExemplars: qctx.DynamicExemplars,
	}, nil
}

// RunText2SQL dispatches to the request's strategy and stamps the response
// with the query text and data set name.
func (s *RequestService) RunText2SQL(ctx context.Context, req Request) (Response, error) {
	strategy, err := s.registry.Get(req.SQLGenType)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	resp, err := strategy.Generate(ctx, req)
	observability.ObserveStrategy(string(req.SQLGenType), time.Since(start))
	if err != nil {
		return Response{}, fmt.Errorf("run %s strategy: %w", req.SQLGenType, err)
	}
	resp.Query = req.QueryText
	resp.DataSet = req.Schema.DataSetName
	return resp, nil
}
