package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/s2sql/s2sql/internal/auth"
	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/observability"
	"github.com/s2sql/s2sql/internal/parser/llm"
	"github.com/s2sql/s2sql/internal/semantic"
)

type parseRequest struct {
	QueryText           string                `json:"query_text"`
	DataSetIDs          []int64               `json:"data_set_ids"`
	Text2SQLType        string                `json:"text2sql_type"`
	Matches             []matchGroup          `json:"matches"`
	PartitionDataSetIDs []int64               `json:"partition_data_set_ids"`
	CandidateParses     []chat.CandidateParse `json:"candidate_parses"`
	ModelConfig         chat.ModelConfig      `json:"model_config"`
	PromptConfig        chat.PromptConfig     `json:"prompt_config"`
	DynamicExemplars    []chat.Exemplar       `json:"dynamic_exemplars"`
}

// matchGroup carries the semantic matches of one data set.
type matchGroup struct {
	DataSetID int64                         `json:"data_set_id"`
	Elements  []semantic.SchemaElementMatch `json:"elements"`
}

func handleParse(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Parser == nil || deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PARSER_NOT_CONFIGURED", "parser dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleParser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request parseRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid parse request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.QueryText) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_TEXT_REQUIRED", "query_text is required", false, nil)
		return
	}
	text2SQLType, err := chat.ParseText2SQLType(request.Text2SQLType)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TEXT2SQL_TYPE", err.Error(), false, nil)
		return
	}

	schema, err := deps.Schema.Load(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
		return
	}

	qctx := request.queryContext(text2SQLType, schema)
	result, err := deps.Parser.Parse(r.Context(), qctx)
	observability.AnnotateRequest(r.Context(),
		slog.Int64("data_set_id", result.DataSetID),
		slog.String("parse_outcome", parseOutcome(result, err)),
	)
	if err != nil {
		status, code, retryable := classifyParseError(err)
		writeError(r.Context(), w, status, code, err.Error(), retryable, map[string]any{"data_set_id": result.DataSetID})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (p parseRequest) queryContext(text2SQLType chat.Text2SQLType, schema *semantic.Schema) *chat.QueryContext {
	matches := make(map[int64][]semantic.SchemaElementMatch, len(p.Matches))
	for _, group := range p.Matches {
		for _, match := range group.Elements {
			if match.Element.DataSetID == 0 {
				match.Element.DataSetID = group.DataSetID
			}
			matches[group.DataSetID] = append(matches[group.DataSetID], match)
		}
	}
	partitions := make(map[int64]bool, len(p.PartitionDataSetIDs))
	for _, id := range p.PartitionDataSetIDs {
		partitions[id] = true
	}
	return &chat.QueryContext{
		QueryText:         p.QueryText,
		DataSetIDs:        p.DataSetIDs,
		Text2SQLType:      text2SQLType,
		MapInfo:           chat.NewMapInfo(matches),
		Schema:            schema,
		ModelConfig:       p.ModelConfig,
		PromptConfig:      p.PromptConfig,
		DynamicExemplars:  p.DynamicExemplars,
		CandidateParses:   p.CandidateParses,
		PartitionDataSets: partitions,
	}
}

func parseOutcome(result llm.Result, err error) string {
	switch {
	case err != nil:
		return observability.ParseOutcomeFailed
	case result.Skipped:
		return observability.ParseOutcomeSkipped
	default:
		return observability.ParseOutcomeGenerated
	}
}

func classifyParseError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, llm.ErrStrategyNotRegistered), errors.Is(err, llm.ErrInvalidStrategyType):
		return http.StatusInternalServerError, "CONFIG_INVALID", false
	case errors.Is(err, llm.ErrUnresolvedField):
		return http.StatusUnprocessableEntity, "SCHEMA_INCONSISTENT", false
	case errors.Is(err, llm.ErrUnknownDataSet):
		return http.StatusUnprocessableEntity, "DATA_SET_UNKNOWN", false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "GENERATION_TIMEOUT", true
	default:
		return http.StatusBadGateway, "GENERATION_FAILED", true
	}
}
