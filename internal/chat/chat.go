// Package chat holds the per-turn query context shared by the parsers.
package chat

import (
	"fmt"
	"strings"

	"github.com/s2sql/s2sql/internal/semantic"
)

type Text2SQLType string

const (
	Text2SQLOnlyRule   Text2SQLType = "ONLY_RULE"
	Text2SQLOnlyLLM    Text2SQLType = "ONLY_LLM"
	Text2SQLRuleAndLLM Text2SQLType = "RULE_AND_LLM"
	Text2SQLNone       Text2SQLType = "NONE"
)

const defaultText2SQLType = Text2SQLRuleAndLLM

// ParseText2SQLType accepts a type name in any case. An empty value selects
// RULE_AND_LLM.
func ParseText2SQLType(raw string) (Text2SQLType, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return defaultText2SQLType, nil
	}
	switch t := Text2SQLType(value); t {
	case Text2SQLOnlyRule, Text2SQLOnlyLLM, Text2SQLRuleAndLLM, Text2SQLNone:
		return t, nil
	default:
		return "", fmt.Errorf("invalid text2sql type %q", raw)
	}
}

func (t Text2SQLType) EnableLLM() bool {
	return t == Text2SQLOnlyLLM || t == Text2SQLRuleAndLLM
}

// ModelConfig selects the chat model used by a generation strategy. Zero
// fields fall back to the service defaults.
type ModelConfig struct {
	Provider    string  `json:"provider,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	APIKey      string  `json:"api_key,omitempty"`
	ModelName   string  `json:"model_name,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type PromptConfig struct {
	PromptTemplate string `json:"prompt_template,omitempty"`
}

// Exemplar is a solved question/SQL pair shown to the model as a few-shot.
type Exemplar struct {
	Question string `json:"question"`
	SideInfo string `json:"side_info,omitempty"`
	DBSchema string `json:"db_schema,omitempty"`
	SQL      string `json:"sql"`
}

type ParseSource string

const (
	ParseSourceRule ParseSource = "RULE"
	ParseSourceLLM  ParseSource = "LLM"
)

// CandidateParse is a parse proposed earlier in the pipeline, scored by the
// number of query characters its matches cover.
type CandidateParse struct {
	DataSetID int64       `json:"data_set_id"`
	Source    ParseSource `json:"source"`
	Score     float64     `json:"score"`
}

// MapInfo indexes the semantic matches of one query by data set.
type MapInfo struct {
	matches map[int64][]semantic.SchemaElementMatch
}

func NewMapInfo(matches map[int64][]semantic.SchemaElementMatch) MapInfo {
	copied := make(map[int64][]semantic.SchemaElementMatch, len(matches))
	for id, list := range matches {
		copied[id] = append([]semantic.SchemaElementMatch(nil), list...)
	}
	return MapInfo{matches: copied}
}

func (m MapInfo) MatchedElements(dataSetID int64) []semantic.SchemaElementMatch {
	return m.matches[dataSetID]
}

func (m MapInfo) DataSetIDs() []int64 {
	out := make([]int64, 0, len(m.matches))
	for id := range m.matches {
		out = append(out, id)
	}
	return out
}

// QueryContext is the read-only state of a single query turn.
type QueryContext struct {
	QueryText         string
	DataSetIDs        []int64
	Text2SQLType      Text2SQLType
	MapInfo           MapInfo
	Schema            *semantic.Schema
	ModelConfig       ModelConfig
	PromptConfig      PromptConfig
	DynamicExemplars  []Exemplar
	CandidateParses   []CandidateParse
	PartitionDataSets map[int64]bool
}

// ContainsPartitionDimensions reports whether the query referenced the
// partition time dimension of the data set.
func (q *QueryContext) ContainsPartitionDimensions(dataSetID int64) bool {
	return q.PartitionDataSets[dataSetID]
}
