// Package llm compiles a query turn's semantic matches into a text-to-SQL
// generation request and dispatches it to the configured strategy.
package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/semantic"
)

var (
	// ErrInvalidStrategyType reports a strategy name outside SQLGenType.
	ErrInvalidStrategyType = errors.New("invalid sql generation strategy type")
	// ErrStrategyNotRegistered reports a valid type with no strategy behind it.
	ErrStrategyNotRegistered = errors.New("sql generation strategy not registered")
	// ErrUnresolvedField reports a match whose element id is not in the data set.
	ErrUnresolvedField = errors.New("matched value references unknown field")
	// ErrUnknownDataSet reports a target data set missing from the schema.
	ErrUnknownDataSet = errors.New("data set is not in the semantic schema")
)

// SQLGenType names a registered generation strategy.
type SQLGenType string

const (
	SQLGenOnePassSelfConsistency SQLGenType = "ONE_PASS_SELF_CONSISTENCY"
	SQLGenOnePass                SQLGenType = "ONE_PASS"
)

// ParseSQLGenType accepts a strategy name in any case.
func ParseSQLGenType(raw string) (SQLGenType, error) {
	switch t := SQLGenType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case SQLGenOnePassSelfConsistency, SQLGenOnePass:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategyType, raw)
	}
}

// Term is a business glossary entry surfaced to the prompt as side info.
type Term struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Alias       []string `json:"alias,omitempty"`
}

// ElementValue links a literal from the query to the field it filters.
type ElementValue struct {
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
}

// FilterCondition names the table the generated SQL reads from.
type FilterCondition struct {
	TableName string `json:"table_name"`
}

// Schema is the slice of a data set the matches touched.
type Schema struct {
	DataSetID     int64                    `json:"data_set_id"`
	DataSetName   string                   `json:"data_set_name"`
	DomainName    string                   `json:"domain_name"`
	FieldNameList []string                 `json:"field_name_list"`
	Metrics       []semantic.SchemaElement `json:"metrics"`
	Dimensions    []semantic.SchemaElement `json:"dimensions"`
	Terms         []Term                   `json:"terms"`

	// PartitionTimeFormat is the date layout of the data set's partition
	// column. Empty means yyyy-MM-dd.
	PartitionTimeFormat string `json:"partition_time_format,omitempty"`
}

// Request is everything a strategy needs to generate SQL for one data set.
type Request struct {
	QueryText        string            `json:"query_text"`
	FilterCondition  FilterCondition   `json:"filter_condition"`
	Schema           Schema            `json:"schema"`
	PriorExts        string            `json:"prior_exts"`
	Linking          []ElementValue    `json:"linking"`
	CurrentDate      string            `json:"current_date"`
	SQLGenType       SQLGenType        `json:"sql_gen_type"`
	ModelConfig      chat.ModelConfig  `json:"model_config"`
	PromptConfig     chat.PromptConfig `json:"prompt_config"`
	DynamicExemplars []chat.Exemplar   `json:"dynamic_exemplars"`
}

// SQLResp is one distinct candidate: its vote share and the exemplars
// shown when it was produced.
type SQLResp struct {
	Weight   float64         `json:"weight"`
	FewShots []chat.Exemplar `json:"few_shots,omitempty"`
}

// Response carries the generated SQL candidates. Query and DataSet are
// always set by the dispatcher.
type Response struct {
	Query      string             `json:"query"`
	DataSet    string             `json:"data_set"`
	SQLOutput  string             `json:"sql_output"`
	SQLRespMap map[string]SQLResp `json:"sql_resp_map"`
}
