package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("semantic: not found")

// Source loads a complete schema snapshot from wherever the registry lives.
type Source interface {
	Load(ctx context.Context) (*Schema, error)
}

type ElementType string

const (
	ElementDataSet   ElementType = "DATASET"
	ElementMetric    ElementType = "METRIC"
	ElementDimension ElementType = "DIMENSION"
	ElementValue     ElementType = "VALUE"
	ElementID        ElementType = "ID"
	ElementTerm      ElementType = "TERM"
	ElementTag       ElementType = "TAG"
	ElementEntity    ElementType = "ENTITY"
)

func ParseElementType(raw string) (ElementType, error) {
	candidate := ElementType(strings.ToUpper(strings.TrimSpace(raw)))
	switch candidate {
	case ElementDataSet, ElementMetric, ElementDimension, ElementValue, ElementID, ElementTerm, ElementTag, ElementEntity:
		return candidate, nil
	default:
		return "", fmt.Errorf("unknown element type %q", raw)
	}
}

// DayDisplayName is the synthetic partition field the prompt exposes for
// date-partitioned datasets.
const DayDisplayName = "数据日期"

// Data format types carried by metrics.
const (
	DataFormatDecimal = "decimal"
	DataFormatPercent = "percent"
)

type SchemaElement struct {
	ID              int64       `json:"id" yaml:"id"`
	DataSetID       int64       `json:"data_set_id" yaml:"data_set_id"`
	DataSetName     string      `json:"data_set_name,omitempty" yaml:"data_set_name"`
	Name            string      `json:"name" yaml:"name"`
	BizName         string      `json:"biz_name,omitempty" yaml:"biz_name"`
	Type            ElementType `json:"type" yaml:"type"`
	Alias           []string    `json:"alias,omitempty" yaml:"alias"`
	Description     string      `json:"description,omitempty" yaml:"description"`
	DataFormatType  string      `json:"data_format_type,omitempty" yaml:"data_format_type"`
	TimeFormat      string      `json:"time_format,omitempty" yaml:"time_format"`
	IsPartitionTime bool        `json:"is_partition_time,omitempty" yaml:"is_partition_time"`
}

type TimeDefaultConfig struct {
	Unit   int    `json:"unit" yaml:"unit"`
	Period string `json:"period" yaml:"period"`
}

// NoTimeDefault marks a dataset without a default date window.
const NoTimeDefault = -1

type DataSetSchema struct {
	DataSet                  SchemaElement
	Metrics                  []SchemaElement
	Dimensions               []SchemaElement
	Terms                    []SchemaElement
	TagTypeTimeDefaultConfig TimeDefaultConfig
}

// PartitionDimension returns the dimension flagged as the partition time column.
func (d DataSetSchema) PartitionDimension() (SchemaElement, bool) {
	for _, dim := range d.Dimensions {
		if dim.IsPartitionTime {
			return dim, true
		}
	}
	return SchemaElement{}, false
}

// SchemaElementMatch is a schema element linked to a span of the query text.
// Inherited is set when the match was carried over from a previous turn.
type SchemaElementMatch struct {
	Element    SchemaElement `json:"element"`
	Word       string        `json:"word"`
	DetectWord string        `json:"detect_word,omitempty"`
	Similarity float64       `json:"similarity"`
	Inherited  bool          `json:"inherited"`
}
