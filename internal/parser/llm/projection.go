package llm

import (
	"fmt"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/semantic"
)

// Projection is the part of a data set's schema referenced by the matches.
type Projection struct {
	FieldNames []string
	Metrics    []semantic.SchemaElement
	Dimensions []semantic.SchemaElement
	Terms      []Term
}

// fieldIndex maps dimension ids to dimension names. A later duplicate id
// replaces an earlier one.
type fieldIndex map[int64]string

func newFieldIndex(schema *semantic.Schema, dataSetID int64) fieldIndex {
	dims := schema.Dimensions(dataSetID)
	index := make(fieldIndex, len(dims))
	for _, dim := range dims {
		index[dim.ID] = dim.Name
	}
	return index
}

func (f fieldIndex) name(match semantic.SchemaElementMatch) (string, error) {
	name, ok := f[match.Element.ID]
	if !ok {
		return "", fmt.Errorf("%w: %s element %d (%q) in data set %d",
			ErrUnresolvedField, match.Element.Type, match.Element.ID, match.Word, match.Element.DataSetID)
	}
	return name, nil
}

// Project collects the metrics, dimensions, terms and field names matched for
// a data set.
func Project(qctx *chat.QueryContext, dataSetID int64) (Projection, error) {
	if qctx.Schema == nil {
		return Projection{}, fmt.Errorf("query context has no semantic schema")
	}
	return project(qctx, dataSetID, newFieldIndex(qctx.Schema, dataSetID))
}

func project(qctx *chat.QueryContext, dataSetID int64, fields fieldIndex) (Projection, error) {
	out := Projection{
		FieldNames: make([]string, 0),
		Metrics:    make([]semantic.SchemaElement, 0),
		Dimensions: make([]semantic.SchemaElement, 0),
		Terms:      make([]Term, 0),
	}
	seen := map[string]struct{}{}
	addField := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out.FieldNames = append(out.FieldNames, name)
	}

	for _, match := range qctx.MapInfo.MatchedElements(dataSetID) {
		switch match.Element.Type {
		case semantic.ElementMetric:
			out.Metrics = append(out.Metrics, match.Element)
			addField(match.Word)
		case semantic.ElementDimension:
			out.Dimensions = append(out.Dimensions, match.Element)
			addField(match.Word)
		case semantic.ElementValue:
			name, err := fields.name(match)
			if err != nil {
				return Projection{}, err
			}
			addField(name)
		case semantic.ElementTerm:
			out.Terms = append(out.Terms, Term{
				Name:        match.Element.Name,
				Description: match.Element.Description,
				Alias:       match.Element.Alias,
			})
		}
	}

	// The date column is named for date-partitioned data sets even when no
	// match produced it. No dimension record is added for it.
	if ds, ok := qctx.Schema.DataSet(dataSetID); ok &&
		ds.TagTypeTimeDefaultConfig.Unit != semantic.NoTimeDefault &&
		qctx.ContainsPartitionDimensions(dataSetID) {
		addField(semantic.DayDisplayName)
	}
	return out, nil
}

// linkingValues extracts the fresh VALUE and ID matches as field/value pairs.
func linkingValues(qctx *chat.QueryContext, dataSetID int64, fields fieldIndex) ([]ElementValue, error) {
	out := make([]ElementValue, 0)
	seen := map[ElementValue]struct{}{}
	for _, match := range qctx.MapInfo.MatchedElements(dataSetID) {
		if match.Inherited {
			continue
		}
		if match.Element.Type != semantic.ElementValue && match.Element.Type != semantic.ElementID {
			continue
		}
		name, err := fields.name(match)
		if err != nil {
			return nil, err
		}
		value := ElementValue{FieldName: name, FieldValue: match.Word}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out, nil
}
