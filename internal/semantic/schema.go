package semantic

import (
	"fmt"
	"slices"
	"sort"
)

// Schema is an immutable snapshot of the semantic registry.
type Schema struct {
	dataSets map[int64]DataSetSchema
	ids      []int64
}

func NewSchema(dataSets []DataSetSchema) (*Schema, error) {
	s := &Schema{dataSets: make(map[int64]DataSetSchema, len(dataSets))}
	for _, ds := range dataSets {
		id := ds.DataSet.ID
		if id <= 0 {
			return nil, fmt.Errorf("data set %q has invalid id %d", ds.DataSet.Name, id)
		}
		if _, exists := s.dataSets[id]; exists {
			return nil, fmt.Errorf("duplicate data set id %d", id)
		}
		ds.DataSet.Type = ElementDataSet
		ds.DataSet.DataSetID = id
		ds.Metrics = stampElements(ds.Metrics, id, ds.DataSet.Name, ElementMetric)
		ds.Dimensions = stampElements(ds.Dimensions, id, ds.DataSet.Name, ElementDimension)
		ds.Terms = stampElements(ds.Terms, id, ds.DataSet.Name, ElementTerm)
		s.dataSets[id] = ds
		s.ids = append(s.ids, id)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s, nil
}

func stampElements(elements []SchemaElement, dataSetID int64, dataSetName string, typ ElementType) []SchemaElement {
	out := make([]SchemaElement, len(elements))
	for i, element := range elements {
		element.DataSetID = dataSetID
		element.DataSetName = dataSetName
		element.Type = typ
		out[i] = element
	}
	return out
}

func (s *Schema) DataSetIDs() []int64 {
	return append([]int64(nil), s.ids...)
}

// DataSet returns a copy of the data set's schema.
func (s *Schema) DataSet(dataSetID int64) (DataSetSchema, bool) {
	ds, ok := s.dataSets[dataSetID]
	if !ok {
		return DataSetSchema{}, false
	}
	ds.Metrics = slices.Clone(ds.Metrics)
	ds.Dimensions = slices.Clone(ds.Dimensions)
	ds.Terms = slices.Clone(ds.Terms)
	return ds, true
}

// Dimensions, Metrics and Terms return copies; an unknown id yields nil.
func (s *Schema) Dimensions(dataSetID int64) []SchemaElement {
	return slices.Clone(s.dataSets[dataSetID].Dimensions)
}

func (s *Schema) Metrics(dataSetID int64) []SchemaElement {
	return slices.Clone(s.dataSets[dataSetID].Metrics)
}

func (s *Schema) Terms(dataSetID int64) []SchemaElement {
	return slices.Clone(s.dataSets[dataSetID].Terms)
}
