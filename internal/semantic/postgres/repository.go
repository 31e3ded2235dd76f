package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/s2sql/s2sql/internal/semantic"
)

const listDataSetsQuery = `
SELECT data_set_id, name, biz_name, description, time_default_unit, time_default_period
FROM semantic_data_set
ORDER BY data_set_id ASC`

const listElementsQuery = `
SELECT element_id, data_set_id, element_type, name, biz_name, alias_json, description,
       data_format_type, time_format, is_partition_time
FROM semantic_element
ORDER BY data_set_id ASC, element_type ASC, element_id ASC`

// Repository loads the semantic registry from the catalog tables.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping semantic registry db: %w", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context) (*semantic.Schema, error) {
	dataSets, order, err := r.listDataSets(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.attachElements(ctx, dataSets); err != nil {
		return nil, err
	}

	out := make([]semantic.DataSetSchema, 0, len(order))
	for _, id := range order {
		out = append(out, *dataSets[id])
	}
	schema, err := semantic.NewSchema(out)
	if err != nil {
		return nil, fmt.Errorf("build semantic schema: %w", err)
	}
	return schema, nil
}

func (r *Repository) listDataSets(ctx context.Context) (map[int64]*semantic.DataSetSchema, []int64, error) {
	rows, err := r.db.QueryContext(ctx, listDataSetsQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("list data sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	dataSets := map[int64]*semantic.DataSetSchema{}
	order := make([]int64, 0)
	for rows.Next() {
		var ds semantic.DataSetSchema
		if err := rows.Scan(
			&ds.DataSet.ID,
			&ds.DataSet.Name,
			&ds.DataSet.BizName,
			&ds.DataSet.Description,
			&ds.TagTypeTimeDefaultConfig.Unit,
			&ds.TagTypeTimeDefaultConfig.Period,
		); err != nil {
			return nil, nil, fmt.Errorf("scan data set row: %w", err)
		}
		dataSets[ds.DataSet.ID] = &ds
		order = append(order, ds.DataSet.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate data set rows: %w", err)
	}
	return dataSets, order, nil
}

func (r *Repository) attachElements(ctx context.Context, dataSets map[int64]*semantic.DataSetSchema) error {
	rows, err := r.db.QueryContext(ctx, listElementsQuery)
	if err != nil {
		return fmt.Errorf("list semantic elements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			element   semantic.SchemaElement
			rawType   string
			aliasJSON []byte
		)
		if err := rows.Scan(
			&element.ID,
			&element.DataSetID,
			&rawType,
			&element.Name,
			&element.BizName,
			&aliasJSON,
			&element.Description,
			&element.DataFormatType,
			&element.TimeFormat,
			&element.IsPartitionTime,
		); err != nil {
			return fmt.Errorf("scan semantic element row: %w", err)
		}
		element.Type, err = semantic.ParseElementType(rawType)
		if err != nil {
			return fmt.Errorf("element %d: %w", element.ID, err)
		}
		if len(aliasJSON) > 0 {
			if err := json.Unmarshal(aliasJSON, &element.Alias); err != nil {
				return fmt.Errorf("decode alias for element %d: %w", element.ID, err)
			}
		}

		ds, ok := dataSets[element.DataSetID]
		if !ok {
			return fmt.Errorf("element %d references unknown data set %d", element.ID, element.DataSetID)
		}
		switch element.Type {
		case semantic.ElementMetric:
			ds.Metrics = append(ds.Metrics, element)
		case semantic.ElementDimension:
			ds.Dimensions = append(ds.Dimensions, element)
		case semantic.ElementTerm:
			ds.Terms = append(ds.Terms, element)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate semantic element rows: %w", err)
	}
	return nil
}
