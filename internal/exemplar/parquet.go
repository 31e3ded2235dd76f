package exemplar

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Row is one recorded generation as stored in the exemplar parquet files.
type Row struct {
	TraceID         string  `parquet:"trace_id"`
	DataSetID       int64   `parquet:"data_set_id"`
	DataSetName     string  `parquet:"data_set_name"`
	Question        string  `parquet:"question"`
	SQL             string  `parquet:"sql"`
	Strategy        string  `parquet:"strategy"`
	Weight          float64 `parquet:"weight"`
	CreatedAtUnixMs int64   `parquet:"created_at_unix_ms"`
}

func EncodeRows(rows []Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Row](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
