package exemplar

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/storage"
)

const defaultMaxFiles = 32

const recentExemplarsQuery = `
SELECT question, sql
FROM read_parquet(%s)
WHERE question <> '' AND sql <> ''
GROUP BY question, sql
ORDER BY max(created_at_unix_ms) DESC, question ASC
LIMIT ?`

// Index answers exemplar lookups by querying the recorded parquet files with
// DuckDB.
type Index struct {
	Store    storage.ObjectStore
	MaxFiles int
}

func NewIndex(store storage.ObjectStore) *Index {
	return &Index{Store: store, MaxFiles: defaultMaxFiles}
}

// Lookup returns up to limit distinct question/SQL pairs for a data set,
// most recent first. Only the newest MaxFiles objects are scanned.
func (i *Index) Lookup(ctx context.Context, dataSetID int64, limit int) ([]chat.Exemplar, error) {
	if i.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if limit <= 0 {
		return []chat.Exemplar{}, nil
	}

	objects, err := i.Store.List(ctx, storage.ExemplarPrefix(dataSetID))
	if err != nil {
		return nil, fmt.Errorf("list exemplars for data set %d: %w", dataSetID, err)
	}
	objects = newestParquet(objects, i.MaxFiles)
	if len(objects) == 0 {
		return []chat.Exemplar{}, nil
	}

	workDir, err := os.MkdirTemp("", "s2sql-exemplars-")
	if err != nil {
		return nil, fmt.Errorf("create exemplar temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPaths := make([]string, 0, len(objects))
	for n, obj := range objects {
		localPath := filepath.Join(workDir, fmt.Sprintf("part_%d.parquet", n))
		if err := i.download(ctx, obj.Key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(recentExemplarsQuery, quoteStringArray(localPaths)), limit)
	if err != nil {
		return nil, fmt.Errorf("query exemplars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]chat.Exemplar, 0, limit)
	for rows.Next() {
		var ex chat.Exemplar
		if err := rows.Scan(&ex.Question, &ex.SQL); err != nil {
			return nil, fmt.Errorf("scan exemplar row: %w", err)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exemplar rows: %w", err)
	}
	return out, nil
}

func (i *Index) download(ctx context.Context, key, localPath string) error {
	reader, err := i.Store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file %q: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()
	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("write local file %q: %w", localPath, err)
	}
	return nil
}

func newestParquet(objects []storage.ObjectInfo, maxFiles int) []storage.ObjectInfo {
	out := make([]storage.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".parquet") && obj.Size != 0 {
			out = append(out, obj)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].LastModified.Equal(out[b].LastModified) {
			return out[a].LastModified.After(out[b].LastModified)
		}
		return out[a].Key > out[b].Key
	})
	if maxFiles > 0 && len(out) > maxFiles {
		out = out[:maxFiles]
	}
	return out
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
