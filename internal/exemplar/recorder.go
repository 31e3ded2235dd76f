package exemplar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s2sql/s2sql/internal/observability"
	"github.com/s2sql/s2sql/internal/parser/llm"
	"github.com/s2sql/s2sql/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

const (
	// pendingPerFlush sizes the per data set buffer as a multiple of the
	// flush size. Older rows are dropped past it.
	pendingPerFlush   = 8
	defaultRetryDelay = 30 * time.Second
)

// Recorder buffers successful generations per data set and writes them to
// the object store as parquet files.
type Recorder struct {
	store      storage.ObjectStore
	flushSize  int
	maxPending int
	retryDelay time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	pending map[int64][]Row
	retryAt map[int64]time.Time
}

func NewRecorder(store storage.ObjectStore, flushSize int, logger *slog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if flushSize < 1 {
		flushSize = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{
		store:      store,
		flushSize:  flushSize,
		maxPending: flushSize * pendingPerFlush,
		retryDelay: defaultRetryDelay,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
		pending:    map[int64][]Row{},
		retryAt:    map[int64]time.Time{},
	}, nil
}

// Record buffers the winning SQL of a generation. A full buffer is flushed
// before Record returns unless the last upload for the data set failed less
// than retryDelay ago.
func (r *Recorder) Record(ctx context.Context, req llm.Request, resp llm.Response) error {
	if resp.SQLOutput == "" || req.Schema.DataSetID <= 0 {
		return nil
	}
	traceID := observability.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = r.newID()
	}
	row := Row{
		TraceID:         traceID,
		DataSetID:       req.Schema.DataSetID,
		DataSetName:     resp.DataSet,
		Question:        req.QueryText,
		SQL:             resp.SQLOutput,
		Strategy:        string(req.SQLGenType),
		Weight:          resp.SQLRespMap[resp.SQLOutput].Weight,
		CreatedAtUnixMs: r.now().UnixMilli(),
	}

	r.mu.Lock()
	r.bufferLocked(row.DataSetID, append(r.pending[row.DataSetID], row))
	full := len(r.pending[row.DataSetID]) >= r.flushSize
	backingOff := r.now().Before(r.retryAt[row.DataSetID])
	r.mu.Unlock()

	if !full || backingOff {
		return nil
	}
	return r.flushDataSet(ctx, row.DataSetID)
}

// Pending reports the number of buffered rows.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, rows := range r.pending {
		total += len(rows)
	}
	return total
}

// Flush writes every buffered data set. Rows of data sets that fail to upload
// stay buffered.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var firstErr error
	for _, id := range ids {
		if err := r.flushDataSet(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Recorder) Close(ctx context.Context) error {
	return r.Flush(ctx)
}

func (r *Recorder) flushDataSet(ctx context.Context, dataSetID int64) error {
	r.mu.Lock()
	rows := r.pending[dataSetID]
	delete(r.pending, dataSetID)
	r.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	key, err := r.write(ctx, dataSetID, rows)
	observability.ObserveExemplarFlush(err)
	if err != nil {
		r.mu.Lock()
		r.bufferLocked(dataSetID, append(rows, r.pending[dataSetID]...))
		r.retryAt[dataSetID] = r.now().Add(r.retryDelay)
		r.mu.Unlock()
		r.logger.Warn("exemplar flush failed",
			slog.Int64("data_set_id", dataSetID),
			slog.Int("rows", len(rows)),
			slog.Any("error", err),
		)
		return err
	}
	r.mu.Lock()
	delete(r.retryAt, dataSetID)
	r.mu.Unlock()
	r.logger.Info("exemplars flushed",
		slog.Int64("data_set_id", dataSetID),
		slog.Int("rows", len(rows)),
		slog.String("object_key", key),
	)
	return nil
}

// bufferLocked stores rows for a data set, keeping only the newest
// maxPending. Callers hold r.mu.
func (r *Recorder) bufferLocked(dataSetID int64, rows []Row) {
	if r.maxPending > 0 && len(rows) > r.maxPending {
		dropped := len(rows) - r.maxPending
		rows = rows[dropped:]
		observability.ObserveExemplarDropped(dropped)
		r.logger.Warn("exemplar buffer full, dropping oldest rows",
			slog.Int64("data_set_id", dataSetID),
			slog.Int("dropped", dropped),
		)
	}
	r.pending[dataSetID] = rows
}

func (r *Recorder) write(ctx context.Context, dataSetID int64, rows []Row) (string, error) {
	data, err := EncodeRows(rows)
	if err != nil {
		return "", err
	}
	key, err := storage.BuildExemplarPath(dataSetID, r.now(), r.newID())
	if err != nil {
		return "", err
	}
	if _, err := r.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: parquetContentType}); err != nil {
		return "", fmt.Errorf("upload exemplars for data set %d: %w", dataSetID, err)
	}
	return key, nil
}
