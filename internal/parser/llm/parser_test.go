package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/semantic"
)

type captureRecorder struct {
	requests  []Request
	responses []Response
	err       error
}

func (c *captureRecorder) Record(_ context.Context, req Request, resp Response) error {
	c.requests = append(c.requests, req)
	c.responses = append(c.responses, resp)
	return c.err
}

type noDataSet struct{}

func (noDataSet) Resolve(context.Context, *chat.QueryContext) (int64, bool) { return 0, false }

func TestParseSkipsWhenLLMDisabled(t *testing.T) {
	strategy := &stubStrategy{}
	parser := NewParser(newService(t, true, strategy), nil, nil, nil)
	qctx := newQueryContext(t)
	qctx.Text2SQLType = chat.Text2SQLOnlyRule

	result, err := parser.Parse(context.Background(), qctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "ONLY_RULE")
	assert.Zero(t, strategy.calls)
}

func TestParseSkipsWithoutDataSet(t *testing.T) {
	strategy := &stubStrategy{}
	parser := NewParser(newService(t, true, strategy), noDataSet{}, nil, nil)

	result, err := parser.Parse(context.Background(), newQueryContext(t))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, strategy.calls)
}

func TestParseRecordsGenerations(t *testing.T) {
	strategy := &stubStrategy{resp: Response{SQLOutput: "SELECT 1", SQLRespMap: map[string]SQLResp{"SELECT 1": {Weight: 1}}}}
	recorder := &captureRecorder{err: errors.New("bucket unavailable")}
	parser := NewParser(newService(t, true, strategy), nil, recorder, nil)

	result, err := parser.Parse(context.Background(), newQueryContext(t, match(semantic.ElementMetric, 1, "revenue", "revenue")))
	require.NoError(t, err, "recorder failures must not fail the parse")
	require.NotNil(t, result.Response)
	require.Len(t, recorder.responses, 1)
	assert.Equal(t, "sales", recorder.responses[0].DataSet)
	assert.Equal(t, int64(salesID), recorder.requests[0].Schema.DataSetID)
}

func TestParseSurfacesCompileFault(t *testing.T) {
	strategy := &stubStrategy{}
	parser := NewParser(newService(t, true, strategy), nil, nil, nil)

	result, err := parser.Parse(context.Background(), newQueryContext(t, match(semantic.ElementValue, 404, "ghost", "ghost")))
	require.ErrorIs(t, err, ErrUnresolvedField)
	assert.Equal(t, salesID, result.DataSetID)
	assert.Zero(t, strategy.calls)
}

func TestParseRejectsUnknownDataSet(t *testing.T) {
	strategy := &stubStrategy{resp: Response{SQLOutput: "SELECT 1"}}
	parser := NewParser(newService(t, true, strategy), nil, nil, nil)
	qctx := newQueryContext(t)
	qctx.DataSetIDs = []int64{4242}

	result, err := parser.Parse(context.Background(), qctx)
	require.ErrorIs(t, err, ErrUnknownDataSet)
	assert.Equal(t, int64(4242), result.DataSetID)
	assert.Nil(t, result.Response)
	assert.Zero(t, strategy.calls)
}

func TestParseSurfacesStrategyFault(t *testing.T) {
	boom := errors.New("timeout")
	parser := NewParser(newService(t, true, &stubStrategy{err: boom}), nil, nil, nil)

	result, err := parser.Parse(context.Background(), newQueryContext(t))
	require.ErrorIs(t, err, boom)
	require.NotNil(t, result.Request)
	assert.Nil(t, result.Response)
}

type fixedExemplars struct {
	exemplars []chat.Exemplar
	err       error
	calls     int
}

func (f *fixedExemplars) Lookup(_ context.Context, _ int64, limit int) ([]chat.Exemplar, error) {
	f.calls++
	if limit < len(f.exemplars) {
		return f.exemplars[:limit], f.err
	}
	return f.exemplars, f.err
}

func TestParseFillsExemplarsFromSource(t *testing.T) {
	strategy := &stubStrategy{resp: Response{SQLOutput: "SELECT 1"}}
	parser := NewParser(newService(t, true, strategy), nil, nil, nil)
	source := &fixedExemplars{exemplars: []chat.Exemplar{{Question: "a", SQL: "SELECT a"}, {Question: "b", SQL: "SELECT b"}}}
	parser.UseExemplars(source, 1)

	_, err := parser.Parse(context.Background(), newQueryContext(t))
	require.NoError(t, err)
	assert.Equal(t, []chat.Exemplar{{Question: "a", SQL: "SELECT a"}}, strategy.last.DynamicExemplars)

	qctx := newQueryContext(t)
	qctx.DynamicExemplars = []chat.Exemplar{{Question: "own", SQL: "SELECT own"}}
	_, err = parser.Parse(context.Background(), qctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls, "turn exemplars take precedence")
	assert.Equal(t, qctx.DynamicExemplars, strategy.last.DynamicExemplars)
}

func TestParseIgnoresExemplarLookupFailure(t *testing.T) {
	strategy := &stubStrategy{resp: Response{SQLOutput: "SELECT 1"}}
	parser := NewParser(newService(t, true, strategy), nil, nil, nil)
	parser.UseExemplars(&fixedExemplars{err: errors.New("duckdb unavailable")}, 5)

	result, err := parser.Parse(context.Background(), newQueryContext(t))
	require.NoError(t, err)
	require.NotNil(t, result.Response)
	assert.Empty(t, strategy.last.DynamicExemplars)
}
