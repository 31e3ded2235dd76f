package api

import (
	"net/http"

	"github.com/s2sql/s2sql/internal/auth"
)

type dataSetSummary struct {
	DataSetID      int64  `json:"data_set_id"`
	Name           string `json:"name"`
	BizName        string `json:"biz_name,omitempty"`
	MetricCount    int    `json:"metric_count"`
	DimensionCount int    `json:"dimension_count"`
	TermCount      int    `json:"term_count"`
	TimeDefault    int    `json:"time_default_unit"`
}

func handleListDataSets(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "semantic source is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleParser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	schema, err := deps.Schema.Load(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
		return
	}

	out := make([]dataSetSummary, 0, len(schema.DataSetIDs()))
	for _, id := range schema.DataSetIDs() {
		ds, ok := schema.DataSet(id)
		if !ok {
			continue
		}
		out = append(out, dataSetSummary{
			DataSetID:      id,
			Name:           ds.DataSet.Name,
			BizName:        ds.DataSet.BizName,
			MetricCount:    len(schema.Metrics(id)),
			DimensionCount: len(schema.Dimensions(id)),
			TermCount:      len(schema.Terms(id)),
			TimeDefault:    ds.TagTypeTimeDefaultConfig.Unit,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data_sets": out})
}

func handleFlushExemplars(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exemplars == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXEMPLARS_NOT_CONFIGURED", "exemplar recording is not enabled", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	before := deps.Exemplars.Pending()
	if err := deps.Exemplars.Flush(r.Context()); err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "FLUSH_FAILED", err.Error(), true, map[string]any{"pending": deps.Exemplars.Pending()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flushed": before - deps.Exemplars.Pending(), "pending": deps.Exemplars.Pending()})
}
