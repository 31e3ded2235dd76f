package llm

import (
	"fmt"
	"strings"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/semantic"
)

// PriorExts renders unit and date format hints for the given fields. All unit
// hints come before all date hints, each group in field order.
func PriorExts(qctx *chat.QueryContext, dataSetID int64, fieldNames []string) string {
	if len(fieldNames) == 0 || qctx.Schema == nil {
		return ""
	}

	formatTypes := map[string]string{}
	for _, metric := range qctx.Schema.Metrics(dataSetID) {
		if metric.DataFormatType == "" {
			continue
		}
		for _, name := range append([]string{metric.Name}, metric.Alias...) {
			if _, ok := formatTypes[name]; !ok {
				formatTypes[name] = metric.DataFormatType
			}
		}
	}
	timeFormats := map[string]string{}
	for _, dim := range qctx.Schema.Dimensions(dataSetID) {
		if strings.TrimSpace(dim.TimeFormat) == "" {
			continue
		}
		if _, ok := timeFormats[dim.Name]; !ok {
			timeFormats[dim.Name] = dim.TimeFormat
		}
	}

	var b strings.Builder
	for _, field := range fieldNames {
		formatType := formatTypes[field]
		if strings.EqualFold(formatType, semantic.DataFormatDecimal) || strings.EqualFold(formatType, semantic.DataFormatPercent) {
			fmt.Fprintf(&b, "%s的计量单位是小数; ", field)
		}
	}
	for _, field := range fieldNames {
		if timeFormat := timeFormats[field]; timeFormat != "" {
			fmt.Fprintf(&b, "%s的日期Format格式是%s; ", field, timeFormat)
		}
	}
	return b.String()
}
