package llm

import (
	"fmt"
	"strings"

	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/semantic"
)

const defaultPartitionTimeFormat = "yyyy-MM-dd"

const systemPrompt = "You are a data analyst fluent in SQL. Answer with a single SQL statement and nothing else."

const defaultPromptTemplate = `#Task: Convert the user's question into one SQL query that returns the requested data when run against the table described in Schema.
#Rules:
1. Only use the columns and values listed in Schema.
2. Express date filters with the comparison operators >, <, >= and <=.
3. Add a date filter only if the question asks for one.
4. Do not compute date ranges with functions; use literal dates.
5. Aggregate metrics wherever the question needs it.
6. Use a WITH clause for nested aggregation.
7. Alias names declared with AS must use the language of the question.
#Exemplars:
{{exemplar}}
#Query:
Question: {{question}}
Schema: {{schema}}
SideInfo: {{information}}
SQL:`

func buildPrompt(req Request) string {
	template := req.PromptConfig.PromptTemplate
	if strings.TrimSpace(template) == "" {
		template = defaultPromptTemplate
	}
	replacer := strings.NewReplacer(
		"{{exemplar}}", formatExemplars(req.DynamicExemplars),
		"{{question}}", req.QueryText,
		"{{schema}}", formatSchema(req),
		"{{information}}", formatSideInfo(req),
	)
	return replacer.Replace(template)
}

func formatExemplars(exemplars []chat.Exemplar) string {
	lines := make([]string, 0, len(exemplars))
	for _, ex := range exemplars {
		lines = append(lines, fmt.Sprintf("Question: %s, Schema: %s, SideInfo: %s, SQL: %s",
			ex.Question, ex.DBSchema, ex.SideInfo, ex.SQL))
	}
	return strings.Join(lines, "\n")
}

func formatSchema(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table=[%s]", req.Schema.DataSetName)

	for _, field := range req.Schema.FieldNameList {
		if field == semantic.DayDisplayName {
			format := req.Schema.PartitionTimeFormat
			if format == "" {
				format = defaultPartitionTimeFormat
			}
			fmt.Fprintf(&b, ", PartitionTimeField=[%s FORMAT '%s']", semantic.DayDisplayName, format)
			break
		}
	}

	metrics := make([]string, 0, len(req.Schema.Metrics))
	for _, metric := range req.Schema.Metrics {
		metrics = append(metrics, describeElement(metric))
	}
	fmt.Fprintf(&b, ", Metrics=[%s]", strings.Join(metrics, ","))

	dimensions := make([]string, 0, len(req.Schema.Dimensions))
	for _, dim := range req.Schema.Dimensions {
		dimensions = append(dimensions, describeElement(dim))
	}
	fmt.Fprintf(&b, ", Dimensions=[%s]", strings.Join(dimensions, ","))

	values := make([]string, 0, len(req.Linking))
	for _, value := range req.Linking {
		values = append(values, fmt.Sprintf("<%s='%s'>", value.FieldName, value.FieldValue))
	}
	fmt.Fprintf(&b, ", Values=[%s]", strings.Join(values, ","))
	return b.String()
}

func describeElement(element semantic.SchemaElement) string {
	out := "<" + element.Name
	if len(element.Alias) > 0 {
		out += " ALIAS '" + strings.Join(element.Alias, ",") + "'"
	}
	if element.DataFormatType != "" {
		out += " FORMAT '" + element.DataFormatType + "'"
	}
	if element.TimeFormat != "" {
		out += " DATE FORMAT '" + element.TimeFormat + "'"
	}
	if element.Description != "" {
		out += " COMMENT '" + element.Description + "'"
	}
	return out + ">"
}

func formatSideInfo(req Request) string {
	parts := []string{fmt.Sprintf("CurrentDate=[%s]", req.CurrentDate)}
	if len(req.Schema.Terms) > 0 {
		terms := make([]string, 0, len(req.Schema.Terms))
		for _, term := range req.Schema.Terms {
			terms = append(terms, fmt.Sprintf("<%s COMMENT '%s'>", term.Name, term.Description))
		}
		parts = append(parts, fmt.Sprintf("DomainTerms=[%s]", strings.Join(terms, ",")))
	}
	if req.PriorExts != "" {
		parts = append(parts, fmt.Sprintf("PriorKnowledge=[%s]", req.PriorExts))
	}
	return strings.Join(parts, ", ")
}

// cleanSQL strips markdown fences and a leading answer label from a model reply.
func cleanSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	for _, label := range []string{"Answer:", "SQL:"} {
		if len(trimmed) >= len(label) && strings.EqualFold(trimmed[:len(label)], label) {
			trimmed = strings.TrimSpace(trimmed[len(label):])
		}
	}
	return trimmed
}
