package planner

import (
	"fmt"
	"strings"

	"github.com/asklens/asklens/internal/source"
)

// vagueMarkers catch questions with no concrete target. These go through
// the default-insight branch, which always produces a chart-eligible
// result when the schema supports one.
var vagueMarkers = []string{
	"analyze", "analyse", "tell me about", "overview", "summary",
	"summarize", "insights", "what's interesting", "whats interesting",
	"show me the data", "what do you see",
}

// IsVague reports whether a question should take the default-insight
// branch. Bare "top ..." and "trend ..." questions qualify too.
func IsVague(question string) bool {
	q := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	for _, m := range vagueMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	words := strings.Fields(q)
	if len(words) <= 3 {
		for _, w := range []string{"top", "trend", "trends", "performance"} {
			if strings.Contains(q, w) {
				return true
			}
		}
	}
	return false
}

// Insight is a deterministic canonical statement for a vague question.
type Insight struct {
	SQL  string
	Kind string // summary, trend, top
	// Chart axes when the insight is chart-eligible.
	ChartX, ChartY string
}

// DefaultInsight builds the canonical SQL for the first handle: a trend
// when a date column exists and was asked for, a top-N over a categorical
// column, or a numeric summary. Returns false when the schema has no
// numeric column to aggregate — the caller falls through to normal
// planning.
func DefaultInsight(handles []source.TableHandle, question string, maxRows int) (Insight, bool) {
	if len(handles) == 0 {
		return Insight{}, false
	}
	h := handles[0]
	numeric := numericColumns(h.Schema)
	if len(numeric) == 0 {
		return Insight{}, false
	}
	dates := dateColumns(h.Schema)
	cats := categoricalColumns(h.Schema)

	q := strings.ToLower(question)
	metric := numeric[0]

	if (strings.Contains(q, "trend") || strings.Contains(q, "over time")) && len(dates) > 0 {
		return Insight{
			Kind: "trend",
			SQL: fmt.Sprintf("SELECT %s, SUM(%s) AS total_%s FROM %s GROUP BY %s ORDER BY %s LIMIT %d",
				dates[0], metric, metric, h.LogicalName, dates[0], dates[0], maxRows),
			ChartX: dates[0],
			ChartY: "total_" + metric,
		}, true
	}

	if strings.Contains(q, "top") && len(cats) > 0 {
		return Insight{
			Kind: "top",
			SQL: fmt.Sprintf("SELECT %s, SUM(%s) AS total_%s, COUNT(*) AS count FROM %s GROUP BY %s ORDER BY total_%s DESC LIMIT 10",
				cats[0], metric, metric, h.LogicalName, cats[0], metric),
			ChartX: cats[0],
			ChartY: "total_" + metric,
		}, true
	}

	// Summary over every numeric column.
	var parts []string
	parts = append(parts, "COUNT(*) AS total_rows")
	for _, col := range numeric {
		parts = append(parts, fmt.Sprintf("SUM(%s) AS total_%s", col, col))
		parts = append(parts, fmt.Sprintf("AVG(%s) AS avg_%s", col, col))
	}
	ins := Insight{
		Kind: "summary",
		SQL:  fmt.Sprintf("SELECT %s FROM %s LIMIT 1", strings.Join(parts, ", "), h.LogicalName),
	}
	if len(cats) > 0 {
		// A grouped summary charts better than a single row.
		ins.SQL = fmt.Sprintf("SELECT %s, SUM(%s) AS total_%s FROM %s GROUP BY %s ORDER BY total_%s DESC LIMIT %d",
			cats[0], metric, metric, h.LogicalName, cats[0], metric, maxRows)
		ins.ChartX = cats[0]
		ins.ChartY = "total_" + metric
	}
	return ins, true
}

var numericTypes = []string{
	"int", "integer", "bigint", "smallint", "decimal", "numeric",
	"float", "double", "real", "number", "money",
}

var dateNameHints = []string{"date", "time", "created", "updated", "_at", "day", "month", "year"}

// numericColumns returns aggregable numeric columns; identifier columns
// are excluded because summing them answers nothing.
func numericColumns(s source.Schema) []string {
	var out []string
	for _, name := range s.Names {
		n := strings.ToLower(name)
		if n == "id" || strings.HasSuffix(n, "_id") {
			continue
		}
		t := strings.ToLower(s.Columns[name].Type)
		for _, nt := range numericTypes {
			if strings.Contains(t, nt) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func dateColumns(s source.Schema) []string {
	var out []string
	for _, name := range s.Names {
		t := strings.ToLower(s.Columns[name].Type)
		n := strings.ToLower(name)
		if strings.Contains(t, "date") || strings.Contains(t, "timestamp") {
			out = append(out, name)
			continue
		}
		for _, hint := range dateNameHints {
			if strings.Contains(n, hint) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// categoricalColumns are text columns that are neither dates nor IDs.
func categoricalColumns(s source.Schema) []string {
	dates := make(map[string]bool)
	for _, d := range dateColumns(s) {
		dates[d] = true
	}
	var out []string
	for _, name := range s.Names {
		t := strings.ToLower(s.Columns[name].Type)
		n := strings.ToLower(name)
		if dates[name] || strings.HasSuffix(n, "_id") || n == "id" {
			continue
		}
		if strings.Contains(t, "char") || strings.Contains(t, "text") || strings.Contains(t, "string") || strings.Contains(t, "enum") {
			out = append(out, name)
		}
	}
	return out
}
