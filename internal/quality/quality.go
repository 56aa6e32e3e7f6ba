// Package quality inspects executed rows before anything is said about
// them: per-column nulls, empty strings, mixed scalar types, invalid dates
// in date-named columns, 3-sigma numeric outliers, and whole-row
// duplicates. The disclosure message it produces must lead the response
// whenever a warning or critical issue exists.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Severity grades an issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue is one finding over the result set.
type Issue struct {
	Kind          string
	Severity      Severity
	Column        string
	AffectedCount int
	TotalCount    int
	Percentage    float64
	Description   string
}

// Report aggregates the findings for one query result.
type Report struct {
	Issues []Issue
	// DisclosureMessage summarizes the worst issues; empty when nothing
	// rises above info.
	DisclosureMessage string
	// CompleteRecords counts rows free of any problematic value,
	// computed row by row rather than by subtraction.
	CompleteRecords int
}

var dateNameHints = []string{"date", "time", "created", "updated"}

var dateLayouts = []string{
	"2006-01-02", "2006-01-02 15:04:05", time.RFC3339,
	"01/02/2006", "2006/01/02", "02-01-2006",
}

// Analyze runs the six checks. columns fixes the inspection order; when
// empty it is derived from the first row.
func Analyze(rows []map[string]any, columns []string) Report {
	if len(rows) == 0 {
		return Report{}
	}
	if len(columns) == 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}

	var issues []Issue
	problem := make([]map[string]bool, len(rows)) // per-row problematic columns
	for i := range problem {
		problem[i] = make(map[string]bool)
	}

	for _, col := range columns {
		issues = append(issues, checkNulls(rows, col, problem)...)
		issues = append(issues, checkEmptyStrings(rows, col, problem)...)
		issues = append(issues, checkMixedTypes(rows, col)...)
		if isDateNamed(col) {
			issues = append(issues, checkInvalidDates(rows, col, problem)...)
		}
		issues = append(issues, checkOutliers(rows, col)...)
	}
	issues = append(issues, checkDuplicates(rows)...)

	complete := 0
	for i := range rows {
		if len(problem[i]) == 0 {
			complete++
		}
	}

	return Report{
		Issues:            issues,
		DisclosureMessage: disclosure(issues, len(rows), complete),
		CompleteRecords:   complete,
	}
}

// HasBlocking reports whether any issue is warning or critical.
func (r Report) HasBlocking() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning || i.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func checkNulls(rows []map[string]any, col string, problem []map[string]bool) []Issue {
	count := 0
	for i, row := range rows {
		if v, ok := row[col]; ok && v == nil {
			count++
			problem[i][col] = true
		}
	}
	if count == 0 {
		return nil
	}
	pct := percent(count, len(rows))
	return []Issue{{
		Kind:          "null_values",
		Severity:      gradeShare(pct),
		Column:        col,
		AffectedCount: count,
		TotalCount:    len(rows),
		Percentage:    pct,
		Description:   fmt.Sprintf("%.0f%% of %q is missing", pct, col),
	}}
}

func checkEmptyStrings(rows []map[string]any, col string, problem []map[string]bool) []Issue {
	count := 0
	for i, row := range rows {
		if s, ok := row[col].(string); ok && strings.TrimSpace(s) == "" {
			count++
			problem[i][col] = true
		}
	}
	if count == 0 {
		return nil
	}
	pct := percent(count, len(rows))
	return []Issue{{
		Kind:          "empty_strings",
		Severity:      gradeShare(pct),
		Column:        col,
		AffectedCount: count,
		TotalCount:    len(rows),
		Percentage:    pct,
		Description:   fmt.Sprintf("%.0f%% of %q is blank", pct, col),
	}}
}

func checkMixedTypes(rows []map[string]any, col string) []Issue {
	kinds := make(map[string]int)
	total := 0
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		kinds[scalarKind(v)]++
		total++
	}
	if len(kinds) <= 1 || total == 0 {
		return nil
	}
	// The minority share decides severity.
	majority := 0
	for _, n := range kinds {
		if n > majority {
			majority = n
		}
	}
	minority := total - majority
	pct := percent(minority, total)
	sev := SeverityInfo
	if pct > 5 {
		sev = SeverityWarning
	}
	return []Issue{{
		Kind:          "mixed_types",
		Severity:      sev,
		Column:        col,
		AffectedCount: minority,
		TotalCount:    total,
		Percentage:    pct,
		Description:   fmt.Sprintf("%q mixes %d value types", col, len(kinds)),
	}}
}

func checkInvalidDates(rows []map[string]any, col string, problem []map[string]bool) []Issue {
	count, total := 0, 0
	for i, row := range rows {
		s, ok := row[col].(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		total++
		if !parseableDate(s) {
			count++
			problem[i][col] = true
		}
	}
	if count == 0 {
		return nil
	}
	pct := percent(count, total)
	return []Issue{{
		Kind:          "invalid_dates",
		Severity:      gradeShare(pct),
		Column:        col,
		AffectedCount: count,
		TotalCount:    total,
		Percentage:    pct,
		Description:   fmt.Sprintf("%d values in %q are not valid dates", count, col),
	}}
}

// checkOutliers flags values beyond 3 standard deviations, but only when
// outliers are at most 10% of the column — above that the distribution
// itself is suspect, not the points.
func checkOutliers(rows []map[string]any, col string) []Issue {
	var values []float64
	for _, row := range rows {
		if f, ok := asFloat(row[col]); ok {
			values = append(values, f)
		}
	}
	if len(values) < 4 {
		return nil
	}
	mean, stddev := meanStddev(values)
	if stddev == 0 {
		return nil
	}
	count := 0
	for _, v := range values {
		if math.Abs(v-mean) > 3*stddev {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	pct := percent(count, len(values))
	if pct > 10 {
		return nil
	}
	return []Issue{{
		Kind:          "outliers",
		Severity:      SeverityInfo,
		Column:        col,
		AffectedCount: count,
		TotalCount:    len(values),
		Percentage:    pct,
		Description:   fmt.Sprintf("%d values in %q sit far outside the typical range", count, col),
	}}
}

func checkDuplicates(rows []map[string]any) []Issue {
	seen := make(map[string]bool, len(rows))
	count := 0
	for _, row := range rows {
		key := rowKey(row)
		if seen[key] {
			count++
		}
		seen[key] = true
	}
	if count == 0 {
		return nil
	}
	pct := percent(count, len(rows))
	sev := SeverityInfo
	if pct > 10 {
		sev = SeverityWarning
	}
	return []Issue{{
		Kind:          "duplicate_rows",
		Severity:      sev,
		AffectedCount: count,
		TotalCount:    len(rows),
		Percentage:    pct,
		Description:   fmt.Sprintf("%d duplicate rows", count),
	}}
}

// disclosure summarizes the two worst issues into the leading sentence.
func disclosure(issues []Issue, totalRows, complete int) string {
	var blocking []Issue
	for _, i := range issues {
		if i.Severity == SeverityWarning || i.Severity == SeverityCritical {
			blocking = append(blocking, i)
		}
	}
	if len(blocking) == 0 {
		return ""
	}
	sort.SliceStable(blocking, func(a, b int) bool {
		if blocking[a].Severity != blocking[b].Severity {
			return blocking[a].Severity == SeverityCritical
		}
		return blocking[a].Percentage > blocking[b].Percentage
	})
	if len(blocking) > 2 {
		blocking = blocking[:2]
	}
	parts := make([]string, len(blocking))
	for i, issue := range blocking {
		parts[i] = issue.Description
	}
	return fmt.Sprintf("⚠️ Data quality note: %s (%d of %d rows are fully complete).",
		strings.Join(parts, "; "), complete, totalRows)
}

func gradeShare(pct float64) Severity {
	switch {
	case pct > 50:
		return SeverityCritical
	case pct > 20:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func scalarKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return "number"
	case bool:
		return "bool"
	case time.Time:
		return "time"
	default:
		return "other"
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func meanStddev(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	varSum := 0.0
	for _, v := range values {
		varSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varSum / float64(len(values)))
}

func isDateNamed(col string) bool {
	c := strings.ToLower(col)
	for _, hint := range dateNameHints {
		if strings.Contains(c, hint) {
			return true
		}
	}
	return false
}

func parseableDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func rowKey(row map[string]any) string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%s=%v|", c, row[c])
	}
	return b.String()
}
