package quality

import (
	"strings"
	"testing"
)

func findIssue(issues []Issue, kind string) (Issue, bool) {
	for _, i := range issues {
		if i.Kind == kind {
			return i, true
		}
	}
	return Issue{}, false
}

func TestAnalyze_CleanRows(t *testing.T) {
	rows := []map[string]any{
		{"region": "north", "revenue": 100.0},
		{"region": "south", "revenue": 200.0},
		{"region": "east", "revenue": 150.0},
	}
	rep := Analyze(rows, nil)
	if len(rep.Issues) != 0 {
		t.Errorf("Issues = %v, want none", rep.Issues)
	}
	if rep.DisclosureMessage != "" {
		t.Errorf("DisclosureMessage = %q, want empty", rep.DisclosureMessage)
	}
	if rep.CompleteRecords != 3 {
		t.Errorf("CompleteRecords = %d, want 3", rep.CompleteRecords)
	}
}

func TestAnalyze_EmptyRows(t *testing.T) {
	rep := Analyze(nil, nil)
	if len(rep.Issues) != 0 || rep.DisclosureMessage != "" || rep.CompleteRecords != 0 {
		t.Errorf("empty input should produce a zero report, got %+v", rep)
	}
}

func TestAnalyze_NullSeverity(t *testing.T) {
	tests := []struct {
		name  string
		nulls int
		total int
		want  Severity
	}{
		{"info under 20%", 1, 10, SeverityInfo},
		{"warning over 20%", 3, 10, SeverityWarning},
		{"critical over 50%", 6, 10, SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []map[string]any
			for i := 0; i < tt.total; i++ {
				var v any = 1.0
				if i < tt.nulls {
					v = nil
				}
				rows = append(rows, map[string]any{"revenue": v, "n": float64(i)})
			}
			rep := Analyze(rows, []string{"revenue", "n"})
			issue, ok := findIssue(rep.Issues, "null_values")
			if !ok {
				t.Fatal("expected a null_values issue")
			}
			if issue.Severity != tt.want {
				t.Errorf("Severity = %q, want %q", issue.Severity, tt.want)
			}
			if issue.AffectedCount != tt.nulls {
				t.Errorf("AffectedCount = %d, want %d", issue.AffectedCount, tt.nulls)
			}
		})
	}
}

func TestAnalyze_EmptyStrings(t *testing.T) {
	rows := []map[string]any{
		{"name": "a"}, {"name": "  "}, {"name": ""}, {"name": "d"},
	}
	rep := Analyze(rows, []string{"name"})
	issue, ok := findIssue(rep.Issues, "empty_strings")
	if !ok {
		t.Fatal("expected an empty_strings issue")
	}
	if issue.AffectedCount != 2 {
		t.Errorf("AffectedCount = %d, want 2", issue.AffectedCount)
	}
	if rep.CompleteRecords != 2 {
		t.Errorf("CompleteRecords = %d, want 2", rep.CompleteRecords)
	}
}

func TestAnalyze_MixedTypes(t *testing.T) {
	rows := []map[string]any{
		{"amount": 10.0}, {"amount": 20.0}, {"amount": 30.0}, {"amount": "n/a"},
	}
	rep := Analyze(rows, []string{"amount"})
	issue, ok := findIssue(rep.Issues, "mixed_types")
	if !ok {
		t.Fatal("expected a mixed_types issue")
	}
	// Minority share 25% is above the 5% warning threshold.
	if issue.Severity != SeverityWarning {
		t.Errorf("Severity = %q, want warning", issue.Severity)
	}
	if issue.AffectedCount != 1 {
		t.Errorf("AffectedCount = %d, want 1", issue.AffectedCount)
	}
}

func TestAnalyze_InvalidDates(t *testing.T) {
	rows := []map[string]any{
		{"created_date": "2026-01-15"},
		{"created_date": "01/20/2026"},
		{"created_date": "not a date"},
		{"created_date": "2026-02-30T00:00:00Z"},
	}
	rep := Analyze(rows, []string{"created_date"})
	issue, ok := findIssue(rep.Issues, "invalid_dates")
	if !ok {
		t.Fatal("expected an invalid_dates issue")
	}
	if issue.AffectedCount != 2 {
		t.Errorf("AffectedCount = %d, want 2", issue.AffectedCount)
	}
}

func TestAnalyze_DateCheckOnlyForDateNamedColumns(t *testing.T) {
	rows := []map[string]any{
		{"note": "not a date"}, {"note": "also prose"},
	}
	rep := Analyze(rows, []string{"note"})
	if _, ok := findIssue(rep.Issues, "invalid_dates"); ok {
		t.Error("non-date-named column should not be date checked")
	}
}

func TestAnalyze_Outliers(t *testing.T) {
	var rows []map[string]any
	for i := 0; i < 11; i++ {
		rows = append(rows, map[string]any{"amount": 10.0})
	}
	rows = append(rows, map[string]any{"amount": 1000.0})

	rep := Analyze(rows, []string{"amount"})
	issue, ok := findIssue(rep.Issues, "outliers")
	if !ok {
		t.Fatal("expected an outliers issue")
	}
	if issue.Severity != SeverityInfo {
		t.Errorf("Severity = %q, want info", issue.Severity)
	}
	if issue.AffectedCount != 1 {
		t.Errorf("AffectedCount = %d, want 1", issue.AffectedCount)
	}
}

func TestAnalyze_Duplicates(t *testing.T) {
	rows := []map[string]any{
		{"a": 1.0, "b": "x"},
		{"a": 1.0, "b": "x"},
		{"a": 2.0, "b": "y"},
	}
	rep := Analyze(rows, []string{"a", "b"})
	issue, ok := findIssue(rep.Issues, "duplicate_rows")
	if !ok {
		t.Fatal("expected a duplicate_rows issue")
	}
	if issue.AffectedCount != 1 {
		t.Errorf("AffectedCount = %d, want 1", issue.AffectedCount)
	}
	// One duplicate in three rows is above the 10% warning threshold.
	if issue.Severity != SeverityWarning {
		t.Errorf("Severity = %q, want warning", issue.Severity)
	}
}

func TestDisclosureMessage(t *testing.T) {
	var rows []map[string]any
	for i := 0; i < 10; i++ {
		var v any = 50.0
		if i < 6 {
			v = nil
		}
		rows = append(rows, map[string]any{"revenue": v})
	}
	rep := Analyze(rows, []string{"revenue"})

	if !strings.HasPrefix(rep.DisclosureMessage, "⚠️ Data quality note:") {
		t.Errorf("DisclosureMessage = %q, want the fixed prefix", rep.DisclosureMessage)
	}
	if !strings.Contains(rep.DisclosureMessage, "4 of 10 rows are fully complete") {
		t.Errorf("DisclosureMessage = %q, want complete-record count", rep.DisclosureMessage)
	}
	if !rep.HasBlocking() {
		t.Error("60% nulls should count as blocking")
	}
}

func TestHasBlocking_InfoOnly(t *testing.T) {
	rows := []map[string]any{
		{"n": 1.0}, {"n": nil}, {"n": 3.0}, {"n": 4.0}, {"n": 5.0},
		{"n": 6.0}, {"n": 7.0}, {"n": 8.0}, {"n": 9.0}, {"n": 10.0},
	}
	rep := Analyze(rows, []string{"n"})
	if rep.HasBlocking() {
		t.Errorf("10%% nulls is info-grade, issues: %v", rep.Issues)
	}
	if rep.DisclosureMessage != "" {
		t.Errorf("info-grade issues should not produce a disclosure, got %q", rep.DisclosureMessage)
	}
}
