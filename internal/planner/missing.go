package planner

import (
	"fmt"
	"strings"

	"github.com/asklens/asklens/internal/source"
)

// MissingColumn describes a column a question needs but the schema lacks,
// with enough context for the educational response.
type MissingColumn struct {
	Name         string
	DataType     string
	Example      string
	Alternatives []string
}

// conceptRequirements maps question concepts to the columns they need.
// Checked deterministically before any model call.
var conceptRequirements = []struct {
	triggers []string
	columns  []MissingColumn
}{
	{
		triggers: []string{"profit", "margin"},
		columns: []MissingColumn{
			{Name: "cost", DataType: "decimal", Example: "12.50", Alternatives: []string{"expenses", "cogs", "unit_cost"}},
			{Name: "profit_margin", DataType: "decimal", Example: "0.35", Alternatives: []string{"profit", "markup"}},
		},
	},
	{
		triggers: []string{"churn", "retention"},
		columns: []MissingColumn{
			{Name: "cancelled_at", DataType: "date", Example: "2025-06-30", Alternatives: []string{"churn_date", "end_date", "status"}},
			{Name: "customer_id", DataType: "integer", Example: "1042", Alternatives: []string{"user_id", "account_id"}},
		},
	},
	{
		triggers: []string{"acquisition cost", "cac"},
		columns: []MissingColumn{
			{Name: "marketing_spend", DataType: "decimal", Example: "2500.00", Alternatives: []string{"ad_spend", "campaign_cost"}},
		},
	},
	{
		triggers: []string{"inventory", "stock level"},
		columns: []MissingColumn{
			{Name: "quantity_on_hand", DataType: "integer", Example: "320", Alternatives: []string{"stock", "inventory", "units_available"}},
		},
	},
	{
		triggers: []string{"conversion rate", "conversion"},
		columns: []MissingColumn{
			{Name: "visits", DataType: "integer", Example: "18250", Alternatives: []string{"sessions", "impressions", "leads"}},
		},
	},
}

// DetectMissing returns the columns a question needs that no handle
// provides. Fuzzy matching: a schema column satisfies a requirement when
// either name contains the other, or it matches an alternative.
func DetectMissing(question string, handles []source.TableHandle) []MissingColumn {
	q := strings.ToLower(question)
	var missing []MissingColumn
	for _, req := range conceptRequirements {
		matched := false
		for _, t := range req.triggers {
			if strings.Contains(q, t) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, col := range req.columns {
			if !schemaSatisfies(handles, col) {
				missing = append(missing, col)
			}
		}
	}
	return missing
}

func schemaSatisfies(handles []source.TableHandle, want MissingColumn) bool {
	candidates := append([]string{want.Name}, want.Alternatives...)
	for _, h := range handles {
		for _, have := range h.Schema.Names {
			hl := strings.ToLower(have)
			for _, c := range candidates {
				cl := strings.ToLower(c)
				if strings.Contains(hl, cl) || strings.Contains(cl, hl) {
					return true
				}
			}
		}
	}
	return false
}

// FromNames wraps planner-signalled missing column names in generic
// metadata when no concept entry describes them.
func FromNames(names []string) []MissingColumn {
	out := make([]MissingColumn, 0, len(names))
	for _, name := range names {
		col := MissingColumn{Name: name, DataType: "numeric or text", Example: "a value per row"}
		for _, req := range conceptRequirements {
			for _, known := range req.columns {
				if strings.EqualFold(known.Name, name) {
					col = known
				}
			}
		}
		out = append(out, col)
	}
	return out
}

// EducationalResponse builds the fixed, structured missing-columns message:
// every required column with type, example and alternatives, followed by
// the analyses the current schema still supports. No model call.
func EducationalResponse(missing []MissingColumn, handles []source.TableHandle) string {
	var b strings.Builder
	b.WriteString("I can't answer that with your current data — it needs columns your sources don't have:\n\n")
	for _, col := range missing {
		fmt.Fprintf(&b, "• %s (%s, e.g. %s)", col.Name, col.DataType, col.Example)
		if len(col.Alternatives) > 0 {
			fmt.Fprintf(&b, " — also accepted: %s", strings.Join(col.Alternatives, ", "))
		}
		b.WriteString("\n")
	}

	supported := SupportedAnalyses(handles)
	if len(supported) > 0 {
		b.WriteString("\nWith the data you have, I can still help with:\n")
		for _, s := range supported {
			fmt.Fprintf(&b, "• %s\n", s)
		}
	}
	b.WriteString("\nAdd the missing columns to your upload or database and ask again.")
	return b.String()
}

// SupportedAnalyses lists what the current schema can answer, derived from
// column shapes only.
func SupportedAnalyses(handles []source.TableHandle) []string {
	var out []string
	for _, h := range handles {
		numeric := numericColumns(h.Schema)
		cats := categoricalColumns(h.Schema)
		dates := dateColumns(h.Schema)
		if len(numeric) > 0 {
			out = append(out, fmt.Sprintf("totals and averages of %s in %s", strings.Join(numeric, ", "), h.LogicalName))
		}
		if len(numeric) > 0 && len(cats) > 0 {
			out = append(out, fmt.Sprintf("top performers by %s", cats[0]))
		}
		if len(numeric) > 0 && len(dates) > 0 {
			out = append(out, fmt.Sprintf("trends of %s over %s", numeric[0], dates[0]))
		}
	}
	return out
}
