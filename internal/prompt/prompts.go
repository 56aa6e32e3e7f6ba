package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/asklens/asklens/internal/source"
)

// System roles are fixed per capability.
const (
	sysPlanner = `You are a read-only SQL planner for business analytics.
Rules:
- Output exactly one SELECT (or WITH ... SELECT) statement and nothing else.
- Use ONLY tables and columns from the provided schema. Never invent names.
- If the question needs a column the schema does not have, emit a comment line
  --MISSING:<column_name> for each missing column instead of guessing.
- Always include a LIMIT clause.
- No INSERT, UPDATE, DELETE, DDL, or multiple statements under any circumstances.`

	sysReviewer = `You are a SQL reviewer. You receive a SELECT statement, the question it
answers and the schema. Respond with strict JSON only:
{"isValid": bool, "concerns": [string], "recommendations": [string], "correctedSQL": string}
correctedSQL must be empty unless you are correcting a concrete mistake, and must stay a read-only SELECT.`

	sysDecomposer = `You decide whether a business question needs multiple sequential queries.
Respond with strict JSON only:
{"needsMultiStep": bool, "steps": [{"order": int, "description": string, "subQuestion": string, "dependsOn": [int]}]}
Each subQuestion must be answerable by a single SELECT. Prefer a single step; decompose only
for genuine comparisons or multi-part questions. dependsOn lists the orders of earlier steps a step reads from.`

	sysAnalyst = `You are a business data analyst. You receive a question and the exact rows
a query returned. Explain what the data shows. Respond with strict JSON only:
{"text": string, "chart": {"type": "line|bar|area|pie", "x": string, "y": string} or null,
 "suggestions": [string], "forecast": string}
Every number in "text" must appear verbatim in the rows. Never extrapolate beyond the rows
except in "forecast" when asked for one. Leave fields empty when not requested.`

	sysSynthesizer = `You are a business data analyst combining the results of several sequential
queries into one coherent answer. Use only numbers present in the step results. Plain text only.`
)

// FormatHandles renders the schema the way the planner sees it: one block
// per logical table, column name and type per line.
func FormatHandles(handles []source.TableHandle) string {
	var b strings.Builder
	for _, h := range handles {
		fmt.Fprintf(&b, "Table: %s\n", h.LogicalName)
		for _, name := range h.Schema.Names {
			col := h.Schema.Columns[name]
			fmt.Fprintf(&b, "  %s %s", name, col.Type)
			if col.Description != "" {
				fmt.Fprintf(&b, " -- %s", col.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildPlanPrompt(question string, handles []source.TableHandle) string {
	return fmt.Sprintf("## Schema\n%s\n## Question\n%s\n\nOutput the SQL only.",
		FormatHandles(handles), question)
}

func buildReviewPrompt(sql, question string, handles []source.TableHandle) string {
	return fmt.Sprintf("## Schema\n%s\n## Question\n%s\n\n## SQL\n```sql\n%s\n```",
		FormatHandles(handles), question, sql)
}

func buildMultiStepPrompt(question string, handles []source.TableHandle, maxSubSteps int) string {
	cap := "There is no cap on the number of steps."
	if maxSubSteps > 0 {
		cap = fmt.Sprintf("Use at most %d steps.", maxSubSteps)
	}
	return fmt.Sprintf("## Schema\n%s\n## Question\n%s\n\n%s", FormatHandles(handles), question, cap)
}

func buildAnalyzePrompt(question string, rows []map[string]any, columns []string, rules TierRules, missing []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Question\n%s\n\n", question)
	fmt.Fprintf(&b, "## Columns\n%s\n\n", strings.Join(columns, ", "))
	b.WriteString("## Rows\n")
	b.WriteString(renderRows(rows, 50))
	b.WriteString("\n## Style\n")
	if rules.Extended {
		fmt.Fprintf(&b, "Write a detailed answer of at most %d words.\n", rules.MaxWords)
	} else {
		fmt.Fprintf(&b, "Write a concise answer of at most %d words.\n", rules.MaxWords)
	}
	switch {
	case rules.WantChart:
		b.WriteString("The user asked for a chart; suggest one whenever the columns allow it.\n")
	case rules.AllowCharts:
		b.WriteString("Suggest a chart when one numeric and one categorical or date column exist.\n")
	default:
		b.WriteString("Do not suggest a chart.\n")
	}
	if rules.AllowSuggestions {
		b.WriteString("Offer up to three short follow-up questions.\n")
	} else {
		b.WriteString("Do not offer follow-up questions.\n")
	}
	switch {
	case rules.WantForecast:
		b.WriteString("The user asked for a forecast; include a brief one.\n")
	case rules.AllowForecast:
		b.WriteString("Include a brief forecast when the data is a time series.\n")
	default:
		b.WriteString("Do not include a forecast.\n")
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Mention that the columns %s were unavailable.\n", strings.Join(missing, ", "))
	}
	return b.String()
}

func buildSynthesizePrompt(question string, steps []StepOutcome, rules TierRules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Question\n%s\n\n", question)
	for _, s := range steps {
		fmt.Fprintf(&b, "## Step %d: %s\n", s.Step.Order, s.Step.Description)
		fmt.Fprintf(&b, "Sub-question: %s\n", s.Step.SubQuestion)
		b.WriteString(renderRows(s.Rows, 20))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "## Style\nAnswer in at most %d words, citing only numbers shown above.\n", rules.MaxWords)
	if rules.AllowForecast {
		b.WriteString("Finish with a short \"Forecast:\" section when the results form a time series or comparison.\n")
	}
	return b.String()
}

// renderRows serializes up to max rows as JSON lines; enough for grounding
// without blowing the token budget.
func renderRows(rows []map[string]any, max int) string {
	if len(rows) == 0 {
		return "(no rows)\n"
	}
	var b strings.Builder
	n := len(rows)
	if n > max {
		n = max
	}
	for _, row := range rows[:n] {
		line, err := json.Marshal(row)
		if err != nil {
			continue
		}
		b.Write(line)
		b.WriteString("\n")
	}
	if len(rows) > n {
		fmt.Fprintf(&b, "(%d more rows omitted)\n", len(rows)-n)
	}
	return b.String()
}
