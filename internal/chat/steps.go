package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/guard"
	"github.com/asklens/asklens/internal/intent"
	"github.com/asklens/asklens/internal/planner"
	"github.com/asklens/asklens/internal/prompt"
	"github.com/asklens/asklens/internal/quality"
	"github.com/asklens/asklens/internal/source"
	"github.com/asklens/asklens/internal/tier"
)

// singleStep is the common path: one planned statement, validated, executed
// and explained.
func (o *Orchestrator) singleStep(ctx context.Context, question string, res source.Resolution, limits tier.Limits, rules prompt.TierRules, rewrite intent.Rewrite, metaphor bool, meta Meta) Response {
	o.mets.IncModelCall("plan")
	plan, err := o.prompts.PlanSQL(ctx, question, res.Handles)
	if err != nil {
		return o.failure(KindValidation, "", meta, err)
	}
	if len(plan.MissingColumns) > 0 {
		missing := planner.FromNames(plan.MissingColumns)
		return Response{Text: planner.EducationalResponse(missing, res.Handles), Meta: meta}
	}
	if plan.SQL == "" {
		return o.failure(KindValidation, "", meta, fmt.Errorf("planner produced no SQL"))
	}

	rep, d, perr := o.validateAndRoute(ctx, plan.SQL, question, res, limits)
	if perr != nil {
		return o.failure(perr.Kind, "", meta, perr.Cause)
	}

	result, err := o.exec.Run(ctx, d, rep, limits)
	if err != nil {
		return o.failure(KindSQLError, "", meta, err)
	}

	return o.explain(ctx, question, result.Rows, result.Tables, result.RowCount, res, limits, rules, rewrite, metaphor, meta, nil)
}

// insightStep answers a vague question with the deterministic canonical
// statement, skipping the planning model call entirely.
func (o *Orchestrator) insightStep(ctx context.Context, question string, ins planner.Insight, res source.Resolution, limits tier.Limits, rules prompt.TierRules, rewrite intent.Rewrite, metaphor bool, meta Meta) Response {
	rep, d, perr := o.validateAndRoute(ctx, ins.SQL, question, res, limits)
	if perr != nil {
		// A canonical statement failing validation means the schema shifted
		// under us; fall back to normal planning.
		o.log.Warn("default insight rejected by validator", zap.Error(perr.Cause))
		return o.singleStep(ctx, question, res, limits, rules, rewrite, metaphor, meta)
	}

	result, err := o.exec.Run(ctx, d, rep, limits)
	if err != nil {
		return o.failure(KindSQLError, "", meta, err)
	}

	var fallback *prompt.ChartSpec
	if ins.ChartX != "" && ins.ChartY != "" {
		chartType := "bar"
		if ins.Kind == "trend" {
			chartType = "line"
		}
		fallback = &prompt.ChartSpec{Type: chartType, X: ins.ChartX, Y: ins.ChartY}
	}
	return o.explain(ctx, question, result.Rows, result.Tables, result.RowCount, res, limits, rules, rewrite, metaphor, meta, fallback)
}

// multiStep runs a vetted plan strictly in order. Any step failing fails
// the whole request; partial answers are never synthesized.
func (o *Orchestrator) multiStep(ctx context.Context, question string, plan prompt.StepPlan, res source.Resolution, limits tier.Limits, rules prompt.TierRules, rewrite intent.Rewrite, metaphor bool, meta Meta) Response {
	var (
		outcomes []prompt.StepOutcome
		allRows  []map[string]any
		tables   []string
		seen     = make(map[string]bool)
		total    int
		limited  bool
	)
	for _, step := range plan.Steps {
		o.mets.IncModelCall("plan")
		sp, err := o.prompts.PlanSQL(ctx, step.SubQuestion, res.Handles)
		if err != nil {
			return o.failure(KindValidation, "", meta, fmt.Errorf("step %d: %w", step.Order, err))
		}
		if len(sp.MissingColumns) > 0 {
			missing := planner.FromNames(sp.MissingColumns)
			return Response{Text: planner.EducationalResponse(missing, res.Handles), Meta: meta}
		}
		if sp.SQL == "" {
			return o.failure(KindValidation, "", meta, fmt.Errorf("step %d produced no SQL", step.Order))
		}

		rep, d, perr := o.validateAndRoute(ctx, sp.SQL, step.SubQuestion, res, limits)
		if perr != nil {
			return o.failure(perr.Kind, "", meta, fmt.Errorf("step %d: %w", step.Order, perr.Cause))
		}

		result, err := o.exec.Run(ctx, d, rep, limits)
		if err != nil {
			return o.failure(KindSQLError, "", meta, fmt.Errorf("step %d: %w", step.Order, err))
		}

		outcomes = append(outcomes, prompt.StepOutcome{Step: step, SQL: result.SQL, Rows: result.Rows})
		allRows = append(allRows, result.Rows...)
		for _, t := range result.Tables {
			if !seen[t] {
				seen[t] = true
				tables = append(tables, t)
			}
		}
		total += result.RowCount
		limited = limited || result.RowCount == limits.MaxRows
	}

	o.mets.IncModelCall("synthesize")
	text, err := o.prompts.Synthesize(ctx, question, outcomes, rules)
	if err != nil {
		return o.failure(KindValidation, "", meta, err)
	}

	meta.Tables = tables
	meta.Rows = total
	meta.Limited = limited

	cols := guardColumns(res.Handles, allRows)
	g := guard.Validate(text, allRows, cols, question)
	if !g.IsValid {
		o.mets.IncSuppressed()
		o.log.Warn("synthesis failed grounding check", zap.Strings("errors", g.Errors))
		return Response{Text: guard.FallbackText, Meta: meta}
	}
	for _, w := range g.Warnings {
		o.log.Debug("grounding warning", zap.String("warning", w))
	}

	qrep := quality.Analyze(allRows, nil)
	intro := ""
	if metaphor {
		intro = rewrite.Intro
	}
	return Response{
		Text: assemble(text, qrep.DisclosureMessage, intro, tables, total),
		Meta: meta,
	}
}

// explain is the shared tail of the single-step paths: quality analysis,
// model explanation, grounding check, assembly, chart and suggestions.
func (o *Orchestrator) explain(ctx context.Context, question string, rows []map[string]any, tables []string, rowCount int, res source.Resolution, limits tier.Limits, rules prompt.TierRules, rewrite intent.Rewrite, metaphor bool, meta Meta, fallbackChart *prompt.ChartSpec) Response {
	meta.Tables = tables
	meta.Rows = rowCount
	meta.Limited = rowCount == limits.MaxRows

	qrep := quality.Analyze(rows, nil)
	cols := guardColumns(res.Handles, rows)

	o.mets.IncModelCall("analyze")
	analysis, err := o.prompts.Analyze(ctx, question, rows, cols, rules, nil)
	if err != nil {
		return o.failure(KindValidation, "", meta, err)
	}

	body := analysis.Text
	if rules.AllowForecast && analysis.Forecast != "" {
		body += "\n\n📈 Forecast: " + analysis.Forecast
	}

	g := guard.Validate(body, rows, cols, question)
	if !g.IsValid {
		o.mets.IncSuppressed()
		o.log.Warn("analysis failed grounding check",
			zap.Strings("errors", g.Errors),
			zap.String("question", question))
		return Response{Text: guard.FallbackText, Meta: meta}
	}
	for _, w := range g.Warnings {
		o.log.Debug("grounding warning", zap.String("warning", w))
	}

	intro := ""
	if metaphor {
		intro = rewrite.Intro
	}
	resp := Response{
		Text: assemble(body, qrep.DisclosureMessage, intro, tables, rowCount),
		Meta: meta,
	}

	if limits.AllowCharts {
		spec := analysis.Chart
		if spec == nil {
			spec = fallbackChart
		}
		if spec != nil {
			if data := chartData(rows, spec.X, spec.Y); len(data) > 0 {
				resp.Chart = &Chart{Type: spec.Type, X: spec.X, Y: spec.Y, Data: data}
			}
		}
	}
	if rules.AllowSuggestions {
		resp.Meta.Suggestions = analysis.Suggestions
	}
	return resp
}
