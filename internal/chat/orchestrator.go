package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/dedup"
	"github.com/asklens/asklens/internal/executor"
	"github.com/asklens/asklens/internal/intent"
	"github.com/asklens/asklens/internal/metrics"
	"github.com/asklens/asklens/internal/planner"
	"github.com/asklens/asklens/internal/prompt"
	"github.com/asklens/asklens/internal/ratelimit"
	"github.com/asklens/asklens/internal/source"
	"github.com/asklens/asklens/internal/sqlcheck"
	"github.com/asklens/asklens/internal/tier"
)

const irrelevantText = "I'm focused on your business data — I can't help with that one. " +
	"Ask me anything about your connected sources instead."

// Config wires the orchestrator's collaborators.
type Config struct {
	Limiter       *ratelimit.Limiter
	Resolver      *source.Resolver
	Prompts       *prompt.Service
	Planner       *planner.Planner
	Executor      *executor.Executor
	Conversations ConversationStore
	Log           *zap.Logger
	Metrics       *metrics.Metrics
}

// Orchestrator composes the pipeline. One instance serves all requests;
// each request runs as a single-threaded cooperative pass under its own
// tier-specific deadline.
type Orchestrator struct {
	limiter *ratelimit.Limiter
	sources *source.Resolver
	prompts *prompt.Service
	plans   *planner.Planner
	exec    *executor.Executor
	conv    ConversationStore
	cache   *dedup.Cache[Response]
	log     *zap.Logger
	mets    *metrics.Metrics
}

func New(cfg Config) *Orchestrator {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	conv := cfg.Conversations
	if conv == nil {
		conv = NewMemoryStore()
	}
	return &Orchestrator{
		limiter: cfg.Limiter,
		sources: cfg.Resolver,
		prompts: cfg.Prompts,
		plans:   cfg.Planner,
		exec:    cfg.Executor,
		conv:    conv,
		cache:   dedup.New[Response](0),
		log:     log,
		mets:    cfg.Metrics,
	}
}

// Chat is the single logical operation of the core.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (Response, error) {
	limits, err := tier.Lookup(req.Tier)
	if err != nil {
		return Response{}, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	// Identical content within the dedup window returns the previous
	// response byte for byte, consuming no credit and touching no backend.
	key := dedup.Hash(req.UserID, req.ConversationID, req.Message)
	if resp, ok := o.cache.Get(key); ok {
		return resp, nil
	}

	// The transcript is the durable backstop behind the in-process cache:
	// a replayed message finds its prior answer even after a restart.
	hash := MessageHash(req.UserID, req.ConversationID, req.Message)
	if rec, err := o.conv.ByHash(ctx, hash); err == nil && replayable(rec) {
		return o.cache.Do(key, func() (Response, error) {
			return responseFromRecord(rec, limits), nil
		})
	}

	decision := o.limiter.Check(req.UserID, limits, req.IsSuggestionFollowup)
	if !decision.Allow {
		o.mets.IncDenial()
		return Response{
			Text: userMessage(KindRateLimit, decision.Message),
			Meta: Meta{Intent: "rate_limited", Tier: string(limits.Name)},
		}, nil
	}

	return o.cache.Do(key, func() (Response, error) {
		return o.run(ctx, req, limits)
	})
}

// run executes one full pipeline pass under the tier deadline.
func (o *Orchestrator) run(ctx context.Context, req Request, limits tier.Limits) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, limits.ExecTimeout)
	defer cancel()

	if _, err := o.conv.SaveUser(ctx, MessageRecord{
		ConversationID: req.ConversationID,
		Content:        req.Message,
		MessageHash:    MessageHash(req.UserID, req.ConversationID, req.Message),
		RequestID:      req.RequestID,
		IsComplete:     true,
	}); err != nil {
		o.log.Warn("saving user message", zap.Error(err))
	}

	rewrite, metaphor := intent.MaybeRewrite(req.Message)
	question := req.Message
	if metaphor {
		question = rewrite.Rewritten
	}

	classified := intent.Classify(req.Message)
	if metaphor {
		// A metaphor rewrite overrides irrelevant classification.
		classified = intent.DataQuery
	}

	meta := Meta{
		Intent:       string(classified),
		Tier:         string(limits.Name),
		MetaphorUsed: metaphor,
	}

	var resp Response
	switch classified {
	case intent.Irrelevant:
		resp = Response{Text: irrelevantText, Meta: meta}
	case intent.FAQProduct:
		resp = Response{Text: intent.FAQAnswer(req.Message), Meta: meta}
	default:
		resp = o.dataBranch(ctx, req, question, rewrite, metaphor, limits, meta)
	}

	o.saveResponse(ctx, req, resp)
	return resp, nil
}

// dataBranch handles everything after a message is routed to the data
// pipeline: source resolution, missing-column education, vague-query
// default insights, and single- or multi-step execution.
func (o *Orchestrator) dataBranch(ctx context.Context, req Request, question string, rewrite intent.Rewrite, metaphor bool, limits tier.Limits, meta Meta) Response {
	res, err := o.sources.GetActive(ctx, req.UserID, limits)
	if err != nil {
		return o.failure(KindSQLError, "", meta, err)
	}
	if !res.Active {
		// Also covers a live database whose information_schema came
		// back empty. No model call is made on this path.
		return Response{Text: userMessage(KindNoData, ""), Meta: meta}
	}

	if missing := planner.DetectMissing(question, res.Handles); len(missing) > 0 {
		return Response{
			Text: planner.EducationalResponse(missing, res.Handles),
			Meta: meta,
		}
	}

	rules := o.tierRules(req, limits)

	if planner.IsVague(question) {
		if ins, ok := planner.DefaultInsight(res.Handles, question, limits.MaxRows); ok {
			return o.insightStep(ctx, question, ins, res, limits, rules, rewrite, metaphor, meta)
		}
	}

	if limits.AllowMultiStep {
		plan, err := o.plans.Plan(ctx, question, res.Handles, limits)
		if err != nil {
			o.log.Warn("multi-step planning failed, falling back to single step", zap.Error(err))
		} else if plan.NeedsMultiStep && len(plan.Steps) >= 2 {
			return o.multiStep(ctx, question, plan, res, limits, rules, rewrite, metaphor, meta)
		}
	}

	return o.singleStep(ctx, question, res, limits, rules, rewrite, metaphor, meta)
}

// tierRules derives the model-facing style rules from the capability
// record. The model never sees a tier name.
func (o *Orchestrator) tierRules(req Request, limits tier.Limits) prompt.TierRules {
	words := 40
	if limits.AllowCharts {
		words = 180
	}
	extended := req.ExtendedResponses && limits.AllowForecast
	if extended {
		words = 300
	}
	return prompt.TierRules{
		MaxWords:         words,
		AllowCharts:      limits.AllowCharts,
		AllowSuggestions: limits.AllowSuggestions,
		AllowForecast:    limits.AllowForecast,
		Extended:         extended,
		// Explicit requests pass through only when the tier allows them.
		WantChart:    req.RequestChart && limits.AllowCharts,
		WantForecast: req.RequestForecast && limits.AllowForecast,
	}
}

// failure logs the cause and returns the templated user response. The raw
// error never reaches the user.
func (o *Orchestrator) failure(kind Kind, detail string, meta Meta, cause error) Response {
	if errors.Is(cause, context.DeadlineExceeded) && detail == "" {
		detail = "The analysis took too long. Try a simpler question."
	}
	o.log.Warn("pipeline failure",
		zap.String("kind", string(kind)),
		zap.Error(cause))
	return Response{Text: userMessage(kind, detail), Meta: meta}
}

// saveResponse persists the assistant message keyed by the hash of the
// message it answers, so a replayed message can find its prior answer.
func (o *Orchestrator) saveResponse(ctx context.Context, req Request, resp Response) {
	if _, err := o.conv.SaveAI(ctx, MessageRecord{
		ConversationID: req.ConversationID,
		Content:        resp.Text,
		MessageHash:    MessageHash(req.UserID, req.ConversationID, req.Message),
		RequestID:      req.RequestID,
		IsComplete:     true,
		Metadata:       map[string]any{"intent": resp.Meta.Intent, "tables": resp.Meta.Tables},
	}); err != nil {
		o.log.Warn("saving assistant message", zap.Error(err))
	}
}

// replayable accepts only finished assistant rows still inside the dedup
// window. The paired user row shares the hash but never replays.
func replayable(rec *MessageRecord) bool {
	return rec != nil && rec.Role == "assistant" && rec.IsComplete &&
		time.Since(rec.CreatedAt) <= dedup.Window
}

func responseFromRecord(rec *MessageRecord, limits tier.Limits) Response {
	meta := Meta{Tier: string(limits.Name)}
	if s, ok := rec.Metadata["intent"].(string); ok {
		meta.Intent = s
	}
	if tables, ok := rec.Metadata["tables"].([]string); ok {
		meta.Tables = tables
	}
	return Response{Text: rec.Content, Meta: meta}
}

// assemble applies the fixed ordering: quality disclosure first (verbatim),
// then the metaphor preface, then the data-basis line, then the body.
func assemble(body, disclosure, intro string, tables []string, rows int) string {
	var parts []string
	if disclosure != "" {
		parts = append(parts, disclosure)
	}
	if intro != "" {
		parts = append(parts, intro)
	}
	parts = append(parts, fmt.Sprintf("Data basis: %s (%d rows analyzed)", strings.Join(tables, ", "), rows))
	parts = append(parts, body)
	return strings.Join(parts, "\n\n")
}

// guardColumns is the vocabulary the hallucination guard accepts: schema
// columns plus the aliases present in the result rows.
func guardColumns(handles []source.TableHandle, rows []map[string]any) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	for _, h := range handles {
		for _, name := range h.Schema.Names {
			add(name)
		}
	}
	if len(rows) > 0 {
		for col := range rows[0] {
			add(col)
		}
	}
	return out
}

// chartData projects rows onto the chart axes, capped to keep payloads
// renderable.
func chartData(rows []map[string]any, x, y string) []map[string]any {
	const maxPoints = 50
	var out []map[string]any
	for _, row := range rows {
		xv, okX := row[strings.ToLower(x)]
		yv, okY := row[strings.ToLower(y)]
		if !okX {
			xv, okX = row[x]
		}
		if !okY {
			yv, okY = row[y]
		}
		if !okX || !okY {
			continue
		}
		out = append(out, map[string]any{"x": xv, "y": yv})
		if len(out) == maxPoints {
			break
		}
	}
	return out
}

// validateAndRoute runs planned SQL through the static validator, the
// optional model review (one correction round, re-validated statically),
// and routes it to the owning descriptor.
func (o *Orchestrator) validateAndRoute(ctx context.Context, sql, question string, res source.Resolution, limits tier.Limits) (sqlcheck.Report, source.Descriptor, *Error) {
	rep := sqlcheck.Validate(sql, limits)
	if !rep.IsValid {
		return rep, source.Descriptor{}, &Error{Kind: KindValidation, Cause: fmt.Errorf("static validation: %s", strings.Join(rep.Errors, "; "))}
	}

	if limits.SQLValidation {
		o.mets.IncModelCall("validate")
		review, err := o.prompts.ValidateSQL(ctx, rep.EnhancedSQL, question, res.Handles)
		if err != nil {
			o.log.Debug("model review unavailable", zap.Error(err))
		} else if review.CorrectedSQL != "" {
			corrected := sqlcheck.Validate(review.CorrectedSQL, limits)
			if corrected.IsValid {
				rep = corrected
			}
		}
	}

	table := ""
	if len(rep.Tables) > 0 {
		table = rep.Tables[0]
	}
	return rep, res.OwnerOf(table), nil
}
