// Package prompt is the typed seam to the language model. Each capability
// has a fixed system role, temperature 0 and a bounded token budget, and
// parses the model output defensively: unusable JSON degrades to a
// structured "not applicable" result instead of failing the pipeline.
package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/source"
)

const defaultMaxTokens = 1200

// SQLPlan is the outcome of PlanSQL. MissingColumns holds identifiers the
// model flagged via sentinel comments, already stripped from SQL.
type SQLPlan struct {
	SQL            string
	MissingColumns []string
}

// SQLReview is the model's second opinion on planned SQL.
type SQLReview struct {
	IsValid         bool     `json:"isValid"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
	CorrectedSQL    string   `json:"correctedSQL"`
}

// Step is one unit of a multi-step plan.
type Step struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
	SubQuestion string `json:"subQuestion"`
	DependsOn   []int  `json:"dependsOn"`
}

// StepPlan is the raw multi-step decision; the planner vets it.
type StepPlan struct {
	NeedsMultiStep bool   `json:"needsMultiStep"`
	Steps          []Step `json:"steps"`
}

// ChartSpec is the model's chart suggestion; the orchestrator attaches the
// actual rows.
type ChartSpec struct {
	Type string `json:"type"`
	X    string `json:"x"`
	Y    string `json:"y"`
}

// Analysis is the grounded explanation of one query result.
type Analysis struct {
	Text        string     `json:"text"`
	Chart       *ChartSpec `json:"chart"`
	Suggestions []string   `json:"suggestions"`
	Forecast    string     `json:"forecast"`
}

// StepOutcome pairs an executed step with its rows for synthesis.
type StepOutcome struct {
	Step Step
	SQL  string
	Rows []map[string]any
}

// TierRules shape the style and length of generated text. Derived from the
// tier record; the model never sees tier names.
type TierRules struct {
	MaxWords         int
	AllowCharts      bool
	AllowSuggestions bool
	AllowForecast    bool
	Extended         bool
	// WantChart and WantForecast carry an explicit request from the user;
	// both are only ever set when the matching Allow flag holds.
	WantChart    bool
	WantForecast bool
}

// Service wraps the chat model. Stateless; concurrent calls are fine. The
// breaker trips when the model endpoint misbehaves so a flapping provider
// fails fast instead of eating every request's deadline.
type Service struct {
	model     llms.Model
	breaker   *gobreaker.CircuitBreaker
	log       *zap.Logger
	maxTokens int
}

func NewService(model llms.Model, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		model: model,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "llm",
		}),
		log:       log,
		maxTokens: defaultMaxTokens,
	}
}

// generate runs one system+user exchange at temperature 0.
func (s *Service) generate(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		opts := []llms.CallOption{
			llms.WithTemperature(0),
			llms.WithMaxTokens(s.maxTokens),
		}
		if jsonMode {
			opts = append(opts, llms.WithJSONMode())
		}
		resp, err := s.model.GenerateContent(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, system),
			llms.TextParts(llms.ChatMessageTypeHuman, user),
		}, opts...)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	return out.(string), nil
}

// PlanSQL asks for a single read-only statement. Missing columns are
// signalled by --MISSING:<name> sentinel comments, extracted and stripped
// here so the validator never sees them.
func (s *Service) PlanSQL(ctx context.Context, question string, handles []source.TableHandle) (SQLPlan, error) {
	user := buildPlanPrompt(question, handles)
	raw, err := s.generate(ctx, sysPlanner, user, false)
	if err != nil {
		return SQLPlan{}, err
	}
	sql := extractSQL(raw)
	sql, missing := extractMissing(sql)
	if sql == "" && len(missing) == 0 {
		s.log.Warn("planner returned no SQL", zap.String("question", question))
	}
	return SQLPlan{SQL: sql, MissingColumns: missing}, nil
}

// ValidateSQL asks for a strict-JSON review. Unusable output means "not
// applicable": the static validator's verdict stands alone.
func (s *Service) ValidateSQL(ctx context.Context, sql, question string, handles []source.TableHandle) (SQLReview, error) {
	user := buildReviewPrompt(sql, question, handles)
	raw, err := s.generate(ctx, sysReviewer, user, true)
	if err != nil {
		return SQLReview{}, err
	}
	var review SQLReview
	if err := json.Unmarshal([]byte(extractJSON(raw)), &review); err != nil {
		s.log.Debug("unparseable review, treating as not applicable", zap.Error(err))
		return SQLReview{IsValid: true}, nil
	}
	return review, nil
}

// PlanMultiStep asks whether the question needs decomposition.
func (s *Service) PlanMultiStep(ctx context.Context, question string, handles []source.TableHandle, maxSubSteps int) (StepPlan, error) {
	user := buildMultiStepPrompt(question, handles, maxSubSteps)
	raw, err := s.generate(ctx, sysDecomposer, user, true)
	if err != nil {
		return StepPlan{}, err
	}
	var plan StepPlan
	if err := json.Unmarshal([]byte(extractJSON(raw)), &plan); err != nil {
		s.log.Debug("unparseable step plan, defaulting to single step", zap.Error(err))
		return StepPlan{}, nil
	}
	return plan, nil
}

// Analyze turns one executed result into a grounded explanation.
func (s *Service) Analyze(ctx context.Context, question string, rows []map[string]any, columns []string, rules TierRules, missing []string) (Analysis, error) {
	user := buildAnalyzePrompt(question, rows, columns, rules, missing)
	raw, err := s.generate(ctx, sysAnalyst, user, true)
	if err != nil {
		return Analysis{}, err
	}
	var a Analysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &a); err != nil {
		// Some models answer in prose despite the schema; keep the text.
		text := strings.TrimSpace(raw)
		if text == "" {
			return Analysis{}, fmt.Errorf("empty analysis")
		}
		return Analysis{Text: text}, nil
	}
	if a.Text == "" {
		return Analysis{}, fmt.Errorf("analysis without text")
	}
	return a, nil
}

// Synthesize merges ordered step results into one answer.
func (s *Service) Synthesize(ctx context.Context, question string, steps []StepOutcome, rules TierRules) (string, error) {
	user := buildSynthesizePrompt(question, steps, rules)
	raw, err := s.generate(ctx, sysSynthesizer, user, false)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(stripFences(raw))
	if text == "" {
		return "", fmt.Errorf("empty synthesis")
	}
	return text, nil
}
