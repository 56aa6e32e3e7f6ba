package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/asklens/asklens/internal/source"
)

// fakeModel returns a scripted reply and records what it was asked.
type fakeModel struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (m *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	for _, msg := range msgs {
		var text strings.Builder
		for _, part := range msg.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				text.WriteString(tp.Text)
			}
		}
		if msg.Role == llms.ChatMessageTypeSystem {
			m.lastSystem = text.String()
		} else {
			m.lastUser = text.String()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return m.reply, m.err
}

func testHandles() []source.TableHandle {
	var s source.Schema
	s.Add("region", source.Column{Type: "varchar"})
	s.Add("revenue", source.Column{Type: "decimal"})
	return []source.TableHandle{{LogicalName: "sales", Schema: s}}
}

func TestPlanSQL_ExtractsFenceAndSentinels(t *testing.T) {
	m := &fakeModel{reply: "```sql\n--MISSING:cost\nSELECT region FROM sales LIMIT 10\n```"}
	s := NewService(m, nil)

	plan, err := s.PlanSQL(context.Background(), "profit by region", testHandles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.SQL != "SELECT region FROM sales LIMIT 10" {
		t.Errorf("SQL = %q", plan.SQL)
	}
	if len(plan.MissingColumns) != 1 || plan.MissingColumns[0] != "cost" {
		t.Errorf("MissingColumns = %v, want [cost]", plan.MissingColumns)
	}
	if !strings.Contains(m.lastUser, "Table: sales") {
		t.Errorf("planner prompt should carry the schema, got: %s", m.lastUser)
	}
}

func TestValidateSQL_ParsesReview(t *testing.T) {
	m := &fakeModel{reply: `{"isValid": false, "concerns": ["sums text"], "correctedSQL": "SELECT revenue FROM sales LIMIT 10"}`}
	s := NewService(m, nil)

	review, err := s.ValidateSQL(context.Background(), "SELECT region FROM sales", "revenue", testHandles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.IsValid {
		t.Error("IsValid = true, want false")
	}
	if review.CorrectedSQL != "SELECT revenue FROM sales LIMIT 10" {
		t.Errorf("CorrectedSQL = %q", review.CorrectedSQL)
	}
}

func TestValidateSQL_UnparseableMeansNotApplicable(t *testing.T) {
	m := &fakeModel{reply: "the statement looks fine to me"}
	s := NewService(m, nil)

	review, err := s.ValidateSQL(context.Background(), "SELECT a FROM t", "q", testHandles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !review.IsValid {
		t.Error("unusable review output must not veto the static verdict")
	}
}

func TestPlanMultiStep_UnparseableDefaultsToSingleStep(t *testing.T) {
	m := &fakeModel{reply: "I would just run one query"}
	s := NewService(m, nil)

	plan, err := s.PlanMultiStep(context.Background(), "compare years", testHandles(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.NeedsMultiStep || len(plan.Steps) != 0 {
		t.Errorf("plan = %+v, want zero value", plan)
	}
}

func TestAnalyze_ParsesStructuredReply(t *testing.T) {
	m := &fakeModel{reply: `{"text": "North led with 1500.", "chart": {"type": "bar", "x": "region", "y": "revenue"}, "suggestions": ["Compare to last month"]}`}
	s := NewService(m, nil)

	a, err := s.Analyze(context.Background(), "revenue by region", nil, []string{"region", "revenue"}, TierRules{MaxWords: 180, AllowCharts: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Text != "North led with 1500." {
		t.Errorf("Text = %q", a.Text)
	}
	if a.Chart == nil || a.Chart.Type != "bar" {
		t.Errorf("Chart = %+v, want bar", a.Chart)
	}
	if len(a.Suggestions) != 1 {
		t.Errorf("Suggestions = %v", a.Suggestions)
	}
}

func TestAnalyze_ExplicitRequestsReachThePrompt(t *testing.T) {
	m := &fakeModel{reply: `{"text": "North led with 1500."}`}
	s := NewService(m, nil)

	rules := TierRules{MaxWords: 300, AllowCharts: true, AllowForecast: true, WantChart: true, WantForecast: true}
	if _, err := s.Analyze(context.Background(), "revenue trend", nil, nil, rules, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(m.lastUser, "The user asked for a chart") {
		t.Errorf("prompt = %q, want the explicit chart request", m.lastUser)
	}
	if !strings.Contains(m.lastUser, "The user asked for a forecast") {
		t.Errorf("prompt = %q, want the explicit forecast request", m.lastUser)
	}

	// Without the explicit flags the capability wording stays conditional.
	if _, err := s.Analyze(context.Background(), "revenue trend", nil, nil, TierRules{MaxWords: 300, AllowCharts: true, AllowForecast: true}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(m.lastUser, "The user asked for") {
		t.Errorf("prompt = %q, want no explicit request wording", m.lastUser)
	}
}

func TestAnalyze_ProseFallbackKeepsText(t *testing.T) {
	m := &fakeModel{reply: "North led the quarter with strong results."}
	s := NewService(m, nil)

	a, err := s.Analyze(context.Background(), "q", nil, nil, TierRules{MaxWords: 40}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Text != "North led the quarter with strong results." {
		t.Errorf("Text = %q, want the prose kept", a.Text)
	}
	if a.Chart != nil {
		t.Error("prose fallback carries no chart")
	}
}

func TestAnalyze_EmptyReplyErrors(t *testing.T) {
	m := &fakeModel{reply: "   "}
	s := NewService(m, nil)
	if _, err := s.Analyze(context.Background(), "q", nil, nil, TierRules{}, nil); err == nil {
		t.Error("expected error for empty analysis")
	}
}

func TestSynthesize_StripsFences(t *testing.T) {
	m := &fakeModel{reply: "```\nThis year beat last year by 200.\n```"}
	s := NewService(m, nil)

	text, err := s.Synthesize(context.Background(), "compare years", nil, TierRules{MaxWords: 180})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "This year beat last year by 200." {
		t.Errorf("text = %q", text)
	}
}

func TestGenerate_ModelErrorSurfaces(t *testing.T) {
	m := &fakeModel{err: errors.New("upstream 503")}
	s := NewService(m, nil)

	_, err := s.PlanSQL(context.Background(), "q", testHandles())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model call") {
		t.Errorf("error = %v, want model call wrapping", err)
	}
}
