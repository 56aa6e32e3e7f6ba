package planner

import (
	"strings"
	"testing"

	"github.com/asklens/asklens/internal/prompt"
)

func twoStepPlan() prompt.StepPlan {
	return prompt.StepPlan{
		NeedsMultiStep: true,
		Steps: []prompt.Step{
			{Order: 1, Description: "this year", SubQuestion: "total revenue this year"},
			{Order: 2, Description: "last year", SubQuestion: "total revenue last year", DependsOn: []int{1}},
		},
	}
}

func TestVet_AcceptsSequentialPlan(t *testing.T) {
	if err := Vet(twoStepPlan(), 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVet_UnboundedCap(t *testing.T) {
	plan := prompt.StepPlan{NeedsMultiStep: true}
	for i := 1; i <= 8; i++ {
		plan.Steps = append(plan.Steps, prompt.Step{Order: i, SubQuestion: "q"})
	}
	if err := Vet(plan, 0); err != nil {
		t.Errorf("zero cap means unbounded, got: %v", err)
	}
}

func TestVet_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*prompt.StepPlan)
		cap    int
		want   string
	}{
		{
			name:   "over cap",
			mutate: func(p *prompt.StepPlan) {},
			cap:    1,
			want:   "cap is 1",
		},
		{
			name: "orders not sequential",
			mutate: func(p *prompt.StepPlan) {
				p.Steps[1].Order = 3
			},
			cap:  3,
			want: "expected 2",
		},
		{
			name: "forward dependency",
			mutate: func(p *prompt.StepPlan) {
				p.Steps[0].DependsOn = []int{2}
			},
			cap:  3,
			want: "not an earlier step",
		},
		{
			name: "self dependency",
			mutate: func(p *prompt.StepPlan) {
				p.Steps[1].DependsOn = []int{2}
			},
			cap:  3,
			want: "not an earlier step",
		},
		{
			name: "missing sub-question",
			mutate: func(p *prompt.StepPlan) {
				p.Steps[0].SubQuestion = ""
			},
			cap:  3,
			want: "no sub-question",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := twoStepPlan()
			tt.mutate(&plan)
			err := Vet(plan, tt.cap)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}
