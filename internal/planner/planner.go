// Package planner decides how a question gets answered: single statement,
// a vetted multi-step plan, or — for vague questions — a deterministic
// default-insight statement built straight from the schema.
package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/prompt"
	"github.com/asklens/asklens/internal/source"
	"github.com/asklens/asklens/internal/tier"
)

// Planner vets the model's multi-step decisions. Single-step is the
// default: any vetting failure collapses the plan back to one step.
type Planner struct {
	prompts *prompt.Service
	log     *zap.Logger
}

func New(prompts *prompt.Service, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{prompts: prompts, log: log}
}

// Plan asks the model whether the question needs decomposition and vets
// the result against the tier's step cap and dependency rules.
func (p *Planner) Plan(ctx context.Context, question string, handles []source.TableHandle, limits tier.Limits) (prompt.StepPlan, error) {
	raw, err := p.prompts.PlanMultiStep(ctx, question, handles, limits.MaxSubSteps)
	if err != nil {
		return prompt.StepPlan{}, err
	}
	if !raw.NeedsMultiStep || len(raw.Steps) < 2 {
		return prompt.StepPlan{}, nil
	}
	if err := Vet(raw, limits.MaxSubSteps); err != nil {
		p.log.Debug("rejecting multi-step plan", zap.Error(err), zap.String("question", question))
		return prompt.StepPlan{}, nil
	}
	return raw, nil
}

// Vet enforces the structural rules on a multi-step plan: step count under
// the cap, orders strictly sequential from 1, and dependsOn referencing
// only earlier steps — which also rules out cycles.
func Vet(plan prompt.StepPlan, maxSubSteps int) error {
	if maxSubSteps > 0 && len(plan.Steps) > maxSubSteps {
		return fmt.Errorf("plan has %d steps; cap is %d", len(plan.Steps), maxSubSteps)
	}
	for i, step := range plan.Steps {
		if step.Order != i+1 {
			return fmt.Errorf("step %d has order %d; expected %d", i, step.Order, i+1)
		}
		if step.SubQuestion == "" {
			return fmt.Errorf("step %d has no sub-question", step.Order)
		}
		for _, dep := range step.DependsOn {
			if dep < 1 || dep >= step.Order {
				return fmt.Errorf("step %d depends on %d, which is not an earlier step", step.Order, dep)
			}
		}
	}
	return nil
}
