package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// PlanFSM wraps an installment plan with its state machine
type PlanFSM struct {
	plan *models.Plan
	fsm  *fsm.FSM
}

// NewPlanFSM creates a new plan state machine
func NewPlanFSM(plan *models.Plan) *PlanFSM {
	pfsm := &PlanFSM{
		plan: plan,
	}

	pfsm.fsm = fsm.NewFSM(
		plan.Status,
		fsm.Events{
			// active → completed (automatic, when balance reaches zero)
			{Name: "complete", Src: []string{models.PlanStatusActive}, Dst: models.PlanStatusCompleted},

			// active/completed → cancelled
			{Name: "cancel", Src: []string{models.PlanStatusActive, models.PlanStatusCompleted}, Dst: models.PlanStatusCancelled},

			// cancelled → active (reactivate with outstanding balance)
			{Name: "reactivate", Src: []string{models.PlanStatusCancelled}, Dst: models.PlanStatusActive},

			// cancelled → completed (reactivate with balance already at zero)
			{Name: "reactivate_completed", Src: []string{models.PlanStatusCancelled}, Dst: models.PlanStatusCompleted},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Complete transitions the plan to completed state
func (p *PlanFSM) Complete(ctx context.Context) error {
	if !p.plan.MayComplete() {
		return fmt.Errorf("plan cannot be completed in current state: %s", p.plan.Status)
	}

	if err := p.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete plan: %w", err)
	}

	p.plan.Status = p.fsm.Current()
	return nil
}

// Cancel transitions the plan to cancelled state
func (p *PlanFSM) Cancel(ctx context.Context) error {
	if !p.plan.MayCancel() {
		return fmt.Errorf("plan cannot be cancelled in current state: %s", p.plan.Status)
	}

	if err := p.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel plan: %w", err)
	}

	p.plan.Status = p.fsm.Current()
	return nil
}

// Reactivate transitions the plan out of cancelled. The destination
// depends on the balance at reactivation time: zero balance goes
// straight to completed, anything outstanding returns to active.
func (p *PlanFSM) Reactivate(ctx context.Context, balanceSettled bool) error {
	if !p.plan.MayReactivate() {
		return fmt.Errorf("plan cannot be reactivated in current state: %s", p.plan.Status)
	}

	event := "reactivate"
	if balanceSettled {
		event = "reactivate_completed"
	}

	if err := p.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("failed to reactivate plan: %w", err)
	}

	p.plan.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PlanFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PlanFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
