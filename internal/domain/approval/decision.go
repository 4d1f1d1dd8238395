package approval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/workflow"
)

// Decision is one approver's verdict on a specific step.
type Decision struct {
	ActorID   int64
	StepOrder int
	Approve   bool
	Comment   string
	DecidedAt time.Time
}

// CurrentStep returns the lowest-order step still pending, or nil when no
// step awaits a decision. For a non-terminal expense there is exactly one
// current step.
func CurrentStep(steps []*entity.ApprovalStep) *entity.ApprovalStep {
	var current *entity.ApprovalStep
	for _, s := range steps {
		if s.Status != entity.StepStatusPending {
			continue
		}
		if current == nil || s.StepOrder < current.StepOrder {
			current = s
		}
	}
	return current
}

// Apply validates a decision against the expense's current step and applies
// it in memory, updating the step, any short-circuited later steps, and the
// expense status. The caller persists the mutated records.
//
// Rejection is final and immediate: the step is marked REJECTED, all later
// pending steps are SKIPPED, and the expense terminates REJECTED. Approval
// either advances the chain or, when no pending step remains, terminates
// the expense APPROVED.
func Apply(ctx context.Context, expense *entity.Expense, steps []*entity.ApprovalStep, d Decision) error {
	if expense.IsFinal() {
		return fmt.Errorf("%w: expense %d is %s", ErrExpenseAlreadyFinal, expense.ID, expense.Status)
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })

	current := CurrentStep(steps)
	if current == nil {
		return fmt.Errorf("%w: expense %d has no pending step", ErrNotCurrentStep, expense.ID)
	}
	if d.StepOrder != current.StepOrder {
		return fmt.Errorf("%w: step %d, current is %d", ErrNotCurrentStep, d.StepOrder, current.StepOrder)
	}
	if d.ActorID != current.ApproverID {
		return fmt.Errorf("%w: actor %d, step %d requires %d", ErrUnauthorized, d.ActorID, d.StepOrder, current.ApproverID)
	}

	machine := BuildExpenseStateMachine(workflow.State(expense.Status))

	decidedAt := d.DecidedAt
	if d.Approve {
		current.Status = entity.StepStatusApproved
		current.Comment = d.Comment
		current.DecidedAt = &decidedAt

		remaining := 0
		for _, s := range steps {
			if s.Status == entity.StepStatusPending {
				remaining++
			}
		}
		if err := machine.Fire(WithRemainingPending(ctx, remaining), workflow.TriggerApprove); err != nil {
			return err
		}
	} else {
		current.Status = entity.StepStatusRejected
		current.Comment = d.Comment
		current.DecidedAt = &decidedAt

		for _, s := range steps {
			if s.StepOrder > current.StepOrder && s.Status == entity.StepStatusPending {
				s.Status = entity.StepStatusSkipped
			}
		}
		if err := machine.Fire(ctx, workflow.TriggerReject); err != nil {
			return err
		}
	}

	expense.Status = machine.State().String()
	return nil
}

// AutoApprove terminates an expense whose chain has no pending steps.
// It is the orchestrator's explicit terminal policy for empty or
// all-skipped chains, not a hang state.
func AutoApprove(ctx context.Context, expense *entity.Expense, steps []*entity.ApprovalStep) error {
	if expense.IsFinal() {
		return fmt.Errorf("%w: expense %d is %s", ErrExpenseAlreadyFinal, expense.ID, expense.Status)
	}
	if HasPending(steps) {
		return fmt.Errorf("%w: expense %d still has pending steps", workflow.ErrGuardFailed, expense.ID)
	}

	machine := BuildExpenseStateMachine(workflow.State(expense.Status))
	if err := machine.Fire(ctx, workflow.TriggerAutoApprove); err != nil {
		return err
	}

	expense.Status = machine.State().String()
	return nil
}
