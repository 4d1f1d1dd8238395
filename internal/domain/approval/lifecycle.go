package approval

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/workflow"
)

type contextKey string

const remainingPendingKey contextKey = "remaining_pending"

// WithRemainingPending annotates ctx with the number of steps that would
// still be pending after the current decision. The lifecycle machine's
// approval guard reads it to pick between staying pending and terminating.
func WithRemainingPending(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, remainingPendingKey, n)
}

func remainingPending(ctx context.Context) int {
	if n, ok := ctx.Value(remainingPendingKey).(int); ok {
		return n
	}
	return 0
}

// BuildExpenseStateMachine creates a state machine configured for the
// expense approval lifecycle. APPROVED and REJECTED are terminal.
func BuildExpenseStateMachine(initialState workflow.State) workflow.StateMachine {
	builder := workflow.NewBuilder()

	// PENDING state transitions. Approval terminates only when no pending
	// step remains; registration order matters, the guarded transition is
	// evaluated first.
	builder.Configure(workflow.StatePending).
		PermitIf(workflow.TriggerApprove, workflow.StateApproved, func(ctx context.Context) bool {
			return remainingPending(ctx) == 0
		}).
		Permit(workflow.TriggerApprove, workflow.StatePending).
		Permit(workflow.TriggerReject, workflow.StateRejected).
		Permit(workflow.TriggerAutoApprove, workflow.StateApproved)

	return builder.Build(initialState)
}
