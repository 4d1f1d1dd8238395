package entity

import "time"

// ApprovalStep is one ordered checkpoint in an expense's approval chain.
// Steps are created together with their expense and mutate only through
// decision handling; StepOrder is 0-based and dense per expense.
type ApprovalStep struct {
	ID         int64  `json:"id"`
	ExpenseID  int64  `json:"expense_id"`
	StepOrder  int    `json:"step_order"`
	ApproverID int64  `json:"approver_id"`
	Role       Role   `json:"role"`
	Status     string `json:"status"`

	// Set only on transition out of PENDING.
	Comment   string     `json:"comment,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsDecided reports whether the step has left the PENDING state.
func (s *ApprovalStep) IsDecided() bool {
	return s.Status != StepStatusPending
}
