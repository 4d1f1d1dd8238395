package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted Type = "expense.submitted"
	TypeExpenseApproved  Type = "expense.approved"
	TypeExpenseRejected  Type = "expense.rejected"
	TypeStatusChanged    Type = "expense.status_changed"
	TypeDecisionRecorded Type = "decision.recorded"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeExpenseApproved,
		TypeExpenseRejected,
		TypeStatusChanged,
		TypeDecisionRecorded:
		return true
	default:
		return false
	}
}
