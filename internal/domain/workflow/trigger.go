package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerApprove records an approval on the current step. The expense
	// either stays pending (more steps remain) or terminates approved.
	TriggerApprove Trigger = "APPROVE"

	// TriggerReject records a rejection on the current step and terminates
	// the expense immediately.
	TriggerReject Trigger = "REJECT"

	// TriggerAutoApprove terminates an expense whose chain resolved to no
	// pending steps at submission time.
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
