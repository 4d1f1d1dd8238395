package approval

import "errors"

var (
	// ErrPolicyNotConfigured is returned when a company has no approval
	// policy at all, as opposed to a policy whose roles resolve to nobody.
	ErrPolicyNotConfigured = errors.New("approval policy not configured")

	// ErrNotCurrentStep is returned when a decision targets a step that is
	// not the current step. Decisions on already-decided or future steps
	// fail, they are never silently ignored.
	ErrNotCurrentStep = errors.New("not the current approval step")

	// ErrUnauthorized is returned when the acting user is not the resolved
	// approver for the current step.
	ErrUnauthorized = errors.New("actor is not the required approver")

	// ErrExpenseAlreadyFinal is returned for decisions on an expense that
	// already reached a terminal disposition.
	ErrExpenseAlreadyFinal = errors.New("expense already final")

	// ErrDirectoryUnavailable is returned when the organization directory
	// cannot be reached or fails mid-lookup.
	ErrDirectoryUnavailable = errors.New("organization directory unavailable")
)
