package entity

// Status constants for Expense
const (
	ExpenseStatusPending  = "PENDING"
	ExpenseStatusApproved = "APPROVED"
	ExpenseStatusRejected = "REJECTED"
)

// Status constants for ApprovalStep
const (
	StepStatusPending  = "PENDING"
	StepStatusApproved = "APPROVED"
	StepStatusRejected = "REJECTED"
	StepStatusSkipped  = "SKIPPED"
)

// Category constants for Expense
const (
	CategoryTravel         = "TRAVEL"
	CategoryMeal           = "MEAL"
	CategoryAccommodation  = "ACCOMMODATION"
	CategoryEquipment      = "EQUIPMENT"
	CategoryTransportation = "TRANSPORTATION"
	CategoryEntertainment  = "ENTERTAINMENT"
	CategoryCommunication  = "COMMUNICATION"
	CategoryOther          = "OTHER"
)
