package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a submitted expense and its approval disposition.
// Amount/Currency hold the submitted values; NormalizedAmount/BaseCurrency
// are computed once at submission time and never recomputed, even if
// exchange rates change later.
type Expense struct {
	ID               int64           `json:"id"`
	EmployeeID       int64           `json:"employee_id"`
	CompanyID        int64           `json:"company_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	NormalizedAmount decimal.Decimal `json:"normalized_amount"`
	BaseCurrency     string          `json:"base_currency"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	Date             time.Time       `json:"date"`
	Status           string          `json:"status"`

	// Version guards concurrent decisions on the same expense. Every status
	// write increments it; a stale writer affects zero rows and fails.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinal reports whether the expense has reached a terminal disposition.
func (e *Expense) IsFinal() bool {
	return e.Status == ExpenseStatusApproved || e.Status == ExpenseStatusRejected
}
