package port

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error)
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error)

	// UpdateStatusVersioned writes the status only when the stored version
	// still matches expectedVersion, incrementing it. Returns false when a
	// concurrent writer got there first.
	UpdateStatusVersioned(ctx context.Context, id int64, status string, expectedVersion int64) (bool, error)
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error)

	// UpdateDecision persists a decided step's status, comment and time.
	UpdateDecision(ctx context.Context, step *entity.ApprovalStep) error

	// SkipPendingAfter marks all pending steps of the expense with a higher
	// order as skipped (rejection short-circuit).
	SkipPendingAfter(ctx context.Context, expenseID int64, stepOrder int) error

	// ListPendingByApprover returns steps currently awaiting the approver,
	// ordered by step creation time then step order, ascending.
	ListPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
