package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

const stepColumns = `
	id, expense_id, step_order, approver_id, role, status,
	comment, decided_at, created_at
`

// CreateBatch inserts a chain of steps. Callers run this inside the same
// transaction that creates the owning expense.
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (
			expense_id, step_order, approver_id, role, status, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.getExecutor(ctx)
	for _, step := range steps {
		result, err := exec.ExecContext(ctx, query,
			step.ExpenseID,
			step.StepOrder,
			step.ApproverID,
			step.Role.String(),
			step.Status,
			step.Comment,
			step.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create approval step",
				zap.Int64("expense_id", step.ExpenseID),
				zap.Int("step_order", step.StepOrder),
				zap.Error(err))
			return fmt.Errorf("failed to create step %d: %w", step.StepOrder, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.ID = id
	}

	return nil
}

// GetByExpenseID retrieves all steps of an expense ordered by step order
func (r *StepRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps
		WHERE expense_id = ?
		ORDER BY step_order ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get steps", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

// UpdateDecision persists a decided step's outcome
func (r *StepRepository) UpdateDecision(ctx context.Context, step *entity.ApprovalStep) error {
	query := `
		UPDATE approval_steps
		SET status = ?, comment = ?, decided_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		step.Status,
		step.Comment,
		step.DecidedAt,
		step.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update step decision", zap.Int64("id", step.ID), zap.Error(err))
		return fmt.Errorf("failed to update step: %w", err)
	}

	return nil
}

// SkipPendingAfter marks later pending steps of the expense as skipped
func (r *StepRepository) SkipPendingAfter(ctx context.Context, expenseID int64, stepOrder int) error {
	query := `
		UPDATE approval_steps
		SET status = ?
		WHERE expense_id = ? AND step_order > ? AND status = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.StepStatusSkipped, expenseID, stepOrder, entity.StepStatusPending)
	if err != nil {
		r.logger.Error("Failed to skip later steps", zap.Int64("expense_id", expenseID), zap.Error(err))
		return fmt.Errorf("failed to skip steps: %w", err)
	}

	return nil
}

// ListPendingByApprover returns steps currently awaiting the approver.
// A pending step counts as current only when no lower-order step of the
// same expense is still pending.
func (r *StepRepository) ListPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps s
		WHERE s.approver_id = ?
		  AND s.status = ?
		  AND NOT EXISTS (
			SELECT 1 FROM approval_steps p
			WHERE p.expense_id = s.expense_id
			  AND p.step_order < s.step_order
			  AND p.status = ?
		  )
		ORDER BY s.created_at ASC, s.step_order ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query,
		approverID, entity.StepStatusPending, entity.StepStatusPending)
	if err != nil {
		r.logger.Error("Failed to list pending steps", zap.Int64("approver_id", approverID), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending steps: %w", err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

func scanSteps(rows *sql.Rows) ([]*entity.ApprovalStep, error) {
	var steps []*entity.ApprovalStep
	for rows.Next() {
		var step entity.ApprovalStep
		var role string
		var decidedAt sql.NullTime

		err := rows.Scan(
			&step.ID,
			&step.ExpenseID,
			&step.StepOrder,
			&step.ApproverID,
			&role,
			&step.Status,
			&step.Comment,
			&decidedAt,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		step.Role = entity.Role(role)
		if decidedAt.Valid {
			step.DecidedAt = &decidedAt.Time
		}

		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *StepRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
