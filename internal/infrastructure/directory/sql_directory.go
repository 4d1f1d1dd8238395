// Package directory provides a SQL-backed Organization Directory adapter.
// The engine only consumes the port interface; this implementation reads
// the employees, companies, policy_steps and role_holders tables.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// SQLDirectory implements port.Directory
type SQLDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLDirectory creates a new SQL-backed directory
func NewSQLDirectory(db *sql.DB, logger *zap.Logger) port.Directory {
	return &SQLDirectory{
		db:     db,
		logger: logger,
	}
}

// GetEmployee retrieves one employee's directory snapshot
func (d *SQLDirectory) GetEmployee(ctx context.Context, employeeID int64) (*entity.Employee, error) {
	query := `
		SELECT id, name, role, company_id, manager_id, is_manager_approver
		FROM employees
		WHERE id = ?
	`

	var employee entity.Employee
	var role string
	var managerID sql.NullInt64

	err := d.db.QueryRowContext(ctx, query, employeeID).Scan(
		&employee.ID,
		&employee.Name,
		&role,
		&employee.CompanyID,
		&managerID,
		&employee.IsManagerApprover,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		d.logger.Error("Failed to get employee", zap.Int64("id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	employee.Role = entity.Role(role)
	if managerID.Valid {
		employee.ManagerID = &managerID.Int64
	}

	return &employee, nil
}

// GetPolicy retrieves a company's approval policy, nil when the company is
// unknown. A known company with no policy steps yields an empty policy.
func (d *SQLDirectory) GetPolicy(ctx context.Context, companyID int64) (*entity.ApprovalPolicy, error) {
	var baseCurrency string
	err := d.db.QueryRowContext(ctx,
		`SELECT base_currency FROM companies WHERE id = ?`, companyID,
	).Scan(&baseCurrency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		d.logger.Error("Failed to get company", zap.Int64("id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	policy := &entity.ApprovalPolicy{
		CompanyID:    companyID,
		BaseCurrency: baseCurrency,
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT role, min_amount
		FROM policy_steps
		WHERE company_id = ?
		ORDER BY step_order ASC
	`, companyID)
	if err != nil {
		d.logger.Error("Failed to get policy steps", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get policy steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var minAmount sql.NullString

		if err := rows.Scan(&role, &minAmount); err != nil {
			return nil, fmt.Errorf("failed to scan policy step: %w", err)
		}

		step := entity.PolicyStep{Role: entity.Role(role)}
		if minAmount.Valid {
			amount, err := decimal.NewFromString(minAmount.String)
			if err != nil {
				return nil, fmt.Errorf("invalid policy threshold %q: %w", minAmount.String, err)
			}
			step.MinAmount = &amount
		}

		policy.Steps = append(policy.Steps, step)
	}

	return policy, rows.Err()
}

// ResolveRoleHolder resolves the employee holding a role for a company.
// Zero with nil error means nobody holds the role.
func (d *SQLDirectory) ResolveRoleHolder(ctx context.Context, companyID int64, role entity.Role) (int64, error) {
	query := `
		SELECT employee_id
		FROM role_holders
		WHERE company_id = ? AND role = ?
	`

	var employeeID int64
	err := d.db.QueryRowContext(ctx, query, companyID, role.String()).Scan(&employeeID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		d.logger.Error("Failed to resolve role holder",
			zap.Int64("company_id", companyID),
			zap.String("role", role.String()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to resolve role holder: %w", err)
	}

	return employeeID, nil
}

// Verify interface compliance
var _ port.Directory = (*SQLDirectory)(nil)
