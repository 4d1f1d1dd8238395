package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// RoleResolver resolves a policy role to the employee holding it for a
// company. A zero ID with nil error means nobody holds the role.
type RoleResolver interface {
	ResolveRoleHolder(ctx context.Context, companyID int64, role entity.Role) (int64, error)
}

// BuildChain materializes the ordered approval steps for an expense from
// the submitter's directory entry and the company policy.
//
// Policy steps are processed in order. A step gated on a normalized-amount
// threshold is omitted when the expense falls below it. A required role
// that resolves to no identity produces a SKIPPED step rather than blocking
// the chain; a submission always yields a valid (possibly empty) chain.
// Step orders come out dense: 0..n-1.
func BuildChain(
	ctx context.Context,
	employee *entity.Employee,
	policy *entity.ApprovalPolicy,
	normalizedAmount decimal.Decimal,
	resolver RoleResolver,
	now time.Time,
) ([]*entity.ApprovalStep, error) {
	if policy == nil || len(policy.Steps) == 0 {
		return nil, fmt.Errorf("%w: company %d", ErrPolicyNotConfigured, employee.CompanyID)
	}

	var steps []*entity.ApprovalStep
	order := 0

	for _, ps := range policy.Steps {
		if ps.MinAmount != nil && normalizedAmount.LessThan(*ps.MinAmount) {
			continue
		}

		approverID, err := resolveApprover(ctx, employee, ps.Role, resolver)
		if err != nil {
			return nil, err
		}

		status := entity.StepStatusPending
		if approverID == 0 {
			status = entity.StepStatusSkipped
		}

		steps = append(steps, &entity.ApprovalStep{
			StepOrder:  order,
			ApproverID: approverID,
			Role:       ps.Role,
			Status:     status,
			CreatedAt:  now,
		})
		order++
	}

	return steps, nil
}

// resolveApprover maps a required role to a concrete approver identity.
// The manager role walks the submitter's reporting line one hop and only
// resolves when the manager is flagged as an approver; every other role
// resolves to the company's configured role holder.
func resolveApprover(ctx context.Context, employee *entity.Employee, role entity.Role, resolver RoleResolver) (int64, error) {
	if role == entity.RoleManager {
		if employee.ManagerID == nil || !employee.IsManagerApprover {
			return 0, nil
		}
		return *employee.ManagerID, nil
	}

	id, err := resolver.ResolveRoleHolder(ctx, employee.CompanyID, role)
	if err != nil {
		return 0, fmt.Errorf("%w: resolve %s for company %d: %v", ErrDirectoryUnavailable, role, employee.CompanyID, err)
	}
	return id, nil
}

// HasPending reports whether any step in the chain still awaits a decision.
func HasPending(steps []*entity.ApprovalStep) bool {
	for _, s := range steps {
		if s.Status == entity.StepStatusPending {
			return true
		}
	}
	return false
}
