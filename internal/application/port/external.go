package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// RateProvider supplies point-in-time exchange rates. Implementations are
// expected to be bounded synchronous calls; failures surface to the caller,
// never a fabricated rate.
type RateProvider interface {
	Rate(ctx context.Context, from, to string, at time.Time) (decimal.Decimal, error)
}

// Directory supplies organizational data: who an employee is, who they
// report to, and the company's approval policy. The engine reads snapshots
// per operation and never caches directory data across calls.
type Directory interface {
	GetEmployee(ctx context.Context, employeeID int64) (*entity.Employee, error)
	GetPolicy(ctx context.Context, companyID int64) (*entity.ApprovalPolicy, error)
	ResolveRoleHolder(ctx context.Context, companyID int64, role entity.Role) (int64, error)
}
