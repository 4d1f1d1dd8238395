package entity

import "github.com/shopspring/decimal"

// Role is the closed set of directory roles used for chain construction.
// The decision logic never branches on role name, only on resolved
// approver identity; roles exist solely for policy and directory lookups.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleFinance  Role = "finance"
	RoleDirector Role = "director"
	RoleAdmin    Role = "admin"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleFinance:  true,
	RoleDirector: true,
	RoleAdmin:    true,
}

// IsValid returns true if the role is one of the defined constants.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Employee is a directory snapshot of one employee. The engine reads
// snapshots per operation and never caches them across calls.
type Employee struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	CompanyID int64  `json:"company_id"`

	// ManagerID is nil when no manager is on file.
	ManagerID *int64 `json:"manager_id,omitempty"`

	// IsManagerApprover marks whether the direct manager participates in
	// this employee's approval chains.
	IsManagerApprover bool `json:"is_manager_approver"`
}

// PolicyStep is one required role in a company's approval policy.
// MinAmount, when set, gates the step on the normalized amount: the step
// is only materialized for expenses at or above the threshold.
type PolicyStep struct {
	Role      Role             `json:"role"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
}

// ApprovalPolicy is a company's configured approval chain policy.
type ApprovalPolicy struct {
	CompanyID    int64        `json:"company_id"`
	BaseCurrency string       `json:"base_currency"`
	Steps        []PolicyStep `json:"steps"`
}
