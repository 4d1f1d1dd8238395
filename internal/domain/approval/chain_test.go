package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

type stubResolver struct {
	holders map[entity.Role]int64
	err     error
}

func (r *stubResolver) ResolveRoleHolder(ctx context.Context, companyID int64, role entity.Role) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.holders[role], nil
}

func int64Ptr(v int64) *int64 { return &v }

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testEmployee() *entity.Employee {
	return &entity.Employee{
		ID:                10,
		Name:              "Dana",
		Role:              entity.RoleEmployee,
		CompanyID:         1,
		ManagerID:         int64Ptr(20),
		IsManagerApprover: true,
	}
}

func testPolicy(steps ...entity.PolicyStep) *entity.ApprovalPolicy {
	return &entity.ApprovalPolicy{
		CompanyID:    1,
		BaseCurrency: "USD",
		Steps:        steps,
	}
}

func TestBuildChain_OrderedSteps(t *testing.T) {
	resolver := &stubResolver{holders: map[entity.Role]int64{
		entity.RoleFinance:  30,
		entity.RoleDirector: 40,
	}}
	policy := testPolicy(
		entity.PolicyStep{Role: entity.RoleManager},
		entity.PolicyStep{Role: entity.RoleFinance},
		entity.PolicyStep{Role: entity.RoleDirector},
	)
	now := time.Now().UTC()

	steps, err := BuildChain(context.Background(), testEmployee(), policy, decimal.NewFromInt(500), resolver, now)

	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, 0, steps[0].StepOrder)
	assert.Equal(t, int64(20), steps[0].ApproverID)
	assert.Equal(t, entity.RoleManager, steps[0].Role)
	assert.Equal(t, entity.StepStatusPending, steps[0].Status)

	assert.Equal(t, 1, steps[1].StepOrder)
	assert.Equal(t, int64(30), steps[1].ApproverID)

	assert.Equal(t, 2, steps[2].StepOrder)
	assert.Equal(t, int64(40), steps[2].ApproverID)
}

func TestBuildChain_PolicyNotConfigured(t *testing.T) {
	resolver := &stubResolver{}

	t.Run("nil policy", func(t *testing.T) {
		_, err := BuildChain(context.Background(), testEmployee(), nil, decimal.NewFromInt(100), resolver, time.Now())
		assert.ErrorIs(t, err, ErrPolicyNotConfigured)
	})

	t.Run("policy without steps", func(t *testing.T) {
		_, err := BuildChain(context.Background(), testEmployee(), testPolicy(), decimal.NewFromInt(100), resolver, time.Now())
		assert.ErrorIs(t, err, ErrPolicyNotConfigured)
	})
}

func TestBuildChain_ThresholdGating(t *testing.T) {
	resolver := &stubResolver{holders: map[entity.Role]int64{
		entity.RoleFinance:  30,
		entity.RoleDirector: 40,
	}}
	policy := testPolicy(
		entity.PolicyStep{Role: entity.RoleFinance},
		entity.PolicyStep{Role: entity.RoleDirector, MinAmount: decimalPtr("1000")},
	)

	t.Run("below threshold omits the step and re-densifies orders", func(t *testing.T) {
		steps, err := BuildChain(context.Background(), testEmployee(), policy, decimal.RequireFromString("999.99"), resolver, time.Now())

		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, entity.RoleFinance, steps[0].Role)
		assert.Equal(t, 0, steps[0].StepOrder)
	})

	t.Run("at threshold includes the step", func(t *testing.T) {
		steps, err := BuildChain(context.Background(), testEmployee(), policy, decimal.NewFromInt(1000), resolver, time.Now())

		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, entity.RoleDirector, steps[1].Role)
		assert.Equal(t, 1, steps[1].StepOrder)
	})
}

func TestBuildChain_ManagerResolution(t *testing.T) {
	resolver := &stubResolver{}
	policy := testPolicy(entity.PolicyStep{Role: entity.RoleManager})

	t.Run("no manager on file skips the step", func(t *testing.T) {
		employee := testEmployee()
		employee.ManagerID = nil

		steps, err := BuildChain(context.Background(), employee, policy, decimal.NewFromInt(100), resolver, time.Now())

		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, entity.StepStatusSkipped, steps[0].Status)
		assert.Zero(t, steps[0].ApproverID)
	})

	t.Run("manager not flagged as approver skips the step", func(t *testing.T) {
		employee := testEmployee()
		employee.IsManagerApprover = false

		steps, err := BuildChain(context.Background(), employee, policy, decimal.NewFromInt(100), resolver, time.Now())

		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, entity.StepStatusSkipped, steps[0].Status)
	})
}

func TestBuildChain_UnresolvableRoleSkips(t *testing.T) {
	// Finance resolves, director has no holder configured.
	resolver := &stubResolver{holders: map[entity.Role]int64{entity.RoleFinance: 30}}
	policy := testPolicy(
		entity.PolicyStep{Role: entity.RoleFinance},
		entity.PolicyStep{Role: entity.RoleDirector},
	)

	steps, err := BuildChain(context.Background(), testEmployee(), policy, decimal.NewFromInt(100), resolver, time.Now())

	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, entity.StepStatusPending, steps[0].Status)
	assert.Equal(t, entity.StepStatusSkipped, steps[1].Status)
	assert.True(t, HasPending(steps))
}

func TestBuildChain_DirectoryError(t *testing.T) {
	resolver := &stubResolver{err: errors.New("directory down")}
	policy := testPolicy(entity.PolicyStep{Role: entity.RoleFinance})

	_, err := BuildChain(context.Background(), testEmployee(), policy, decimal.NewFromInt(100), resolver, time.Now())

	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestHasPending(t *testing.T) {
	assert.False(t, HasPending(nil))
	assert.False(t, HasPending([]*entity.ApprovalStep{
		{Status: entity.StepStatusSkipped},
		{Status: entity.StepStatusApproved},
	}))
	assert.True(t, HasPending([]*entity.ApprovalStep{
		{Status: entity.StepStatusSkipped},
		{Status: entity.StepStatusPending},
	}))
}
