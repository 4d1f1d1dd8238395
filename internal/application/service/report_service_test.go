package service

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

func reportExpense(id int64, normalized string) *entity.Expense {
	return &entity.Expense{
		ID:               id,
		EmployeeID:       10,
		CompanyID:        1,
		Amount:           decimal.RequireFromString(normalized),
		Currency:         "USD",
		NormalizedAmount: decimal.RequireFromString(normalized),
		BaseCurrency:     "USD",
		Category:         entity.CategoryTravel,
		Date:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:           entity.ExpenseStatusApproved,
	}
}

func TestReportService_ExportCompanyExpenses(t *testing.T) {
	expenseRepo := &mockExpenseRepo{
		listByCompanyFunc: func(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
			if offset > 0 {
				return nil, nil
			}
			return []*entity.Expense{
				reportExpense(1, "110.50"),
				reportExpense(2, "39.50"),
			}, nil
		},
	}

	svc := NewReportService(expenseRepo, &mockLogger{})

	f, err := svc.ExportCompanyExpenses(context.Background(), 1)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Expenses", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	firstAmount, err := f.GetCellValue("Expenses", "H2")
	require.NoError(t, err)
	assert.Equal(t, "110.5", firstAmount)

	totalLabel, err := f.GetCellValue("Expenses", "G4")
	require.NoError(t, err)
	assert.Equal(t, "Total", totalLabel)

	total, err := f.GetCellValue("Expenses", "H4")
	require.NoError(t, err)
	assert.Equal(t, "150", total)
}

func TestReportService_ExportCompanyExpenses_Empty(t *testing.T) {
	svc := NewReportService(&mockExpenseRepo{}, &mockLogger{})

	f, err := svc.ExportCompanyExpenses(context.Background(), 1)
	require.NoError(t, err)
	defer f.Close()

	totalLabel, err := f.GetCellValue("Expenses", "G2")
	require.NoError(t, err)
	assert.Equal(t, "Total", totalLabel)

	total, err := f.GetCellValue("Expenses", "H2")
	require.NoError(t, err)
	assert.Equal(t, "0", total)
}

func TestReportService_ExportCompanyExpenses_RepoError(t *testing.T) {
	expenseRepo := &mockExpenseRepo{
		listByCompanyFunc: func(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
			return nil, errors.New("db locked")
		},
	}

	svc := NewReportService(expenseRepo, &mockLogger{})

	_, err := svc.ExportCompanyExpenses(context.Background(), 1)
	assert.Error(t, err)
}
