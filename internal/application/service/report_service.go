package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

const reportPageSize = 200

// ReportService renders company expense reports with normalized amounts.
type ReportService interface {
	// ExportCompanyExpenses builds an xlsx workbook listing a company's
	// expenses with their normalized amounts and a base-currency total.
	ExportCompanyExpenses(ctx context.Context, companyID int64) (*excelize.File, error)
}

type reportServiceImpl struct {
	expenseRepo port.ExpenseRepository
	logger      Logger
}

// NewReportService creates a new ReportService
func NewReportService(expenseRepo port.ExpenseRepository, logger Logger) ReportService {
	return &reportServiceImpl{
		expenseRepo: expenseRepo,
		logger:      logger,
	}
}

var reportHeaders = []string{
	"ID", "Employee ID", "Category", "Description", "Date",
	"Amount", "Currency", "Normalized Amount", "Base Currency", "Status",
}

// ExportCompanyExpenses builds the expense report workbook
func (s *reportServiceImpl) ExportCompanyExpenses(ctx context.Context, companyID int64) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Expenses"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	for col, header := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}

	row := 2
	total := decimal.Zero
	baseCurrency := ""

	for offset := 0; ; offset += reportPageSize {
		expenses, err := s.expenseRepo.ListByCompany(ctx, companyID, reportPageSize, offset)
		if err != nil {
			s.logger.Error("Failed to list company expenses", "error", err, "company_id", companyID)
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		if len(expenses) == 0 {
			break
		}

		for _, e := range expenses {
			if err := s.writeExpenseRow(f, sheet, row, e); err != nil {
				return nil, err
			}
			total = total.Add(e.NormalizedAmount)
			baseCurrency = e.BaseCurrency
			row++
		}

		if len(expenses) < reportPageSize {
			break
		}
	}

	totalLabel, _ := excelize.CoordinatesToCellName(7, row)
	totalCell, _ := excelize.CoordinatesToCellName(8, row)
	if err := f.SetCellValue(sheet, totalLabel, "Total"); err != nil {
		return nil, fmt.Errorf("set total label: %w", err)
	}
	if err := f.SetCellValue(sheet, totalCell, total.String()); err != nil {
		return nil, fmt.Errorf("set total: %w", err)
	}
	if baseCurrency != "" {
		currencyCell, _ := excelize.CoordinatesToCellName(9, row)
		if err := f.SetCellValue(sheet, currencyCell, baseCurrency); err != nil {
			return nil, fmt.Errorf("set total currency: %w", err)
		}
	}

	s.logger.Info("Expense report generated", "company_id", companyID, "rows", row-2)
	return f, nil
}

func (s *reportServiceImpl) writeExpenseRow(f *excelize.File, sheet string, row int, e *entity.Expense) error {
	values := []interface{}{
		e.ID,
		e.EmployeeID,
		e.Category,
		e.Description,
		e.Date.Format("2006-01-02"),
		e.Amount.String(),
		e.Currency,
		e.NormalizedAmount.String(),
		e.BaseCurrency,
		e.Status,
	}

	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("report cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
