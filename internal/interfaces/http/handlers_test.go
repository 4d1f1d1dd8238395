package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

type mockExpenseService struct {
	submitFunc         func(ctx context.Context, req service.SubmitRequest) (*entity.Expense, error)
	decideFunc         func(ctx context.Context, expenseID, actorID int64, approve bool, comment string) (*entity.Expense, error)
	listPendingForFunc func(ctx context.Context, actorID int64) ([]*entity.ApprovalStep, error)
	getFunc            func(ctx context.Context, expenseID int64) (*entity.Expense, []*entity.ApprovalStep, error)
	listForEmployee    func(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error)
}

func (m *mockExpenseService) Submit(ctx context.Context, req service.SubmitRequest) (*entity.Expense, error) {
	return m.submitFunc(ctx, req)
}

func (m *mockExpenseService) Decide(ctx context.Context, expenseID, actorID int64, approve bool, comment string) (*entity.Expense, error) {
	return m.decideFunc(ctx, expenseID, actorID, approve, comment)
}

func (m *mockExpenseService) ListPendingFor(ctx context.Context, actorID int64) ([]*entity.ApprovalStep, error) {
	return m.listPendingForFunc(ctx, actorID)
}

func (m *mockExpenseService) Get(ctx context.Context, expenseID int64) (*entity.Expense, []*entity.ApprovalStep, error) {
	return m.getFunc(ctx, expenseID)
}

func (m *mockExpenseService) ListForEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error) {
	return m.listForEmployee(ctx, employeeID, limit, offset)
}

type mockReportService struct {
	exportFunc func(ctx context.Context, companyID int64) (*excelize.File, error)
}

func (m *mockReportService) ExportCompanyExpenses(ctx context.Context, companyID int64) (*excelize.File, error) {
	return m.exportFunc(ctx, companyID)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(expenseSvc service.ExpenseService, reportSvc service.ReportService) *Server {
	return NewServer(DefaultServerConfig(), expenseSvc, reportSvc, nopLogger{})
}

func sampleExpense() *entity.Expense {
	return &entity.Expense{
		ID:               1,
		EmployeeID:       10,
		CompanyID:        1,
		Amount:           decimal.NewFromInt(100),
		Currency:         "EUR",
		NormalizedAmount: decimal.NewFromInt(110),
		BaseCurrency:     "USD",
		Status:           entity.ExpenseStatusPending,
		Date:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestSubmitExpense(t *testing.T) {
	svc := &mockExpenseService{
		submitFunc: func(ctx context.Context, req service.SubmitRequest) (*entity.Expense, error) {
			assert.Equal(t, int64(10), req.EmployeeID)
			assert.Equal(t, "EUR", req.Currency)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("100.50")))
			return sampleExpense(), nil
		},
	}
	server := newTestServer(svc, &mockReportService{})

	body := `{"employee_id":10,"amount":"100.50","currency":"EUR","category":"TRAVEL"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString(body))
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestSubmitExpense_BadPayload(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockReportService{})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing fields", body: `{}`},
		{name: "non-decimal amount", body: `{"employee_id":10,"amount":"abc","currency":"EUR"}`},
		{name: "bad date", body: `{"employee_id":10,"amount":"10","currency":"EUR","date":"03/10/2025"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString(tt.body))
			server.Router().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDecideExpense_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: fmt.Errorf("%w: expense 1", service.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "unauthorized", err: fmt.Errorf("%w: actor 9", approval.ErrUnauthorized), wantStatus: http.StatusForbidden},
		{name: "not current step", err: fmt.Errorf("%w: step 2", approval.ErrNotCurrentStep), wantStatus: http.StatusConflict},
		{name: "already final", err: fmt.Errorf("%w: expense 1", approval.ErrExpenseAlreadyFinal), wantStatus: http.StatusConflict},
		{name: "policy missing", err: fmt.Errorf("%w: company 1", approval.ErrPolicyNotConfigured), wantStatus: http.StatusUnprocessableEntity},
		{name: "directory down", err: fmt.Errorf("%w: employees", approval.ErrDirectoryUnavailable), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockExpenseService{
				decideFunc: func(ctx context.Context, expenseID, actorID int64, approve bool, comment string) (*entity.Expense, error) {
					return nil, tt.err
				},
			}
			server := newTestServer(svc, &mockReportService{})

			body := `{"actor_id":20,"approve":true}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/expenses/1/decision", bytes.NewBufferString(body))
			server.Router().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestDecideExpense_RejectVerdictPassedThrough(t *testing.T) {
	svc := &mockExpenseService{
		decideFunc: func(ctx context.Context, expenseID, actorID int64, approve bool, comment string) (*entity.Expense, error) {
			assert.Equal(t, int64(7), expenseID)
			assert.Equal(t, int64(20), actorID)
			assert.False(t, approve)
			assert.Equal(t, "missing receipt", comment)
			e := sampleExpense()
			e.Status = entity.ExpenseStatusRejected
			return e, nil
		},
	}
	server := newTestServer(svc, &mockReportService{})

	body := `{"actor_id":20,"approve":false,"comment":"missing receipt"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/expenses/7/decision", bytes.NewBufferString(body))
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), entity.ExpenseStatusRejected)
}

func TestGetExpense(t *testing.T) {
	svc := &mockExpenseService{
		getFunc: func(ctx context.Context, expenseID int64) (*entity.Expense, []*entity.ApprovalStep, error) {
			steps := []*entity.ApprovalStep{
				{ExpenseID: expenseID, StepOrder: 0, ApproverID: 20, Role: entity.RoleManager, Status: entity.StepStatusPending},
			}
			return sampleExpense(), steps, nil
		},
	}
	server := newTestServer(svc, &mockReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/expenses/1", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"step_order":0`)
}

func TestGetExpense_InvalidID(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/expenses/abc", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPendingApprovals(t *testing.T) {
	svc := &mockExpenseService{
		listPendingForFunc: func(ctx context.Context, actorID int64) ([]*entity.ApprovalStep, error) {
			assert.Equal(t, int64(20), actorID)
			return []*entity.ApprovalStep{
				{ExpenseID: 1, StepOrder: 0, ApproverID: 20, Role: entity.RoleManager, Status: entity.StepStatusPending},
				{ExpenseID: 5, StepOrder: 1, ApproverID: 20, Role: entity.RoleFinance, Status: entity.StepStatusPending},
			}, nil
		},
	}
	server := newTestServer(svc, &mockReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/approvals/pending?actor_id=20", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    []StepResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(1), resp.Data[0].ExpenseID)
	assert.Equal(t, int64(5), resp.Data[1].ExpenseID)
}

func TestListPendingApprovals_MissingActor(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/approvals/pending", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportExpenseReport(t *testing.T) {
	report := &mockReportService{
		exportFunc: func(ctx context.Context, companyID int64) (*excelize.File, error) {
			assert.Equal(t, int64(1), companyID)
			return excelize.NewFile(), nil
		},
	}
	server := newTestServer(&mockExpenseService{}, report)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/expenses?company_id=1", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, w.Body.Len())
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
