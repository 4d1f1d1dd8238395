package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/currency"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService service.ExpenseService
	reportService  service.ReportService
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	reportService service.ReportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService: expenseService,
		reportService:  reportService,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitExpenseRequest represents the expense submission payload.
// Amount is a decimal string to avoid float truncation in transit.
type SubmitExpenseRequest struct {
	EmployeeID  int64  `json:"employee_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// DecisionRequest represents an approve/reject verdict on an expense.
// The target step is always the expense's current step; clients never
// address steps directly.
type DecisionRequest struct {
	ActorID int64  `json:"actor_id" binding:"required"`
	Approve *bool  `json:"approve" binding:"required"`
	Comment string `json:"comment"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID               int64          `json:"id"`
	EmployeeID       int64          `json:"employee_id"`
	CompanyID        int64          `json:"company_id"`
	Amount           string         `json:"amount"`
	Currency         string         `json:"currency"`
	NormalizedAmount string         `json:"normalized_amount"`
	BaseCurrency     string         `json:"base_currency"`
	Category         string         `json:"category,omitempty"`
	Description      string         `json:"description,omitempty"`
	Date             string         `json:"date"`
	Status           string         `json:"status"`
	Steps            []StepResponse `json:"steps,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

// StepResponse represents an approval step in API responses
type StepResponse struct {
	ExpenseID  int64   `json:"expense_id"`
	StepOrder  int     `json:"step_order"`
	ApproverID int64   `json:"approver_id,omitempty"`
	Role       string  `json:"role"`
	Status     string  `json:"status"`
	Comment    string  `json:"comment,omitempty"`
	DecidedAt  *string `json:"decided_at,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// SubmitExpense handles POST /api/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid submission payload", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "amount must be a decimal number",
		})
		return
	}

	var date time.Time
	if req.Date != "" {
		date, err = time.Parse(time.RFC3339, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "date must be RFC3339",
			})
			return
		}
	}

	expense, err := h.expenseService.Submit(c.Request.Context(), service.SubmitRequest{
		EmployeeID:  req.EmployeeID,
		Amount:      amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		h.respondError(c, err, "submit expense")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toExpenseResponse(expense, nil),
	})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	expense, steps, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "get expense")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toExpenseResponse(expense, steps),
	})
}

// ListExpenses handles GET /api/expenses?employee_id=
func (h *Handlers) ListExpenses(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Query("employee_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "employee_id is required",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	expenses, err := h.expenseService.ListForEmployee(c.Request.Context(), employeeID, limit, offset)
	if err != nil {
		h.respondError(c, err, "list expenses")
		return
	}

	responses := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		responses = append(responses, toExpenseResponse(e, nil))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    responses,
	})
}

// DecideExpense handles POST /api/expenses/:id/decision
func (h *Handlers) DecideExpense(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid decision payload", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	expense, err := h.expenseService.Decide(c.Request.Context(), id, req.ActorID, *req.Approve, req.Comment)
	if err != nil {
		h.respondError(c, err, "decide expense")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toExpenseResponse(expense, nil),
	})
}

// ListPendingApprovals handles GET /api/approvals/pending?actor_id=
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	actorID, err := strconv.ParseInt(c.Query("actor_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "actor_id is required",
		})
		return
	}

	steps, err := h.expenseService.ListPendingFor(c.Request.Context(), actorID)
	if err != nil {
		h.respondError(c, err, "list pending approvals")
		return
	}

	responses := make([]StepResponse, 0, len(steps))
	for _, st := range steps {
		responses = append(responses, toStepResponse(st))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    responses,
	})
}

// ExportExpenseReport handles GET /api/reports/expenses?company_id=
func (h *Handlers) ExportExpenseReport(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Query("company_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "company_id is required",
		})
		return
	}

	file, err := h.reportService.ExportCompanyExpenses(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, err, "export report")
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("expenses_company_%d_%s.xlsx", companyID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream report", "company_id", companyID, "error", err)
	}
}

// parseID extracts the :id path parameter
func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Error("Invalid expense ID", "id", idStr, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid expense ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error, op string) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, approval.ErrPolicyNotConfigured):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, approval.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, approval.ErrNotCurrentStep),
		errors.Is(err, approval.ErrExpenseAlreadyFinal):
		status = http.StatusConflict
	case errors.Is(err, approval.ErrDirectoryUnavailable),
		errors.Is(err, currency.ErrRateUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, currency.ErrInvalidAmount):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

// toExpenseResponse converts a domain expense to an API response
func toExpenseResponse(e *entity.Expense, steps []*entity.ApprovalStep) ExpenseResponse {
	resp := ExpenseResponse{
		ID:               e.ID,
		EmployeeID:       e.EmployeeID,
		CompanyID:        e.CompanyID,
		Amount:           e.Amount.String(),
		Currency:         e.Currency,
		NormalizedAmount: e.NormalizedAmount.String(),
		BaseCurrency:     e.BaseCurrency,
		Category:         e.Category,
		Description:      e.Description,
		Date:             e.Date.Format(time.RFC3339),
		Status:           e.Status,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.Format(time.RFC3339),
	}

	for _, st := range steps {
		resp.Steps = append(resp.Steps, toStepResponse(st))
	}

	return resp
}

// toStepResponse converts a domain step to an API response
func toStepResponse(st *entity.ApprovalStep) StepResponse {
	resp := StepResponse{
		ExpenseID:  st.ExpenseID,
		StepOrder:  st.StepOrder,
		ApproverID: st.ApproverID,
		Role:       string(st.Role),
		Status:     st.Status,
		Comment:    st.Comment,
	}

	if st.DecidedAt != nil {
		decided := st.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &decided
	}

	return resp
}
