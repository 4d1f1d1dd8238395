package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/currency"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/observability/metrics"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SubmitRequest carries one expense submission. Date defaults to the
// submission time when zero.
type SubmitRequest struct {
	EmployeeID  int64
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Description string
	Date        time.Time
}

// ExpenseService orchestrates expense submission and approval decisions:
// it normalizes amounts, builds approval chains, persists state atomically
// and routes decisions through the approval state machine.
type ExpenseService interface {
	// Submit normalizes the amount, builds the approval chain and persists
	// the expense with its steps atomically. An empty or all-skipped chain
	// auto-approves the expense.
	Submit(ctx context.Context, req SubmitRequest) (*entity.Expense, error)

	// Decide applies the actor's verdict to the expense's current step.
	// The current step is resolved by the engine; callers never supply a
	// step order.
	Decide(ctx context.Context, expenseID, actorID int64, approve bool, comment string) (*entity.Expense, error)

	// ListPendingFor returns the steps currently awaiting the actor,
	// ordered by step creation time then step order.
	ListPendingFor(ctx context.Context, actorID int64) ([]*entity.ApprovalStep, error)

	// Get returns an expense with its full step chain.
	Get(ctx context.Context, expenseID int64) (*entity.Expense, []*entity.ApprovalStep, error)

	// ListForEmployee returns the employee's own submissions, newest first.
	ListForEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error)
}

type expenseServiceImpl struct {
	expenseRepo port.ExpenseRepository
	stepRepo    port.StepRepository
	txManager   port.TransactionManager
	directory   port.Directory
	rates       port.RateProvider
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// ServiceOption configures the expense service
type ServiceOption func(*expenseServiceImpl)

// WithDispatcher sets the event dispatcher for emitting domain events
func WithDispatcher(d dispatcher.Dispatcher) ServiceOption {
	return func(s *expenseServiceImpl) {
		s.dispatcher = d
	}
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	stepRepo port.StepRepository,
	txManager port.TransactionManager,
	directory port.Directory,
	rates port.RateProvider,
	logger Logger,
	opts ...ServiceOption,
) ExpenseService {
	s := &expenseServiceImpl{
		expenseRepo: expenseRepo,
		stepRepo:    stepRepo,
		txManager:   txManager,
		directory:   directory,
		rates:       rates,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit creates a new expense with its approval chain
func (s *expenseServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*entity.Expense, error) {
	start := time.Now()

	employee, err := s.directory.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		s.logger.Error("Failed to load employee", "error", err, "employee_id", req.EmployeeID)
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("%w: employee %d: %v", approval.ErrDirectoryUnavailable, req.EmployeeID, err)
	}
	if employee == nil {
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("%w: employee %d", ErrNotFound, req.EmployeeID)
	}

	policy, err := s.directory.GetPolicy(ctx, employee.CompanyID)
	if err != nil {
		s.logger.Error("Failed to load policy", "error", err, "company_id", employee.CompanyID)
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("%w: policy for company %d: %v", approval.ErrDirectoryUnavailable, employee.CompanyID, err)
	}
	if policy == nil {
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("%w: company %d", approval.ErrPolicyNotConfigured, employee.CompanyID)
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	normalized, err := currency.Normalize(ctx, s.rates, req.Amount, req.Currency, policy.BaseCurrency, date)
	if err != nil {
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, err
	}

	now := time.Now().UTC()
	expense := &entity.Expense{
		EmployeeID:       employee.ID,
		CompanyID:        employee.CompanyID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		NormalizedAmount: normalized,
		BaseCurrency:     policy.BaseCurrency,
		Category:         req.Category,
		Description:      req.Description,
		Date:             date,
		Status:           entity.ExpenseStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	steps, err := approval.BuildChain(ctx, employee, policy, normalized, s.directory, now)
	if err != nil {
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, err
	}

	// Empty-but-valid chain: explicit terminal policy, not a hang state.
	autoApproved := !approval.HasPending(steps)
	if autoApproved {
		if err := approval.AutoApprove(ctx, expense, steps); err != nil {
			metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
			return nil, err
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		for _, step := range steps {
			step.ExpenseID = expense.ID
		}
		if err := s.stepRepo.CreateBatch(txCtx, steps); err != nil {
			return fmt.Errorf("create steps: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist submission", "error", err, "employee_id", employee.ID)
		metrics.ObserveSubmit(metrics.ResultError, time.Since(start))
		return nil, err
	}

	s.logger.Info("Expense submitted",
		"expense_id", expense.ID,
		"employee_id", employee.ID,
		"normalized_amount", expense.NormalizedAmount.String(),
		"base_currency", expense.BaseCurrency,
		"steps", len(steps),
		"auto_approved", autoApproved,
	)
	metrics.ObserveSubmit(metrics.ResultSuccess, time.Since(start))

	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeExpenseSubmitted, expense.ID, map[string]interface{}{
			"employee_id":       expense.EmployeeID,
			"company_id":        expense.CompanyID,
			"normalized_amount": expense.NormalizedAmount.String(),
			"base_currency":     expense.BaseCurrency,
			"status":            expense.Status,
		})
		s.dispatcher.DispatchAsync(ctx, evt)

		if autoApproved {
			s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(
				event.TypeExpenseApproved, expense.ID,
				map[string]interface{}{"auto": true}, evt.CorrelationID))
		}
	}

	return expense, nil
}

// Decide applies a decision to the expense's current step
func (s *expenseServiceImpl) Decide(ctx context.Context, expenseID, actorID int64, approve bool, comment string) (*entity.Expense, error) {
	start := time.Now()

	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d", ErrNotFound, expenseID)
	}

	steps, err := s.stepRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get steps: %w", err)
	}

	// The engine resolves the current step; supplying an order number from
	// outside would allow skipping by guessing.
	stepOrder := -1
	if current := approval.CurrentStep(steps); current != nil {
		stepOrder = current.StepOrder
	}

	decision := approval.Decision{
		ActorID:   actorID,
		StepOrder: stepOrder,
		Approve:   approve,
		Comment:   comment,
		DecidedAt: time.Now().UTC(),
	}

	if err := approval.Apply(ctx, expense, steps, decision); err != nil {
		metrics.ObserveDecision(approve, metrics.ResultError, time.Since(start))
		return nil, err
	}

	var decided *entity.ApprovalStep
	for _, st := range steps {
		if st.StepOrder == stepOrder {
			decided = st
			break
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stepRepo.UpdateDecision(txCtx, decided); err != nil {
			return fmt.Errorf("update step: %w", err)
		}
		if expense.Status == entity.ExpenseStatusRejected {
			if err := s.stepRepo.SkipPendingAfter(txCtx, expense.ID, decided.StepOrder); err != nil {
				return fmt.Errorf("skip later steps: %w", err)
			}
		}

		// Version check serializes concurrent decisions on one expense:
		// the losing writer observes a stale version and fails cleanly.
		ok, err := s.expenseRepo.UpdateStatusVersioned(txCtx, expense.ID, expense.Status, expense.Version)
		if err != nil {
			return fmt.Errorf("update expense status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: expense %d was decided concurrently", approval.ErrNotCurrentStep, expense.ID)
		}
		return nil
	})
	if err != nil {
		metrics.ObserveDecision(approve, metrics.ResultError, time.Since(start))
		return nil, err
	}
	expense.Version++

	s.logger.Info("Decision recorded",
		"expense_id", expense.ID,
		"actor_id", actorID,
		"step_order", decided.StepOrder,
		"approve", approve,
		"status", expense.Status,
	)
	metrics.ObserveDecision(approve, metrics.ResultSuccess, time.Since(start))

	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeDecisionRecorded, expense.ID, map[string]interface{}{
			"actor_id":   actorID,
			"step_order": decided.StepOrder,
			"approve":    approve,
			"status":     expense.Status,
		})
		s.dispatcher.DispatchAsync(ctx, evt)

		if expense.Status != entity.ExpenseStatusPending {
			s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(
				event.TypeStatusChanged, expense.ID,
				map[string]interface{}{"from": entity.ExpenseStatusPending, "to": expense.Status},
				evt.CorrelationID))
		}

		switch expense.Status {
		case entity.ExpenseStatusApproved:
			s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(
				event.TypeExpenseApproved, expense.ID, nil, evt.CorrelationID))
		case entity.ExpenseStatusRejected:
			s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(
				event.TypeExpenseRejected, expense.ID, nil, evt.CorrelationID))
		}
	}

	return expense, nil
}

// ListPendingFor returns steps currently awaiting the actor
func (s *expenseServiceImpl) ListPendingFor(ctx context.Context, actorID int64) ([]*entity.ApprovalStep, error) {
	steps, err := s.stepRepo.ListPendingByApprover(ctx, actorID)
	if err != nil {
		s.logger.Error("Failed to list pending steps", "error", err, "actor_id", actorID)
		return nil, err
	}
	return steps, nil
}

// Get retrieves an expense and its step chain
func (s *expenseServiceImpl) Get(ctx context.Context, expenseID int64) (*entity.Expense, []*entity.ApprovalStep, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, nil, fmt.Errorf("%w: expense %d", ErrNotFound, expenseID)
	}

	steps, err := s.stepRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get steps: %w", err)
	}

	return expense, steps, nil
}

// ListForEmployee retrieves the employee's own submissions
func (s *expenseServiceImpl) ListForEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error) {
	expenses, err := s.expenseRepo.ListByEmployee(ctx, employeeID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "employee_id", employeeID)
		return nil, err
	}
	return expenses, nil
}
