package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/repository"
	customError "github.com/fintecol/prestamos-engine/pkg/errors"
	"github.com/fintecol/prestamos-engine/tests/mocks"
)

type loanServiceMocks struct {
	clientRepo      *mocks.MockClientRepository
	loanRepo        *mocks.MockLoanRepository
	installmentRepo *mocks.MockInstallmentRepository
	prepaymentRepo  *mocks.MockPrepaymentRepository
}

func newLoanService() (*LoanService, *loanServiceMocks) {
	m := &loanServiceMocks{
		clientRepo:      new(mocks.MockClientRepository),
		loanRepo:        new(mocks.MockLoanRepository),
		installmentRepo: new(mocks.MockInstallmentRepository),
		prepaymentRepo:  new(mocks.MockPrepaymentRepository),
	}
	resolver := NewStatusResolver(m.loanRepo, m.installmentRepo, m.prepaymentRepo, nil)
	svc := NewLoanService(m.clientRepo, m.loanRepo, m.installmentRepo, m.prepaymentRepo, resolver, NopNotifier{}, nil)
	return svc, m
}

func testClient(code string) *domain.Client {
	return &domain.Client{
		ID:     uuid.New(),
		Codigo: code,
		Nombre: "Ana Pérez",
	}
}

func TestCreateAutoLoan(t *testing.T) {
	svc, m := newLoanService()

	client := testClient("001")
	m.clientRepo.On("GetByCode", mock.Anything, "001").Return(client, nil)
	m.loanRepo.On("CreateWithInstallments", mock.Anything,
		mock.MatchedBy(func(loan *domain.Loan) bool {
			return loan.PlanMode == domain.PlanModeAuto && loan.ClientCode == "001"
		}),
		mock.MatchedBy(func(installments []*domain.Installment) bool {
			return len(installments) == 3
		}),
	).Return(nil)

	request := &domain.CreateAutoLoanRequest{
		ClientCode:      "001",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 3,
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
	}

	result, err := svc.CreateAutoLoan(context.Background(), request)

	assert.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPendiente, result.Loan.Status)
	assert.Equal(t, "001", result.Client.Codigo)
	assert.Len(t, result.Installments, 3)

	expectedDue := []time.Time{
		day(2024, time.February, 15),
		day(2024, time.March, 15),
		day(2024, time.April, 15),
	}
	for i, in := range result.Installments {
		assert.Equal(t, expectedDue[i], in.DueDate)
		assert.True(t, in.PlannedInterest.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, domain.InstallmentStatusPendiente, in.Status)
	}

	m.loanRepo.AssertExpectations(t)
}

func TestCreateAutoLoanClientNotFound(t *testing.T) {
	svc, m := newLoanService()
	m.clientRepo.On("GetByCode", mock.Anything, "999").Return(nil, sql.ErrNoRows)

	request := &domain.CreateAutoLoanRequest{
		ClientCode:      "999",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 3,
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
	}

	result, err := svc.CreateAutoLoan(context.Background(), request)

	assert.Nil(t, result)
	assert.True(t, customError.IsNotFound(err))
	m.loanRepo.AssertNotCalled(t, "CreateWithInstallments")
}

func TestCreateAutoLoanRejectsBadHeader(t *testing.T) {
	svc, _ := newLoanService()

	request := &domain.CreateAutoLoanRequest{
		ClientCode:      "001",
		Principal:       decimal.Zero,
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 3,
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
	}

	_, err := svc.CreateAutoLoan(context.Background(), request)
	assert.True(t, customError.IsValidation(err))
}

func manualRequest(plan []domain.PlanEntry) *domain.CreateManualLoanRequest {
	return &domain.CreateManualLoanRequest{
		ClientCode:      "001",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: len(plan),
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
		Plan:            plan,
	}
}

func TestCreateManualLoan(t *testing.T) {
	svc, m := newLoanService()

	client := testClient("001")
	m.clientRepo.On("GetByCode", mock.Anything, "001").Return(client, nil)
	m.loanRepo.On("CreateWithInstallments", mock.Anything,
		mock.MatchedBy(func(loan *domain.Loan) bool {
			return loan.PlanMode == domain.PlanModeManual
		}),
		mock.Anything,
	).Return(nil)

	// Interest follows the flat rate on the running balance: 5% of 1000,
	// then 5% of 600.
	request := manualRequest([]domain.PlanEntry{
		{Capital: decimal.NewFromInt(400), Interest: decimal.NewFromInt(50)},
		{Capital: decimal.NewFromInt(600), Interest: decimal.NewFromInt(30)},
	})

	result, err := svc.CreateManualLoan(context.Background(), request)

	assert.NoError(t, err)
	assert.Len(t, result.Installments, 2)
	assert.True(t, result.Installments[0].PlannedCapital.Equal(decimal.NewFromInt(400)))
	assert.True(t, result.Installments[1].PlannedInterest.Equal(decimal.NewFromInt(30)))
	m.loanRepo.AssertExpectations(t)
}

func TestCreateManualLoanPlanLengthMismatch(t *testing.T) {
	svc, _ := newLoanService()

	request := manualRequest([]domain.PlanEntry{
		{Capital: decimal.NewFromInt(1000), Interest: decimal.NewFromInt(50)},
	})
	request.NumInstallments = 3

	_, err := svc.CreateManualLoan(context.Background(), request)
	assert.True(t, customError.IsValidation(err))
	assert.Contains(t, err.Error(), "exactamente 3")
}

func TestCreateManualLoanWrongInterest(t *testing.T) {
	svc, _ := newLoanService()

	// Second step owes 5% of the 600 remaining, not of the original 1000.
	request := manualRequest([]domain.PlanEntry{
		{Capital: decimal.NewFromInt(400), Interest: decimal.NewFromInt(50)},
		{Capital: decimal.NewFromInt(600), Interest: decimal.NewFromInt(50)},
	})

	_, err := svc.CreateManualLoan(context.Background(), request)
	assert.True(t, customError.IsValidation(err))
	assert.Contains(t, err.Error(), "cuota 2")
	assert.Contains(t, err.Error(), "30.00")
}

func TestCreateManualLoanCapitalShortfall(t *testing.T) {
	svc, _ := newLoanService()

	request := manualRequest([]domain.PlanEntry{
		{Capital: decimal.NewFromInt(400), Interest: decimal.NewFromInt(50)},
		{Capital: decimal.NewFromInt(500), Interest: decimal.NewFromInt(30)},
	})

	_, err := svc.CreateManualLoan(context.Background(), request)
	assert.True(t, customError.IsValidation(err))
	assert.Contains(t, err.Error(), "1000.00")
	assert.Contains(t, err.Error(), "900.00")
	assert.Contains(t, err.Error(), "100.00")
}

func autoLoan(id uuid.UUID) *domain.Loan {
	return &domain.Loan{
		ID:              id,
		ClientCode:      "001",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 3,
		StartDate:       day(2024, time.January, 15),
		PlanMode:        domain.PlanModeAuto,
		Status:          domain.LoanStatusPendiente,
	}
}

func TestUpdateAutoLoanRejectsManualMode(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)
	loan.PlanMode = domain.PlanModeManual
	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)

	request := &domain.UpdateAutoLoanRequest{
		ClientCode:      "001",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 3,
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
	}

	_, err := svc.UpdateAutoLoan(context.Background(), loanID, request)
	assert.True(t, customError.IsConflict(err))
	assert.Contains(t, err.Error(), "replan")
}

func TestUpdateAutoLoanPreservesPaidHead(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)

	paid := installment(1, day(2024, time.February, 15), "50", "0", "50", "0")
	paid.Status = domain.InstallmentStatusPagado
	open2 := installment(2, day(2024, time.March, 15), "50", "0", "0", "0")
	open3 := installment(3, day(2024, time.April, 15), "50", "0", "0", "0")

	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	m.installmentRepo.On("ListByLoan", mock.Anything, loanID).Return(
		[]*domain.Installment{paid, open2, open3}, nil)
	m.prepaymentRepo.On("SumByLoan", mock.Anything, loanID).Return(decimal.Zero, nil)
	m.clientRepo.On("GetByCode", mock.Anything, "001").Return(testClient("001"), nil)

	// Tail regenerates from installment 2, anchored at the paid one's due date.
	m.loanRepo.On("ReplaceTail", mock.Anything, mock.Anything, 1,
		mock.MatchedBy(func(tail []*domain.Installment) bool {
			return len(tail) == 3 &&
				tail[0].Number == 2 &&
				tail[2].Number == 4 &&
				tail[0].DueDate.Equal(day(2024, time.March, 15))
		}),
	).Return(nil)
	m.loanRepo.On("UpdateStatus", mock.Anything, loanID, mock.Anything).Return(nil).Maybe()
	m.installmentRepo.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	request := &domain.UpdateAutoLoanRequest{
		ClientCode:      "001",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 4,
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
	}

	updated, err := svc.UpdateAutoLoan(context.Background(), loanID, request)

	assert.NoError(t, err)
	assert.NotNil(t, updated)
	m.loanRepo.AssertExpectations(t)
}

func TestUpdateAutoLoanBelowPaidCount(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)

	paid1 := installment(1, day(2024, time.February, 15), "50", "0", "50", "0")
	paid2 := installment(2, day(2024, time.March, 15), "50", "0", "50", "0")
	open3 := installment(3, day(2024, time.April, 15), "50", "0", "0", "0")

	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	m.installmentRepo.On("ListByLoan", mock.Anything, loanID).Return(
		[]*domain.Installment{paid1, paid2, open3}, nil)
	m.prepaymentRepo.On("SumByLoan", mock.Anything, loanID).Return(decimal.Zero, nil)
	m.clientRepo.On("GetByCode", mock.Anything, "001").Return(testClient("001"), nil)

	request := &domain.UpdateAutoLoanRequest{
		ClientCode:      "001",
		Principal:       decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(5),
		Periodicity:     domain.PeriodicityMensual,
		NumInstallments: 1,
		StartDate:       domain.Date{Time: day(2024, time.January, 15)},
	}

	_, err := svc.UpdateAutoLoan(context.Background(), loanID, request)
	assert.True(t, customError.IsValidation(err))
	m.loanRepo.AssertNotCalled(t, "ReplaceTail")
}

func TestReplanRejectsAutoMode(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(autoLoan(loanID), nil)

	request := &domain.ReplanRequest{
		Plan: []domain.PlanEntry{{Capital: decimal.NewFromInt(1000), Interest: decimal.NewFromInt(50)}},
	}

	_, err := svc.Replan(context.Background(), loanID, request)
	assert.True(t, customError.IsConflict(err))
}

func TestReplanCapitalMustMatchPending(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)
	loan.PlanMode = domain.PlanModeManual

	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	m.installmentRepo.On("ListByLoan", mock.Anything, loanID).Return([]*domain.Installment{}, nil)
	m.prepaymentRepo.On("SumByLoan", mock.Anything, loanID).Return(decimal.NewFromInt(300), nil)

	// Pending capital is 700, the plan only covers 500.
	request := &domain.ReplanRequest{
		Plan: []domain.PlanEntry{{Capital: decimal.NewFromInt(500), Interest: decimal.NewFromInt(35)}},
	}

	_, err := svc.Replan(context.Background(), loanID, request)
	assert.True(t, customError.IsValidation(err))
	assert.Contains(t, err.Error(), "700.00")
	assert.Contains(t, err.Error(), "500.00")
	m.loanRepo.AssertNotCalled(t, "ReplaceTail")
}

func TestReplanReplacesUnpaidTail(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)
	loan.PlanMode = domain.PlanModeManual

	paid := installment(1, day(2024, time.February, 15), "50", "300", "50", "0")
	paid.Status = domain.InstallmentStatusPagado
	open := installment(2, day(2024, time.March, 15), "35", "700", "0", "0")

	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	m.installmentRepo.On("ListByLoan", mock.Anything, loanID).Return(
		[]*domain.Installment{paid, open}, nil)
	m.prepaymentRepo.On("SumByLoan", mock.Anything, loanID).Return(decimal.NewFromInt(300), nil)
	m.loanRepo.On("ReplaceTail", mock.Anything, mock.Anything, 1,
		mock.MatchedBy(func(tail []*domain.Installment) bool {
			return len(tail) == 2 && tail[0].Number == 2 && tail[1].Number == 3
		}),
	).Return(nil)
	m.loanRepo.On("UpdateStatus", mock.Anything, loanID, mock.Anything).Return(nil).Maybe()
	m.installmentRepo.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	request := &domain.ReplanRequest{
		Plan: []domain.PlanEntry{
			{Capital: decimal.NewFromInt(350), Interest: decimal.NewFromInt(35)},
			{Capital: decimal.NewFromInt(350), Interest: decimal.NewFromInt(18)},
		},
	}

	result, err := svc.Replan(context.Background(), loanID, request)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.LastPaidSeq)
	assert.Equal(t, 3, result.NewInstallmentCount)
	m.loanRepo.AssertExpectations(t)
}

func TestReplanPaidTailConflict(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)
	loan.PlanMode = domain.PlanModeManual

	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	m.installmentRepo.On("ListByLoan", mock.Anything, loanID).Return([]*domain.Installment{}, nil)
	m.prepaymentRepo.On("SumByLoan", mock.Anything, loanID).Return(decimal.Zero, nil)
	m.loanRepo.On("ReplaceTail", mock.Anything, mock.Anything, 0, mock.Anything).
		Return(repository.ErrPaidTail)

	request := &domain.ReplanRequest{
		Plan: []domain.PlanEntry{{Capital: decimal.NewFromInt(1000), Interest: decimal.NewFromInt(50)}},
	}

	_, err := svc.Replan(context.Background(), loanID, request)
	assert.True(t, customError.IsConflict(err))
}

func TestGetInstallmentPlanEditability(t *testing.T) {
	svc, m := newLoanService()

	loanID := uuid.New()
	loan := autoLoan(loanID)

	paid := installment(1, day(2024, time.February, 15), "50", "0", "50", "0")
	open2 := installment(2, day(2024, time.March, 15), "50", "0", "0", "0")
	open3 := installment(3, day(2024, time.April, 15), "50", "0", "0", "0")

	m.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	m.installmentRepo.On("ListByLoan", mock.Anything, loanID).Return(
		[]*domain.Installment{paid, open2, open3}, nil)

	plan, err := svc.GetInstallmentPlan(context.Background(), loanID)

	assert.NoError(t, err)
	assert.Equal(t, 1, plan.LastPaidSeq)
	assert.False(t, plan.Installments[0].Editable)
	assert.True(t, plan.Installments[1].Editable)
	assert.True(t, plan.Installments[2].Editable)
}
