package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fintecol/prestamos-engine/internal/audit"
	"github.com/fintecol/prestamos-engine/internal/config"
	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/repository"
	customError "github.com/fintecol/prestamos-engine/pkg/errors"
	"github.com/fintecol/prestamos-engine/pkg/utils"
)

// PaymentService applies interest payments to installments and principal
// prepayments against a loan's outstanding balance.
type PaymentService struct {
	clientRepo      repository.ClientRepository
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	prepaymentRepo  repository.PrepaymentRepository
	resolver        *StatusResolver
	auditLog        *audit.CSVLogger
	config          *config.Config
}

func NewPaymentService(
	clientRepo repository.ClientRepository,
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	prepaymentRepo repository.PrepaymentRepository,
	resolver *StatusResolver,
	auditLog *audit.CSVLogger,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		clientRepo:      clientRepo,
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		prepaymentRepo:  prepaymentRepo,
		resolver:        resolver,
		auditLog:        auditLog,
		config:          cfg,
	}
}

// RecordInterestPayment adds an interest payment to an installment's
// cumulative total, computes days late, and re-derives installment and loan
// status. Overpayment is accepted and kept visible as collected interest.
func (s *PaymentService) RecordInterestPayment(ctx context.Context, installmentID uuid.UUID, request *domain.RecordInterestPaymentRequest) (*domain.Installment, error) {
	if request.Amount.IsNegative() {
		return nil, customError.NewValidation("el interés pagado no puede ser negativo")
	}

	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	paymentDate := utils.Midnight(time.Now())
	if request.PaymentDate != nil && !request.PaymentDate.Time.IsZero() {
		paymentDate = utils.Midnight(request.PaymentDate.Time)
	}

	daysLate := 0
	if !installment.DueDate.IsZero() {
		daysLate = utils.DaysLate(installment.DueDate, paymentDate)
	}

	newTotal := installment.InterestPaid.Add(request.Amount)
	if err := s.installmentRepo.RecordInterestPayment(ctx, installmentID, newTotal, paymentDate, daysLate); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if _, err := s.resolver.Refresh(ctx, installment.LoanID); err != nil {
		return nil, err
	}

	return s.getInstallment(ctx, installmentID)
}

// RecordPrincipalPrepayment applies an abono de capital against the loan the
// installment belongs to. The installment only attributes the payment; the
// amount reduces the loan's aggregate outstanding principal.
func (s *PaymentService) RecordPrincipalPrepayment(ctx context.Context, installmentID uuid.UUID, request *domain.RecordPrepaymentRequest) (*domain.PrincipalPayment, error) {
	if !request.Amount.IsPositive() {
		return nil, customError.NewValidation("el monto del abono debe ser mayor que cero")
	}

	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	// A prepayment cannot ride on an installment whose interest obligation is
	// already closed; it belongs on a later open installment.
	interestSettled := installment.InterestPaid.GreaterThanOrEqual(installment.PlannedInterest.Sub(utils.PaidTolerance))
	if interestSettled || installment.Status == domain.InstallmentStatusPagado {
		return nil, customError.NewConflict("cuota con interés ya pagado")
	}

	loan, err := s.loanRepo.GetByID(ctx, installment.LoanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NewNotFound("préstamo", installment.LoanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	totalPrepaid, err := s.prepaymentRepo.SumByLoan(ctx, loan.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	pending := loan.Principal.Sub(totalPrepaid)
	if request.Amount.GreaterThan(pending.Add(utils.PlanTolerance)) {
		return nil, customError.NewValidation("abono excede capital pendiente (%s)", pending.StringFixed(2))
	}

	paymentDate := utils.Midnight(time.Now())
	if request.Date != nil && !request.Date.Time.IsZero() {
		paymentDate = utils.Midnight(request.Date.Time)
	}

	payment := &domain.PrincipalPayment{
		ID:            uuid.New(),
		LoanID:        loan.ID,
		InstallmentID: &installment.ID,
		ClientName:    s.clientName(ctx, loan.ClientCode),
		Amount:        request.Amount.Round(2),
		Date:          paymentDate,
		CreatedAt:     time.Now(),
	}

	recompute := s.recomputeSpec(loan, installment)

	if err := s.prepaymentRepo.Apply(ctx, loan, payment, recompute); err != nil {
		if errors.Is(err, repository.ErrPrepaymentExceedsPending) {
			return nil, customError.NewValidation("abono excede capital pendiente (%s)", pending.StringFixed(2))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if s.auditLog != nil {
		if err := s.auditLog.AppendPrepayment(payment); err != nil {
			log.Printf("audit log append failed for abono %s: %v", payment.ID, err)
		}
	}

	if _, err := s.resolver.Refresh(ctx, loan.ID); err != nil {
		return nil, err
	}

	return payment, nil
}

// GetInstallment returns one installment with days late recomputed for
// display when still pending.
func (s *PaymentService) GetInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.Installment, error) {
	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	annotateDaysLate(installment, time.Now())
	return installment, nil
}

// ListInstallments returns installments matching the filter.
func (s *PaymentService) ListInstallments(ctx context.Context, filter domain.InstallmentFilter) ([]*domain.Installment, error) {
	installments, err := s.installmentRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	now := time.Now()
	for _, in := range installments {
		annotateDaysLate(in, now)
	}
	return installments, nil
}

// ListPrepayments returns a loan's abonos de capital in date order.
func (s *PaymentService) ListPrepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.PrincipalPayment, error) {
	payments, err := s.prepaymentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// recomputeSpec decides whether this prepayment rewrites the planned
// interest of later open installments. Only auto-mode loans qualify, and
// only when the deployment enables it.
func (s *PaymentService) recomputeSpec(loan *domain.Loan, installment *domain.Installment) *repository.InterestRecompute {
	if s.config == nil || !s.config.Business.RecomputeInterestOnPrepayment {
		return nil
	}
	if loan.PlanMode != domain.PlanModeAuto {
		return nil
	}
	return &repository.InterestRecompute{
		RatePercent: loan.InterestRate,
		FromNumber:  installment.Number,
	}
}

func (s *PaymentService) clientName(ctx context.Context, code string) *string {
	client, err := s.clientRepo.GetByCode(ctx, code)
	if err != nil {
		return nil
	}
	return &client.Nombre
}

func (s *PaymentService) getInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.Installment, error) {
	installment, err := s.installmentRepo.GetByID(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NewNotFound("cuota", installmentID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return installment, nil
}

// annotateDaysLate refreshes the display-only days-late figure of a pending
// installment against today.
func annotateDaysLate(in *domain.Installment, now time.Time) {
	if in.Status == domain.InstallmentStatusPendiente && !in.DueDate.IsZero() {
		in.DaysLate = utils.DaysLate(in.DueDate, now)
	}
}
