package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintecol/prestamos-engine/internal/config"
	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/repository"
	customError "github.com/fintecol/prestamos-engine/pkg/errors"
	"github.com/fintecol/prestamos-engine/pkg/utils"
)

// LoanService owns the installment-plan lifecycle: loan creation in both
// plan modes, header edits that regenerate the unpaid tail, and the replan
// of manual schedules.
type LoanService struct {
	clientRepo      repository.ClientRepository
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	prepaymentRepo  repository.PrepaymentRepository
	resolver        *StatusResolver
	notifier        Notifier
	config          *config.Config
}

func NewLoanService(
	clientRepo repository.ClientRepository,
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	prepaymentRepo repository.PrepaymentRepository,
	resolver *StatusResolver,
	notifier Notifier,
	cfg *config.Config,
) *LoanService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LoanService{
		clientRepo:      clientRepo,
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		prepaymentRepo:  prepaymentRepo,
		resolver:        resolver,
		notifier:        notifier,
		config:          cfg,
	}
}

// CreateAutoLoan creates a loan whose schedule is generated with flat
// interest on the original principal and no planned capital per installment.
func (s *LoanService) CreateAutoLoan(ctx context.Context, request *domain.CreateAutoLoanRequest) (*domain.LoanResponse, error) {
	if err := validateLoanHeader(request.Principal, request.InterestRate, request.NumInstallments); err != nil {
		return nil, err
	}

	client, err := s.getClient(ctx, request.ClientCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:              uuid.New(),
		ClientCode:      client.Codigo,
		Principal:       request.Principal.Round(2),
		InterestRate:    request.InterestRate,
		Periodicity:     request.Periodicity,
		NumInstallments: request.NumInstallments,
		StartDate:       utils.Midnight(request.StartDate.Time),
		PlanMode:        domain.PlanModeAuto,
		Status:          domain.LoanStatusPendiente,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	installments := buildAutoSchedule(loan, 1, loan.NumInstallments, loan.StartDate)

	if err := s.loanRepo.CreateWithInstallments(ctx, loan, installments); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.dispatchLoanCreated(loan.ID)

	return &domain.LoanResponse{
		Loan:         loan,
		Client:       clientSummary(client),
		Installments: installments,
	}, nil
}

// CreateManualLoan creates a loan from a caller-supplied per-installment
// plan. The plan is validated in full before any write: interest per step
// must match the flat rate on the running balance and the capital must
// amortize the principal exactly.
func (s *LoanService) CreateManualLoan(ctx context.Context, request *domain.CreateManualLoanRequest) (*domain.LoanResponse, error) {
	if err := validateLoanHeader(request.Principal, request.InterestRate, request.NumInstallments); err != nil {
		return nil, err
	}
	if len(request.Plan) != request.NumInstallments {
		return nil, customError.NewValidation("el plan debe tener exactamente %d cuotas, recibidas %d",
			request.NumInstallments, len(request.Plan))
	}
	if err := validateManualPlan(request.Principal, request.InterestRate, request.Plan); err != nil {
		return nil, err
	}

	client, err := s.getClient(ctx, request.ClientCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:              uuid.New(),
		ClientCode:      client.Codigo,
		Principal:       request.Principal.Round(2),
		InterestRate:    request.InterestRate,
		Periodicity:     request.Periodicity,
		NumInstallments: request.NumInstallments,
		StartDate:       utils.Midnight(request.StartDate.Time),
		PlanMode:        domain.PlanModeManual,
		Status:          domain.LoanStatusPendiente,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	installments := buildManualSchedule(loan, 1, loan.StartDate, request.Plan)

	if err := s.loanRepo.CreateWithInstallments(ctx, loan, installments); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.dispatchLoanCreated(loan.ID)

	return &domain.LoanResponse{
		Loan:         loan,
		Client:       clientSummary(client),
		Installments: installments,
	}, nil
}

// UpdateAutoLoan rewrites the header of an auto-mode loan and regenerates
// every installment past the last one with payment activity, anchored at
// that installment's due date.
func (s *LoanService) UpdateAutoLoan(ctx context.Context, loanID uuid.UUID, request *domain.UpdateAutoLoanRequest) (*domain.Loan, error) {
	if err := validateLoanHeader(request.Principal, request.InterestRate, request.NumInstallments); err != nil {
		return nil, err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.PlanMode == domain.PlanModeManual {
		return nil, customError.NewConflict("este préstamo es manual; usa el replan")
	}

	installments, err := s.installmentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	totalPrepaid, err := s.prepaymentRepo.SumByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// Never trust the stored estado; derive it before deciding editability.
	if LoanStatus(loan, installments, totalPrepaid, time.Now()) == domain.LoanStatusPagado {
		return nil, customError.NewConflict("no se puede editar un préstamo ya pagado")
	}

	client, err := s.getClient(ctx, request.ClientCode)
	if err != nil {
		return nil, err
	}

	lastPaidSeq, lastPaidDue := lastPaid(installments, utils.Midnight(request.StartDate.Time))
	if request.NumInstallments < lastPaidSeq {
		return nil, customError.NewValidation("num_cuotas (%d) no puede ser menor que las cuotas con pagos registrados (%d)",
			request.NumInstallments, lastPaidSeq)
	}

	loan.ClientCode = client.Codigo
	loan.Principal = request.Principal.Round(2)
	loan.InterestRate = request.InterestRate
	loan.Periodicity = request.Periodicity
	loan.NumInstallments = request.NumInstallments
	loan.StartDate = utils.Midnight(request.StartDate.Time)

	tail := buildAutoSchedule(loan, lastPaidSeq+1, request.NumInstallments-lastPaidSeq, lastPaidDue)

	if err := s.loanRepo.ReplaceTail(ctx, loan, lastPaidSeq, tail); err != nil {
		if errors.Is(err, repository.ErrPaidTail) {
			return nil, customError.NewConflict("no se puede editar: hay cuotas con pagos registrados")
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if _, err := s.resolver.Refresh(ctx, loanID); err != nil {
		return nil, err
	}

	return s.getLoan(ctx, loanID)
}

// Replan replaces the unpaid tail of a manual loan's schedule with a new
// plan, preserving every installment that has payment activity. The new
// plan's capital must equal the loan's outstanding principal.
func (s *LoanService) Replan(ctx context.Context, loanID uuid.UUID, request *domain.ReplanRequest) (*domain.ReplanResult, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.PlanMode != domain.PlanModeManual {
		return nil, customError.NewConflict("este préstamo no es de modo manual; usa la edición automática")
	}

	installments, err := s.installmentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	lastPaidSeq, lastPaidDue := lastPaid(installments, loan.StartDate)

	totalPrepaid, err := s.prepaymentRepo.SumByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	capitalPending := loan.Principal.Sub(totalPrepaid).Round(2)

	planCapital := decimal.Zero
	for i, entry := range request.Plan {
		if entry.Capital.IsNegative() || entry.Interest.IsNegative() {
			return nil, customError.NewValidation("cuota %d: capital e interés deben ser mayores o iguales a cero", lastPaidSeq+i+1)
		}
		planCapital = planCapital.Add(entry.Capital)
	}
	planCapital = planCapital.Round(2)
	if !utils.WithinTolerance(planCapital, capitalPending, utils.PlanTolerance) {
		return nil, customError.NewValidation("el capital del nuevo plan debe ser %s. Actual: %s (diff %s)",
			capitalPending.StringFixed(2), planCapital.StringFixed(2), capitalPending.Sub(planCapital).StringFixed(2))
	}

	if request.Periodicity != "" {
		loan.Periodicity = request.Periodicity
	}
	loan.NumInstallments = lastPaidSeq + len(request.Plan)

	tail := buildManualSchedule(loan, lastPaidSeq+1, lastPaidDue, request.Plan)

	if err := s.loanRepo.ReplaceTail(ctx, loan, lastPaidSeq, tail); err != nil {
		if errors.Is(err, repository.ErrPaidTail) {
			return nil, customError.NewConflict("no se puede reprogramar: hay cuotas con pagos registrados después de la cuota %d", lastPaidSeq)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if _, err := s.resolver.Refresh(ctx, loanID); err != nil {
		return nil, err
	}

	return &domain.ReplanResult{
		LoanID:              loanID,
		LastPaidSeq:         lastPaidSeq,
		NewInstallmentCount: loan.NumInstallments,
		Periodicity:         loan.Periodicity,
	}, nil
}

// GetInstallmentPlan returns the loan header and full schedule with the
// editable flag set for everything past the last paid installment.
func (s *LoanService) GetInstallmentPlan(ctx context.Context, loanID uuid.UUID) (*domain.InstallmentPlan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	installments, err := s.installmentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	lastPaidSeq, _ := lastPaid(installments, loan.StartDate)

	entries := make([]*domain.InstallmentEntry, 0, len(installments))
	for _, in := range installments {
		entries = append(entries, &domain.InstallmentEntry{
			Installment: in,
			Editable:    in.Number > lastPaidSeq,
		})
	}

	return &domain.InstallmentPlan{
		Loan:         loan,
		Installments: entries,
		LastPaidSeq:  lastPaidSeq,
	}, nil
}

// Get returns a loan with its client summary.
func (s *LoanService) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanResponse, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	response := &domain.LoanResponse{Loan: loan}
	if client, err := s.clientRepo.GetByCode(ctx, loan.ClientCode); err == nil {
		response.Client = clientSummary(client)
	}
	return response, nil
}

// List returns loans, newest first, optionally filtered by client code.
func (s *LoanService) List(ctx context.Context, clientCode string, page, pageSize int) ([]*domain.Loan, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}

	loans, total, err := s.loanRepo.List(ctx, clientCode, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, customError.WrapDatabaseError(err)
	}
	return loans, total, nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NewNotFound("préstamo", loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) getClient(ctx context.Context, code string) (*domain.Client, error) {
	client, err := s.clientRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NewNotFound("cliente", code)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return client, nil
}

func (s *LoanService) dispatchLoanCreated(loanID uuid.UUID) {
	if s.config != nil && !s.config.Business.EmailOnLoanCreated {
		return
	}
	// Post-commit, fire-and-forget; the notifier retries and swallows
	// failures on its own.
	go s.notifier.NotifyLoanCreated(loanID)
}

func validateLoanHeader(principal, rate decimal.Decimal, numInstallments int) error {
	if !principal.IsPositive() {
		return customError.NewValidation("el monto del préstamo debe ser mayor que cero")
	}
	if rate.IsNegative() {
		return customError.NewValidation("la tasa de interés no puede ser negativa")
	}
	if numInstallments <= 0 {
		return customError.NewValidation("el número de cuotas debe ser mayor que cero")
	}
	return nil
}

// validateManualPlan walks the plan with a running balance: each step's
// interest must match the flat rate applied to the balance, and the capital
// must amortize the principal to exactly zero.
func validateManualPlan(principal, rate decimal.Decimal, plan []domain.PlanEntry) error {
	remaining := principal
	for i, entry := range plan {
		number := i + 1
		if entry.Capital.IsNegative() || entry.Interest.IsNegative() {
			return customError.NewValidation("cuota %d: capital e interés deben ser mayores o iguales a cero", number)
		}

		expected := utils.FlatInterest(remaining, rate)
		if !utils.WithinTolerance(entry.Interest, expected, utils.PlanTolerance) {
			return customError.NewValidation("cuota %d: interés esperado %s, recibido %s",
				number, expected.StringFixed(2), entry.Interest.StringFixed(2))
		}

		remaining = remaining.Sub(entry.Capital)
		if remaining.LessThan(utils.PlanTolerance.Neg()) {
			return customError.NewValidation("cuota %d: el capital acumulado excede el monto del préstamo", number)
		}
	}

	if !utils.WithinTolerance(remaining, decimal.Zero, utils.PlanTolerance) {
		sum := principal.Sub(remaining)
		return customError.NewValidation("la suma de capital del plan debe ser %s. Actual: %s (diff %s)",
			principal.StringFixed(2), sum.StringFixed(2), remaining.StringFixed(2))
	}
	return nil
}

// lastPaid returns the highest installment number carrying payment activity
// (status PAGADO, interest paid, or capital credited) and its due date. When
// nothing is paid it returns 0 and the fallback anchor.
func lastPaid(installments []*domain.Installment, fallback time.Time) (int, time.Time) {
	seq := 0
	due := fallback
	for _, in := range installments {
		touched := in.Status == domain.InstallmentStatusPagado ||
			in.InterestPaid.IsPositive() ||
			in.CapitalCredited.IsPositive()
		if touched && in.Number > seq {
			seq = in.Number
			due = in.DueDate
		}
	}
	return seq, due
}

func clientSummary(client *domain.Client) *domain.ClientSummary {
	return &domain.ClientSummary{
		ID:     client.ID,
		Codigo: client.Codigo,
		Nombre: client.Nombre,
	}
}
