package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/repository"
	customError "github.com/fintecol/prestamos-engine/pkg/errors"
	"github.com/fintecol/prestamos-engine/pkg/utils"
)

const statusCacheTTL = 10 * time.Minute

// InstallmentStatus derives an installment's status from its payment facts.
// PAGADO requires the interest fully covered and, when the installment plans
// a capital portion, that portion fully credited by prepayments. Pure-auto
// installments (planned capital zero) are satisfied by interest alone.
func InstallmentStatus(in *domain.Installment) string {
	interestCovered := in.InterestPaid.GreaterThanOrEqual(in.PlannedInterest.Sub(utils.PaidTolerance))
	capitalCovered := in.PlannedCapital.LessThanOrEqual(utils.PaidTolerance) ||
		in.CapitalCredited.GreaterThanOrEqual(in.PlannedCapital.Sub(utils.PaidTolerance))

	if interestCovered && capitalCovered {
		return domain.InstallmentStatusPagado
	}
	return domain.InstallmentStatusPendiente
}

// LoanStatus derives a loan's status from its installments and aggregate
// prepayments, evaluated against today. Precedence:
//
//  1. no installments -> PENDIENTE
//  2. every installment PAGADO and principal recovered -> PAGADO
//  3. any pending installment past due -> VENCIDO
//  4. every installment PAGADO but principal outstanding -> VENCIDO
//     (capital is contractually overdue even with interest serviced)
//  5. otherwise PENDIENTE
func LoanStatus(loan *domain.Loan, installments []*domain.Installment, totalPrepaid decimal.Decimal, today time.Time) string {
	if len(installments) == 0 {
		return domain.LoanStatusPendiente
	}

	outstanding := loan.Principal.Sub(totalPrepaid)

	allPaid := true
	anyOverdue := false
	for _, in := range installments {
		if InstallmentStatus(in) == domain.InstallmentStatusPagado {
			continue
		}
		allPaid = false
		if utils.Midnight(in.DueDate).Before(utils.Midnight(today)) {
			anyOverdue = true
		}
	}

	if allPaid && outstanding.LessThanOrEqual(utils.PaidTolerance) {
		return domain.LoanStatusPagado
	}
	if anyOverdue {
		return domain.LoanStatusVencido
	}
	if allPaid {
		return domain.LoanStatusVencido
	}
	return domain.LoanStatusPendiente
}

// StatusResolver re-derives loan and installment statuses from stored facts.
// The estado columns are write-back caches for display and queries; nothing
// here ever branches on them.
type StatusResolver struct {
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	prepaymentRepo  repository.PrepaymentRepository
	redis           *redis.Client
}

func NewStatusResolver(
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	prepaymentRepo repository.PrepaymentRepository,
	redisClient *redis.Client,
) *StatusResolver {
	return &StatusResolver{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		prepaymentRepo:  prepaymentRepo,
		redis:           redisClient,
	}
}

// Refresh recomputes the statuses of a loan and all its installments and
// persists the denormalized copies that changed. Returns the derived loan
// status.
func (s *StatusResolver) Refresh(ctx context.Context, loanID uuid.UUID) (string, error) {
	loan, installments, totalPrepaid, err := s.loadFacts(ctx, loanID)
	if err != nil {
		return "", err
	}

	for _, in := range installments {
		derived := InstallmentStatus(in)
		if derived != in.Status {
			if err := s.installmentRepo.UpdateStatus(ctx, in.ID, derived); err != nil {
				return "", customError.WrapDatabaseError(err)
			}
			in.Status = derived
		}
	}

	status := LoanStatus(loan, installments, totalPrepaid, time.Now())
	if status != loan.Status {
		if err := s.loanRepo.UpdateStatus(ctx, loanID, status); err != nil {
			return "", customError.WrapDatabaseError(err)
		}
	}

	s.invalidate(ctx, loanID)
	return status, nil
}

// GetLoanStatus returns the derived standing of a loan. Results are cached in
// redis and invalidated on every mutation, so repeated calls without an
// intervening mutation are identical.
func (s *StatusResolver) GetLoanStatus(ctx context.Context, loanID uuid.UUID) (*domain.LoanStatusSummary, error) {
	if cached := s.cachedSummary(ctx, loanID); cached != nil {
		return cached, nil
	}

	loan, installments, totalPrepaid, err := s.loadFacts(ctx, loanID)
	if err != nil {
		return nil, err
	}

	today := utils.Midnight(time.Now())
	summary := &domain.LoanStatusSummary{
		LoanID:               loanID,
		Status:               LoanStatus(loan, installments, totalPrepaid, today),
		OutstandingPrincipal: loan.Principal.Sub(totalPrepaid).Round(2),
		InterestCollected:    decimal.Zero,
		TotalInstallments:    len(installments),
	}

	for _, in := range installments {
		summary.InterestCollected = summary.InterestCollected.Add(in.InterestPaid)
		if InstallmentStatus(in) == domain.InstallmentStatusPagado {
			summary.PaidInstallments++
		} else if utils.Midnight(in.DueDate).Before(today) {
			summary.OverdueCount++
		}
		if summary.LastDueDate == nil || in.DueDate.After(*summary.LastDueDate) {
			due := in.DueDate
			summary.LastDueDate = &due
		}
	}

	s.cacheSummary(ctx, loanID, summary)
	return summary, nil
}

// ListLoanSummaries returns the derived standing of every loan, one summary
// per loan, for dashboard-style views that would otherwise fetch each loan's
// estado individually. Summaries go through the same cache as GetLoanStatus.
func (s *StatusResolver) ListLoanSummaries(ctx context.Context) ([]*domain.LoanStatusSummary, error) {
	ids, err := s.loanRepo.ListIDs(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summaries := make([]*domain.LoanStatusSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := s.GetLoanStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *StatusResolver) loadFacts(ctx context.Context, loanID uuid.UUID) (*domain.Loan, []*domain.Installment, decimal.Decimal, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, decimal.Zero, customError.NewNotFound("préstamo", loanID)
		}
		return nil, nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	installments, err := s.installmentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	totalPrepaid, err := s.prepaymentRepo.SumByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	return loan, installments, totalPrepaid, nil
}

func statusCacheKey(loanID uuid.UUID) string {
	return fmt.Sprintf("prestamos:status:%s", loanID)
}

func (s *StatusResolver) cachedSummary(ctx context.Context, loanID uuid.UUID) *domain.LoanStatusSummary {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, statusCacheKey(loanID)).Bytes()
	if err != nil {
		return nil
	}
	var summary domain.LoanStatusSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *StatusResolver) cacheSummary(ctx context.Context, loanID uuid.UUID, summary *domain.LoanStatusSummary) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, statusCacheKey(loanID), raw, statusCacheTTL).Err(); err != nil {
		log.Printf("status cache write failed for %s: %v", loanID, err)
	}
}

func (s *StatusResolver) invalidate(ctx context.Context, loanID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statusCacheKey(loanID)).Err(); err != nil {
		log.Printf("status cache invalidation failed for %s: %v", loanID, err)
	}
}
