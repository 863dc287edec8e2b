package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/pkg/utils"
)

// Days between Quincenal installments.
const quincenalDays = 15

// DueDate computes the due date of installment n (1-based) counted from the
// schedule's anchor date. Mensual adds calendar months with the day-of-month
// clamped to the target month's last day; Quincenal adds n*15 days. If the
// result does not land strictly after the anchor (n = 0 or degenerate input)
// the next period is used instead. Never fails.
func DueDate(anchor time.Time, periodicity string, n int) time.Time {
	due := dueDateAt(anchor, periodicity, n)
	if !due.After(anchor) {
		due = dueDateAt(anchor, periodicity, n+1)
	}
	return due
}

func dueDateAt(anchor time.Time, periodicity string, n int) time.Time {
	if periodicity == domain.PeriodicityMensual {
		return utils.AddMonthsClamped(anchor, n)
	}
	return anchor.AddDate(0, 0, quincenalDays*n)
}

// buildAutoSchedule produces the flat-interest schedule for an auto-mode
// loan: every installment carries interest on the original principal and no
// planned capital.
func buildAutoSchedule(loan *domain.Loan, firstNumber int, count int, anchor time.Time) []*domain.Installment {
	interest := utils.FlatInterest(loan.Principal, loan.InterestRate)

	installments := make([]*domain.Installment, 0, count)
	for i := 1; i <= count; i++ {
		installments = append(installments, newInstallment(loan, firstNumber+i-1,
			DueDate(anchor, loan.Periodicity, i), interest, decimal.Zero))
	}
	return installments
}

func newInstallment(loan *domain.Loan, number int, due time.Time, interest, capital decimal.Decimal) *domain.Installment {
	return &domain.Installment{
		ID:              uuid.New(),
		LoanID:          loan.ID,
		Number:          number,
		DueDate:         due,
		PlannedInterest: interest,
		PlannedCapital:  capital,
		InterestPaid:    decimal.Zero,
		CapitalCredited: decimal.Zero,
		Status:          domain.InstallmentStatusPendiente,
		CreatedAt:       time.Now(),
	}
}

// buildManualSchedule produces the schedule for a caller-supplied plan,
// one installment per entry, numbered from firstNumber.
func buildManualSchedule(loan *domain.Loan, firstNumber int, anchor time.Time, plan []domain.PlanEntry) []*domain.Installment {
	installments := make([]*domain.Installment, 0, len(plan))
	for i, entry := range plan {
		installments = append(installments, newInstallment(loan, firstNumber+i,
			DueDate(anchor, loan.Periodicity, i+1), entry.Interest.Round(2), entry.Capital.Round(2)))
	}
	return installments
}
