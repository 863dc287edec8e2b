package service

import (
	"github.com/google/uuid"

	"github.com/fintecol/prestamos-engine/internal/domain"
)

// Notifier delivers best-effort notifications. Implementations must never
// block the calling operation: every method is fire-and-forget, retried
// internally, and swallows its own failures.
type Notifier interface {
	// NotifyLoanCreated mails the borrower the schedule of a freshly created
	// loan. Invoked after the creating transaction commits.
	NotifyLoanCreated(loanID uuid.UUID)

	// NotifyInstallmentDue reminds the borrower of an upcoming installment.
	NotifyInstallmentDue(installment *domain.Installment)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) NotifyLoanCreated(uuid.UUID) {}

func (NopNotifier) NotifyInstallmentDue(*domain.Installment) {}
