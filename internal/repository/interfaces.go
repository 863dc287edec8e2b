package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintecol/prestamos-engine/internal/domain"
)

// Sentinel errors returned by transactional writes when an in-transaction
// re-check fails. Services translate them into the caller-facing taxonomy.
var (
	// ErrPrepaymentExceedsPending is returned by Apply when the row-locked
	// re-check finds the prepayment would push total abonos past the principal.
	ErrPrepaymentExceedsPending = errors.New("prepayment exceeds pending principal")

	// ErrPaidTail is returned by ReplaceTail when an installment beyond the
	// declared cut-off already carries payment activity.
	ErrPaidTail = errors.New("tail contains installments with payments")
)

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)

	GetByCode(ctx context.Context, codigo string) (*domain.Client, error)

	List(ctx context.Context) ([]*domain.Client, error)

	Update(ctx context.Context, client *domain.Client) error

	Delete(ctx context.Context, id uuid.UUID) error

	// NextCode computes the next unused sequential client code, zero padded
	// to the widest existing code (minimum width 3).
	NextCode(ctx context.Context) (string, error)
}

// LoanRepository defines the interface for loan and schedule operations
type LoanRepository interface {
	// CreateWithInstallments writes the loan header and its full schedule in
	// one transaction.
	CreateWithInstallments(ctx context.Context, loan *domain.Loan, installments []*domain.Installment) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	List(ctx context.Context, clientCode string, limit, offset int) ([]*domain.Loan, int, error)

	// ReplaceTail atomically updates the loan header, deletes every
	// installment numbered above fromNumber and inserts the new tail.
	// Returns ErrPaidTail if a to-be-deleted installment has payment activity.
	ReplaceTail(ctx context.Context, loan *domain.Loan, fromNumber int, tail []*domain.Installment) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	CountByClientCode(ctx context.Context, clientCode string) (int, error)

	// ListIDs returns every loan id; used by the scheduler's status sweep.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// InstallmentRepository defines the interface for installment operations
type InstallmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error)

	// ListByLoan returns a loan's installments ordered by sequence number.
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	List(ctx context.Context, filter domain.InstallmentFilter) ([]*domain.Installment, error)

	// RecordInterestPayment persists the new cumulative interest-paid figure
	// together with the payment date and computed days late.
	RecordInterestPayment(ctx context.Context, id uuid.UUID, interestPaid decimal.Decimal, paymentDate time.Time, daysLate int) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// ListDueBetween returns pending installments due inside [from, to],
	// used by the reminder job.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Installment, error)
}

// InterestRecompute describes the planned-interest rewrite applied to open
// auto-mode installments after a principal prepayment.
type InterestRecompute struct {
	RatePercent decimal.Decimal
	FromNumber  int
}

// PrepaymentRepository defines the interface for principal prepayments
type PrepaymentRepository interface {
	// Apply inserts the prepayment, credits the referenced installment and,
	// when recompute is non-nil, rewrites planned interest of later open
	// installments, all in one transaction holding a row lock on the loan.
	// Returns ErrPrepaymentExceedsPending if the locked re-check fails.
	Apply(ctx context.Context, loan *domain.Loan, payment *domain.PrincipalPayment, recompute *InterestRecompute) error

	SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)

	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.PrincipalPayment, error)
}
