package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/tests/mocks"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func installment(number int, due time.Time, plannedInterest, plannedCapital, interestPaid, capitalCredited string) *domain.Installment {
	return &domain.Installment{
		Number:          number,
		DueDate:         due,
		PlannedInterest: dec(plannedInterest),
		PlannedCapital:  dec(plannedCapital),
		InterestPaid:    dec(interestPaid),
		CapitalCredited: dec(capitalCredited),
		Status:          domain.InstallmentStatusPendiente,
	}
}

func TestInstallmentStatus(t *testing.T) {
	due := day(2024, time.March, 15)

	tests := []struct {
		name     string
		in       *domain.Installment
		expected string
	}{
		{"nothing paid", installment(1, due, "50", "0", "0", "0"), domain.InstallmentStatusPendiente},
		{"interest covers auto installment", installment(1, due, "50", "0", "50", "0"), domain.InstallmentStatusPagado},
		{"overpaid interest still PAGADO", installment(1, due, "50", "0", "60", "0"), domain.InstallmentStatusPagado},
		{"within paid tolerance", installment(1, due, "50", "0", "49.996", "0"), domain.InstallmentStatusPagado},
		{"just outside tolerance", installment(1, due, "50", "0", "49.99", "0"), domain.InstallmentStatusPendiente},
		{"manual needs capital too", installment(1, due, "50", "400", "50", "0"), domain.InstallmentStatusPendiente},
		{"manual fully covered", installment(1, due, "50", "400", "50", "400"), domain.InstallmentStatusPagado},
		{"capital alone is not enough", installment(1, due, "50", "400", "0", "400"), domain.InstallmentStatusPendiente},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InstallmentStatus(tt.in))
		})
	}
}

func TestLoanStatus(t *testing.T) {
	today := day(2024, time.March, 20)
	past := day(2024, time.March, 10)
	future := day(2024, time.April, 10)

	loan := &domain.Loan{Principal: dec("1000")}

	tests := []struct {
		name         string
		installments []*domain.Installment
		totalPrepaid string
		expected     string
	}{
		{
			name:         "no installments",
			installments: nil,
			totalPrepaid: "0",
			expected:     domain.LoanStatusPendiente,
		},
		{
			name: "all pending none due",
			installments: []*domain.Installment{
				installment(1, future, "50", "0", "0", "0"),
			},
			totalPrepaid: "0",
			expected:     domain.LoanStatusPendiente,
		},
		{
			name: "pending installment past due",
			installments: []*domain.Installment{
				installment(1, past, "50", "0", "0", "0"),
				installment(2, future, "50", "0", "0", "0"),
			},
			totalPrepaid: "0",
			expected:     domain.LoanStatusVencido,
		},
		{
			name: "all paid and principal recovered",
			installments: []*domain.Installment{
				installment(1, past, "50", "0", "50", "0"),
				installment(2, future, "50", "0", "50", "0"),
			},
			totalPrepaid: "1000",
			expected:     domain.LoanStatusPagado,
		},
		{
			name: "interest serviced but principal outstanding",
			installments: []*domain.Installment{
				installment(1, past, "50", "0", "50", "0"),
			},
			totalPrepaid: "300",
			expected:     domain.LoanStatusVencido,
		},
		{
			name: "paid head with open future tail",
			installments: []*domain.Installment{
				installment(1, past, "50", "0", "50", "0"),
				installment(2, future, "50", "0", "0", "0"),
			},
			totalPrepaid: "0",
			expected:     domain.LoanStatusPendiente,
		},
		{
			name: "principal recovered within tolerance",
			installments: []*domain.Installment{
				installment(1, past, "50", "0", "50", "0"),
			},
			totalPrepaid: "999.996",
			expected:     domain.LoanStatusPagado,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LoanStatus(loan, tt.installments, dec(tt.totalPrepaid), today)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLoanStatusIgnoresStoredEstado(t *testing.T) {
	today := day(2024, time.March, 20)
	loan := &domain.Loan{Principal: dec("1000"), Status: domain.LoanStatusPagado}

	// The stored estado says PAGADO but the facts say an installment is open
	// and overdue. Derivation goes by facts alone.
	in := installment(1, day(2024, time.March, 1), "50", "0", "0", "0")
	in.Status = domain.InstallmentStatusPagado

	got := LoanStatus(loan, []*domain.Installment{in}, decimal.Zero, today)
	assert.Equal(t, domain.LoanStatusVencido, got)
}

func TestLoanStatusFullPrepaymentIndependentOfOrder(t *testing.T) {
	// Whether the interest payments land before or after the full abono de
	// capital, the post-facto state is the same, so the derivation must be.
	today := day(2024, time.May, 1)
	loan := &domain.Loan{Principal: dec("1000")}

	first := installment(1, day(2024, time.February, 15), "50", "0", "50", "0")
	second := installment(2, day(2024, time.March, 15), "50", "0", "50", "1000")

	forward := []*domain.Installment{first, second}
	reverse := []*domain.Installment{second, first}

	assert.Equal(t, domain.LoanStatusPagado, LoanStatus(loan, forward, dec("1000"), today))
	assert.Equal(t, domain.LoanStatusPagado, LoanStatus(loan, reverse, dec("1000"), today))
}

func TestLoanStatusIdempotent(t *testing.T) {
	today := day(2024, time.March, 20)
	loan := &domain.Loan{Principal: dec("1000")}
	installments := []*domain.Installment{
		installment(1, day(2024, time.March, 10), "50", "0", "50", "0"),
		installment(2, day(2024, time.April, 10), "50", "0", "0", "0"),
	}

	first := LoanStatus(loan, installments, dec("200"), today)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, LoanStatus(loan, installments, dec("200"), today))
	}
}

func TestListLoanSummaries(t *testing.T) {
	loanRepo := new(mocks.MockLoanRepository)
	installmentRepo := new(mocks.MockInstallmentRepository)
	prepaymentRepo := new(mocks.MockPrepaymentRepository)
	resolver := NewStatusResolver(loanRepo, installmentRepo, prepaymentRepo, nil)

	settled := &domain.Loan{ID: uuid.New(), Principal: dec("1000")}
	overdue := &domain.Loan{ID: uuid.New(), Principal: dec("500")}

	loanRepo.On("ListIDs", mock.Anything).Return([]uuid.UUID{settled.ID, overdue.ID}, nil)

	loanRepo.On("GetByID", mock.Anything, settled.ID).Return(settled, nil)
	installmentRepo.On("ListByLoan", mock.Anything, settled.ID).Return([]*domain.Installment{
		installment(1, day(2024, time.March, 10), "50", "0", "50", "0"),
	}, nil)
	prepaymentRepo.On("SumByLoan", mock.Anything, settled.ID).Return(dec("1000"), nil)

	loanRepo.On("GetByID", mock.Anything, overdue.ID).Return(overdue, nil)
	installmentRepo.On("ListByLoan", mock.Anything, overdue.ID).Return([]*domain.Installment{
		installment(1, day(2024, time.March, 10), "25", "0", "0", "0"),
	}, nil)
	prepaymentRepo.On("SumByLoan", mock.Anything, overdue.ID).Return(dec("0"), nil)

	summaries, err := resolver.ListLoanSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, settled.ID, summaries[0].LoanID)
	assert.Equal(t, domain.LoanStatusPagado, summaries[0].Status)
	assert.True(t, summaries[0].OutstandingPrincipal.IsZero())

	assert.Equal(t, overdue.ID, summaries[1].LoanID)
	assert.Equal(t, domain.LoanStatusVencido, summaries[1].Status)
	assert.Equal(t, 1, summaries[1].OverdueCount)
	assert.True(t, summaries[1].OutstandingPrincipal.Equal(dec("500")))
}
