package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment statuses. PAGADO requires interest fully covered and, when a
// planned capital exists, capital fully credited.
const (
	InstallmentStatusPendiente = "PENDIENTE"
	InstallmentStatusPagado    = "PAGADO"
)

// Installment is one scheduled repayment unit of a loan.
//
// PlannedInterest is the interest due for the period. PlannedCapital only
// carries a value for manual or replanned plans; pure-auto installments track
// principal at the loan level. InterestPaid and CapitalCredited accumulate
// across payments.
type Installment struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	LoanID          uuid.UUID       `json:"loan_id" db:"loan_id"`
	Number          int             `json:"cuota_numero" db:"cuota_numero"`
	DueDate         time.Time       `json:"fecha_vencimiento" db:"fecha_vencimiento"`
	PlannedInterest decimal.Decimal `json:"interes_a_pagar" db:"interes_a_pagar"`
	PlannedCapital  decimal.Decimal `json:"capital_plan" db:"capital_plan"`
	InterestPaid    decimal.Decimal `json:"interes_pagado" db:"interes_pagado"`
	CapitalCredited decimal.Decimal `json:"abono_capital" db:"abono_capital"`
	PaymentDate     *time.Time      `json:"fecha_pago,omitempty" db:"fecha_pago"`
	DaysLate        int             `json:"dias_mora" db:"dias_mora"`
	Status          string          `json:"estado" db:"estado"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Total returns the planned capital plus interest of the installment.
func (i *Installment) Total() decimal.Decimal {
	return i.PlannedCapital.Add(i.PlannedInterest)
}

// InstallmentEntry is an installment as shown in the plan editor, with the
// editable flag the frontend uses to lock the paid head of the schedule.
type InstallmentEntry struct {
	*Installment
	Editable bool `json:"editable"`
}

type RecordInterestPaymentRequest struct {
	Amount      decimal.Decimal `json:"interes_pagado" validate:"decimal_gte=0"`
	PaymentDate *Date           `json:"fecha_pago"`
}

// InstallmentFilter narrows installment listings.
type InstallmentFilter struct {
	ClientCode string
	Status     string
	LoanID     *uuid.UUID
	OverdueAt  *time.Time
}
