package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrincipalPayment ("abono de capital") is an out-of-schedule payment that
// reduces a loan's outstanding principal. InstallmentID records which
// installment the payment was attributed through, for bookkeeping only; the
// amount always counts against the loan's aggregate balance. Rows are
// insert-only.
type PrincipalPayment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentID *uuid.UUID      `json:"cuota_id,omitempty" db:"cuota_id"`
	ClientName    *string         `json:"nombre_cliente,omitempty" db:"nombre_cliente"`
	Amount        decimal.Decimal `json:"monto" db:"monto"`
	Date          time.Time       `json:"fecha" db:"fecha"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type RecordPrepaymentRequest struct {
	Amount decimal.Decimal `json:"monto" validate:"required,decimal_gt=0"`
	Date   *Date           `json:"fecha"`
}
