package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/pkg/utils"
)

type prepaymentRepository struct {
	db *sqlx.DB
}

func NewPrepaymentRepository(db *sqlx.DB) PrepaymentRepository {
	return &prepaymentRepository{db: db}
}

func (r *prepaymentRepository) Apply(ctx context.Context, loan *domain.Loan, payment *domain.PrincipalPayment, recompute *InterestRecompute) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Row lock on the loan serializes concurrent prepayments; two requests
	// racing the pending-capital check would otherwise both pass it.
	var principal decimal.Decimal
	if err = tx.GetContext(ctx, &principal, `SELECT importe_credito FROM prestamos WHERE id = $1 FOR UPDATE`, loan.ID); err != nil {
		return err
	}

	var paidBefore decimal.Decimal
	err = tx.GetContext(ctx, &paidBefore,
		`SELECT COALESCE(SUM(monto), 0) FROM abonos_capital WHERE loan_id = $1`, loan.ID)
	if err != nil {
		return err
	}

	paidAfter := paidBefore.Add(payment.Amount)
	if paidAfter.GreaterThan(principal.Add(utils.PlanTolerance)) {
		return ErrPrepaymentExceedsPending
	}

	query := `
		INSERT INTO abonos_capital (id, loan_id, cuota_id, nombre_cliente, monto, fecha, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.InstallmentID,
		payment.ClientName,
		payment.Amount,
		payment.Date,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	if payment.InstallmentID != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE cuotas SET abono_capital = abono_capital + $2 WHERE id = $1`,
			*payment.InstallmentID, payment.Amount)
		if err != nil {
			return err
		}
	}

	if recompute != nil {
		interest := utils.FlatInterest(principal.Sub(paidAfter), recompute.RatePercent)
		_, err = tx.ExecContext(ctx, `
			UPDATE cuotas
			SET interes_a_pagar = $3
			WHERE loan_id = $1 AND cuota_numero > $2 AND estado <> 'PAGADO'
		`, loan.ID, recompute.FromNumber, interest)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *prepaymentRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(monto), 0) FROM abonos_capital WHERE loan_id = $1`, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *prepaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.PrincipalPayment, error) {
	query := `
		SELECT id, loan_id, cuota_id, nombre_cliente, monto, fecha, created_at
		FROM abonos_capital
		WHERE loan_id = $1
		ORDER BY fecha, created_at
	`

	var payments []*domain.PrincipalPayment
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}
