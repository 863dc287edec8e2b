package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fintecol/prestamos-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const insertInstallmentQuery = `
	INSERT INTO cuotas (id, loan_id, cuota_numero, fecha_vencimiento, interes_a_pagar, capital_plan,
	                    interes_pagado, abono_capital, fecha_pago, dias_mora, estado, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func insertInstallmentTx(ctx context.Context, tx *sqlx.Tx, in *domain.Installment) error {
	_, err := tx.ExecContext(ctx, insertInstallmentQuery,
		in.ID,
		in.LoanID,
		in.Number,
		in.DueDate,
		in.PlannedInterest,
		in.PlannedCapital,
		in.InterestPaid,
		in.CapitalCredited,
		in.PaymentDate,
		in.DaysLate,
		in.Status,
		in.CreatedAt,
	)
	return err
}

func (r *loanRepository) CreateWithInstallments(ctx context.Context, loan *domain.Loan, installments []*domain.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO prestamos (id, cod_cli, importe_credito, modalidad, fecha_credito, num_cuotas,
		                       tasa_interes, plan_mode, estado, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.ExecContext(ctx, query,
		loan.ID,
		loan.ClientCode,
		loan.Principal,
		loan.Periodicity,
		loan.StartDate,
		loan.NumInstallments,
		loan.InterestRate,
		loan.PlanMode,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, in := range installments {
		if err = insertInstallmentTx(ctx, tx, in); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, cod_cli, importe_credito, modalidad, fecha_credito, num_cuotas,
		       tasa_interes, plan_mode, estado, created_at, updated_at
		FROM prestamos
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, clientCode string, limit, offset int) ([]*domain.Loan, int, error) {
	where := ""
	args := []interface{}{}
	if clientCode != "" {
		where = "WHERE cod_cli = $1"
		args = append(args, clientCode)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM prestamos "+where, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, cod_cli, importe_credito, modalidad, fecha_credito, num_cuotas,
		       tasa_interes, plan_mode, estado, created_at, updated_at
		FROM prestamos ` + where + `
		ORDER BY created_at DESC
	`
	if clientCode != "" {
		query += " LIMIT $2 OFFSET $3"
	} else {
		query += " LIMIT $1 OFFSET $2"
	}
	args = append(args, limit, offset)

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

func (r *loanRepository) ReplaceTail(ctx context.Context, loan *domain.Loan, fromNumber int, tail []*domain.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the header for the duration of the rewrite.
	if _, err = tx.ExecContext(ctx, `SELECT id FROM prestamos WHERE id = $1 FOR UPDATE`, loan.ID); err != nil {
		return err
	}

	// Defensive re-check: the tail being replaced must be untouched.
	var touched int
	err = tx.GetContext(ctx, &touched, `
		SELECT COUNT(*)
		FROM cuotas
		WHERE loan_id = $1 AND cuota_numero > $2
		  AND (estado = 'PAGADO' OR interes_pagado > 0 OR abono_capital > 0)
	`, loan.ID, fromNumber)
	if err != nil {
		return err
	}
	if touched > 0 {
		return ErrPaidTail
	}

	query := `
		UPDATE prestamos
		SET cod_cli = $2, importe_credito = $3, modalidad = $4, fecha_credito = $5,
		    num_cuotas = $6, tasa_interes = $7, estado = $8, updated_at = $9
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		loan.ID,
		loan.ClientCode,
		loan.Principal,
		loan.Periodicity,
		loan.StartDate,
		loan.NumInstallments,
		loan.InterestRate,
		loan.Status,
		time.Now(),
	)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cuotas WHERE loan_id = $1 AND cuota_numero > $2`, loan.ID, fromNumber); err != nil {
		return err
	}

	for _, in := range tail {
		if err = insertInstallmentTx(ctx, tx, in); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE prestamos
		SET estado = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *loanRepository) CountByClientCode(ctx context.Context, clientCode string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM prestamos WHERE cod_cli = $1`, clientCode)
	return count, err
}

func (r *loanRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM prestamos ORDER BY created_at`); err != nil {
		return nil, err
	}
	return ids, nil
}
