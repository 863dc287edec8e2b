package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fintecol/prestamos-engine/internal/domain"
)

const installmentColumns = `
	id, loan_id, cuota_numero, fecha_vencimiento, interes_a_pagar, capital_plan,
	interes_pagado, abono_capital, fecha_pago, dias_mora, estado, created_at
`

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM cuotas WHERE id = $1`

	var in domain.Installment
	if err := r.db.GetContext(ctx, &in, query, id); err != nil {
		return nil, err
	}

	return &in, nil
}

func (r *installmentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM cuotas WHERE loan_id = $1 ORDER BY cuota_numero`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) List(ctx context.Context, filter domain.InstallmentFilter) ([]*domain.Installment, error) {
	query := `
		SELECT c.id, c.loan_id, c.cuota_numero, c.fecha_vencimiento, c.interes_a_pagar, c.capital_plan,
		       c.interes_pagado, c.abono_capital, c.fecha_pago, c.dias_mora, c.estado, c.created_at
		FROM cuotas c
		JOIN prestamos p ON p.id = c.loan_id
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.ClientCode != "" {
		args = append(args, filter.ClientCode)
		query += fmt.Sprintf(" AND p.cod_cli = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND c.estado = $%d", len(args))
	}
	if filter.LoanID != nil {
		args = append(args, *filter.LoanID)
		query += fmt.Sprintf(" AND c.loan_id = $%d", len(args))
	}
	if filter.OverdueAt != nil {
		args = append(args, *filter.OverdueAt)
		query += fmt.Sprintf(" AND c.estado = 'PENDIENTE' AND c.fecha_vencimiento < $%d", len(args))
	}

	query += " ORDER BY c.loan_id, c.cuota_numero"

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, args...); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) RecordInterestPayment(ctx context.Context, id uuid.UUID, interestPaid decimal.Decimal, paymentDate time.Time, daysLate int) error {
	query := `
		UPDATE cuotas
		SET interes_pagado = $2, fecha_pago = $3, dias_mora = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, interestPaid, paymentDate, daysLate)
	return err
}

func (r *installmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE cuotas
		SET estado = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

func (r *installmentRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM cuotas
		WHERE estado = 'PENDIENTE' AND fecha_vencimiento BETWEEN $1 AND $2
		ORDER BY fecha_vencimiento, cuota_numero
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, from, to); err != nil {
		return nil, err
	}

	return installments, nil
}
