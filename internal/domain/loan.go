package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan statuses. The stored estado column is a denormalized copy; the status
// resolver re-derives it from payment facts on every read.
const (
	LoanStatusPendiente = "PENDIENTE"
	LoanStatusPagado    = "PAGADO"
	LoanStatusVencido   = "VENCIDO"
)

// Plan modes. Immutable after creation.
const (
	PlanModeAuto   = "auto"
	PlanModeManual = "manual"
)

// Periodicities. Quincenal installments fall every 15 days.
const (
	PeriodicityMensual   = "Mensual"
	PeriodicityQuincenal = "Quincenal"
)

// Loan represents a credit extended to a client, repaid in installments.
type Loan struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ClientCode      string          `json:"cod_cli" db:"cod_cli"`
	Principal       decimal.Decimal `json:"importe_credito" db:"importe_credito"`
	InterestRate    decimal.Decimal `json:"tasa_interes" db:"tasa_interes"`
	Periodicity     string          `json:"modalidad" db:"modalidad"`
	NumInstallments int             `json:"num_cuotas" db:"num_cuotas"`
	StartDate       time.Time       `json:"fecha_credito" db:"fecha_credito"`
	PlanMode        string          `json:"plan_mode" db:"plan_mode"`
	Status          string          `json:"estado" db:"estado"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateAutoLoanRequest struct {
	ClientCode      string          `json:"cod_cli" validate:"required"`
	Principal       decimal.Decimal `json:"monto" validate:"required,decimal_gt=0"`
	InterestRate    decimal.Decimal `json:"tasa_interes" validate:"decimal_gte=0"`
	Periodicity     string          `json:"modalidad" validate:"required,oneof=Mensual Quincenal"`
	NumInstallments int             `json:"num_cuotas" validate:"required,gt=0"`
	StartDate       Date            `json:"fecha_inicio" validate:"required"`
}

// PlanEntry is one caller-supplied installment of a manual plan.
type PlanEntry struct {
	Capital  decimal.Decimal `json:"capital" validate:"decimal_gte=0"`
	Interest decimal.Decimal `json:"interes" validate:"decimal_gte=0"`
}

type CreateManualLoanRequest struct {
	ClientCode      string          `json:"cod_cli" validate:"required"`
	Principal       decimal.Decimal `json:"monto" validate:"required,decimal_gt=0"`
	InterestRate    decimal.Decimal `json:"tasa" validate:"decimal_gte=0"`
	Periodicity     string          `json:"modalidad" validate:"required,oneof=Mensual Quincenal"`
	NumInstallments int             `json:"num_cuotas" validate:"required,gt=0"`
	StartDate       Date            `json:"fecha_inicio" validate:"required"`
	Plan            []PlanEntry     `json:"plan" validate:"required,min=1,dive"`
}

type UpdateAutoLoanRequest struct {
	ClientCode      string          `json:"cod_cli" validate:"required"`
	Principal       decimal.Decimal `json:"monto" validate:"required,decimal_gt=0"`
	InterestRate    decimal.Decimal `json:"tasa_interes" validate:"decimal_gte=0"`
	Periodicity     string          `json:"modalidad" validate:"required,oneof=Mensual Quincenal"`
	NumInstallments int             `json:"num_cuotas" validate:"required,gt=0"`
	StartDate       Date            `json:"fecha_inicio" validate:"required"`
}

type ReplanRequest struct {
	Periodicity string      `json:"modalidad" validate:"omitempty,oneof=Mensual Quincenal"`
	Plan        []PlanEntry `json:"plan" validate:"required,min=1,dive"`
}

type LoanResponse struct {
	Loan         *Loan          `json:"loan"`
	Client       *ClientSummary `json:"cliente"`
	Installments []*Installment `json:"cuotas,omitempty"`
}

// ReplanResult reports what the replan actually touched.
type ReplanResult struct {
	LoanID              uuid.UUID `json:"id"`
	LastPaidSeq         int       `json:"last_paid_num"`
	NewInstallmentCount int       `json:"num_cuotas"`
	Periodicity         string    `json:"modalidad"`
}

// LoanStatusSummary is the derived, cacheable view of a loan's standing.
type LoanStatusSummary struct {
	LoanID               uuid.UUID       `json:"loan_id"`
	Status               string          `json:"estado"`
	OutstandingPrincipal decimal.Decimal `json:"capital_pendiente"`
	InterestCollected    decimal.Decimal `json:"interes_recaudado"`
	TotalInstallments    int             `json:"total_cuotas"`
	PaidInstallments     int             `json:"cuotas_pagadas"`
	OverdueCount         int             `json:"cuotas_vencidas"`
	LastDueDate          *time.Time      `json:"vence_ultima_cuota,omitempty"`
}

// InstallmentPlan is the full editable view of a loan's schedule.
type InstallmentPlan struct {
	Loan         *Loan               `json:"loan"`
	Installments []*InstallmentEntry `json:"plan"`
	LastPaidSeq  int                 `json:"last_paid_num"`
}
