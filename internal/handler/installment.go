package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/service"
	"github.com/fintecol/prestamos-engine/pkg/response"
)

type InstallmentHandler struct {
	service   *service.PaymentService
	resolver  *service.StatusResolver
	validator *validator.Validate
}

func NewInstallmentHandler(service *service.PaymentService, resolver *service.StatusResolver) *InstallmentHandler {
	return &InstallmentHandler{
		service:   service,
		resolver:  resolver,
		validator: newValidator(),
	}
}

// Summary returns the derived standing of every loan in one response, so a
// dashboard does not have to query each loan's estado separately.
func (h *InstallmentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.resolver.ListLoanSummaries(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"prestamos": summaries,
		"total":     len(summaries),
	})
}

func (h *InstallmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "cuotaId")
	if !ok {
		return
	}

	installment, err := h.service.GetInstallment(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, installment)
}

// List returns installments filtered by client code, status, loan, or a
// vencidas=true flag that keeps only overdue ones.
func (h *InstallmentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.InstallmentFilter{
		ClientCode: r.URL.Query().Get("cod_cli"),
		Status:     r.URL.Query().Get("estado"),
	}
	if raw := r.URL.Query().Get("loan_id"); raw != "" {
		loanID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "loan_id inválido: "+raw, err)
			return
		}
		filter.LoanID = &loanID
	}
	if r.URL.Query().Get("vencidas") == "true" {
		now := time.Now()
		filter.OverdueAt = &now
	}

	installments, err := h.service.ListInstallments(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, installments)
}

// RecordPayment registers an interest payment against an installment.
func (h *InstallmentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "cuotaId")
	if !ok {
		return
	}

	var request domain.RecordInterestPaymentRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	installment, err := h.service.RecordInterestPayment(r.Context(), id, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, installment)
}

// RecordPrepayment applies a principal prepayment through an installment.
func (h *InstallmentHandler) RecordPrepayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "cuotaId")
	if !ok {
		return
	}

	var request domain.RecordPrepaymentRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	payment, err := h.service.RecordPrincipalPrepayment(r.Context(), id, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, payment)
}
