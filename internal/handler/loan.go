package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/service"
	"github.com/fintecol/prestamos-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	payments  *service.PaymentService
	resolver  *service.StatusResolver
	validator *validator.Validate
}

func NewLoanHandler(
	loanService *service.LoanService,
	paymentService *service.PaymentService,
	resolver *service.StatusResolver,
) *LoanHandler {
	return &LoanHandler{
		service:   loanService,
		payments:  paymentService,
		resolver:  resolver,
		validator: newValidator(),
	}
}

// CreateAuto registers a loan whose installment schedule is generated from
// the header fields.
func (h *LoanHandler) CreateAuto(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateAutoLoanRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	loan, err := h.service.CreateAutoLoan(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, loan)
}

// CreateManual registers a loan with a caller-supplied installment plan.
func (h *LoanHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateManualLoanRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	loan, err := h.service.CreateManualLoan(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, loan)
}

// Update changes the terms of an auto loan and regenerates its unpaid tail.
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.UpdateAutoLoanRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	loan, err := h.service.UpdateAutoLoan(r.Context(), loanID, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

// Replan replaces the unpaid tail of a manual loan with a new plan covering
// the outstanding capital.
func (h *LoanHandler) Replan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.ReplanRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	result, err := h.service.Replan(r.Context(), loanID, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.Get(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	clientCode := r.URL.Query().Get("cod_cli")
	page := queryInt(r, "page", "1")
	pageSize := queryInt(r, "page_size", "20")

	loans, total, err := h.service.List(r.Context(), clientCode, page, pageSize)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"prestamos": loans,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Plan returns the full installment schedule with the editable flag set on
// installments past the paid head.
func (h *LoanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	plan, err := h.service.GetInstallmentPlan(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, plan)
}

// Status returns the derived status summary of a loan.
func (h *LoanHandler) Status(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	summary, err := h.resolver.GetLoanStatus(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, summary)
}

// Prepayments lists the principal prepayments applied to a loan.
func (h *LoanHandler) Prepayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	payments, err := h.payments.ListPrepayments(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, payments)
}
