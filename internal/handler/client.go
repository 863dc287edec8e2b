package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/service"
	"github.com/fintecol/prestamos-engine/pkg/response"
)

type ClientHandler struct {
	service   *service.ClientService
	validator *validator.Validate
}

func NewClientHandler(service *service.ClientService) *ClientHandler {
	return &ClientHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateClientRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	client, err := h.service.Register(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, client)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}

	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, client)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.List(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, clients)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}

	var request domain.UpdateClientRequest
	if !decode(w, r, &request) {
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "solicitud inválida", err)
		return
	}

	client, err := h.service.Update(r.Context(), id, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, client)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"mensaje": "cliente eliminado"})
}
