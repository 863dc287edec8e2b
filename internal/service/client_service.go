package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/repository"
	customError "github.com/fintecol/prestamos-engine/pkg/errors"
)

// ClientService manages borrower registration and upkeep.
type ClientService struct {
	clientRepo repository.ClientRepository
	loanRepo   repository.LoanRepository
}

func NewClientService(clientRepo repository.ClientRepository, loanRepo repository.LoanRepository) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		loanRepo:   loanRepo,
	}
}

// Register creates a client with a server-generated sequential code. Codes
// keep the zero padding of the widest existing code, never narrower than
// three digits.
func (s *ClientService) Register(ctx context.Context, request *domain.CreateClientRequest) (*domain.Client, error) {
	code, err := s.clientRepo.NextCode(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := time.Now()
	client := &domain.Client{
		ID:             uuid.New(),
		Codigo:         code,
		Nombre:         request.Nombre,
		Identificacion: request.Identificacion,
		Direccion:      request.Direccion,
		Telefono:       request.Telefono,
		Email:          request.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return client, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NewNotFound("cliente", id)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context) ([]*domain.Client, error) {
	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return clients, nil
}

// Update applies a partial update; the client code is immutable.
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, request *domain.UpdateClientRequest) (*domain.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.Nombre != nil {
		client.Nombre = *request.Nombre
	}
	if request.Identificacion != nil {
		client.Identificacion = request.Identificacion
	}
	if request.Direccion != nil {
		client.Direccion = request.Direccion
	}
	if request.Telefono != nil {
		client.Telefono = request.Telefono
	}
	if request.Email != nil {
		client.Email = request.Email
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return client, nil
}

// Delete removes a client. Blocked while any loan references the code.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	client, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.loanRepo.CountByClientCode(ctx, client.Codigo)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if count > 0 {
		return customError.NewConflict("el cliente %s tiene %d préstamo(s) registrados", client.Codigo, count)
	}

	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}
