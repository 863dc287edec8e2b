package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is a borrower. Codigo is the zero-padded sequential code the server
// assigns at registration; it never changes and loans reference it.
type Client struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Codigo         string    `json:"codigo" db:"codigo"`
	Nombre         string    `json:"nombre" db:"nombre"`
	Identificacion *string   `json:"identificacion,omitempty" db:"identificacion"`
	Direccion      *string   `json:"direccion,omitempty" db:"direccion"`
	Telefono       *string   `json:"telefono,omitempty" db:"telefono"`
	Email          *string   `json:"email,omitempty" db:"email"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type CreateClientRequest struct {
	Nombre         string  `json:"nombre" validate:"required,min=2,max=80"`
	Identificacion *string `json:"identificacion" validate:"omitempty,min=3,max=30"`
	Direccion      *string `json:"direccion" validate:"omitempty,min=3,max=120"`
	Telefono       *string `json:"telefono" validate:"omitempty,e164|numeric"`
	Email          *string `json:"email" validate:"omitempty,email"`
}

// UpdateClientRequest is a partial update; nil fields are left untouched.
// The code is immutable and deliberately absent.
type UpdateClientRequest struct {
	Nombre         *string `json:"nombre" validate:"omitempty,min=2,max=80"`
	Identificacion *string `json:"identificacion" validate:"omitempty,min=3,max=30"`
	Direccion      *string `json:"direccion" validate:"omitempty,min=3,max=120"`
	Telefono       *string `json:"telefono" validate:"omitempty,e164|numeric"`
	Email          *string `json:"email" validate:"omitempty,email"`
}

// ClientSummary is the client slice embedded in loan responses.
type ClientSummary struct {
	ID     uuid.UUID `json:"id"`
	Codigo string    `json:"codigo"`
	Nombre string    `json:"nombre"`
}
