package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fintecol/prestamos-engine/internal/domain"
)

type clientRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clientes (id, codigo, nombre, identificacion, direccion, telefono, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Codigo,
		client.Nombre,
		client.Identificacion,
		client.Direccion,
		client.Telefono,
		client.Email,
		client.CreatedAt,
		client.UpdatedAt,
	)

	return err
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `
		SELECT id, codigo, nombre, identificacion, direccion, telefono, email, created_at, updated_at
		FROM clientes
		WHERE id = $1
	`

	var client domain.Client
	if err := r.db.GetContext(ctx, &client, query, id); err != nil {
		return nil, err
	}

	return &client, nil
}

func (r *clientRepository) GetByCode(ctx context.Context, codigo string) (*domain.Client, error) {
	query := `
		SELECT id, codigo, nombre, identificacion, direccion, telefono, email, created_at, updated_at
		FROM clientes
		WHERE codigo = $1
	`

	var client domain.Client
	if err := r.db.GetContext(ctx, &client, query, codigo); err != nil {
		return nil, err
	}

	return &client, nil
}

func (r *clientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	query := `
		SELECT id, codigo, nombre, identificacion, direccion, telefono, email, created_at, updated_at
		FROM clientes
		ORDER BY codigo
	`

	var clients []*domain.Client
	if err := r.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	query := `
		UPDATE clientes
		SET nombre = $2, identificacion = $3, direccion = $4, telefono = $5, email = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Nombre,
		client.Identificacion,
		client.Direccion,
		client.Telefono,
		client.Email,
		time.Now(),
	)

	return err
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clientes WHERE id = $1`, id)
	return err
}

func (r *clientRepository) NextCode(ctx context.Context) (string, error) {
	// Width follows the widest existing code so historical zero padding is
	// preserved (003 ... 099, 100).
	query := `
		SELECT COALESCE(MAX(CAST(codigo AS INTEGER)), 0) AS max_num,
		       COALESCE(MAX(LENGTH(codigo)), 3)          AS width
		FROM clientes
	`

	var row struct {
		MaxNum int `db:"max_num"`
		Width  int `db:"width"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return "", err
	}

	width := row.Width
	if width < 3 {
		width = 3
	}

	return fmt.Sprintf("%0*d", width, row.MaxNum+1), nil
}
