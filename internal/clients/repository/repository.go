package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"configurator_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Client is the database model for a configurator client.
type Client struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Address   *string   `db:"address"`
	Email     *string   `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

const clientNotFoundMsg = "client not found"

// Repository provides database operations for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new clients repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByID loads a client by its identifier.
func (r *Repository) FindByID(ctx context.Context, id string) (*Client, error) {
	query := `
		SELECT id, name, phone, address, email, created_at
		FROM clients
		WHERE id = $1`

	var client Client
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.Address,
		&client.Email,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	return &client, nil
}
