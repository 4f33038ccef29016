// Package users provides a minimal read-only directory over the users table.
// User management is owned by the identity collaborator; this service only
// resolves recipients for the notification email channel and display names.
package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Email    string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, email
		FROM users WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&user.ID, &user.TenantID, &user.Name, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// Directory is the consumer-driven lookup interface used by the
// notification dispatcher's email channel.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (User, error)
}

var _ Directory = (*Repository)(nil)
