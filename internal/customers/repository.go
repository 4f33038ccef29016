// Package customers provides the customer record store. The wider customer
// domain (jobs, invoicing, dashboards) lives in a separate collaborator; this
// service only needs the creation contract used by lead conversion plus a
// read path for returning the created row.
package customers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("customer not found")

type Customer struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Company   string
	Email     string
	Phone     string
	Notes     string
	CreatedAt time.Time
}

type CreateParams struct {
	TenantID uuid.UUID
	Name     string
	Company  string
	Email    string
	Phone    string
	Notes    string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, tenant_id, name, company, email, phone, notes, created_at`

// CreateTx inserts a customer within the caller's transaction. The conversion
// orchestrator uses this so the customer row commits or rolls back together
// with the lead update.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, params CreateParams) (Customer, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, name, company, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		params.TenantID, params.Name, params.Company, params.Email, params.Phone, params.Notes,
	)
	return scanCustomer(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	customer, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return customer, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Company, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt)
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Store is the consumer-driven interface used by the conversion orchestrator.
type Store interface {
	CreateTx(ctx context.Context, tx pgx.Tx, params CreateParams) (Customer, error)
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Customer, error)
}

var _ Store = (*Repository)(nil)
