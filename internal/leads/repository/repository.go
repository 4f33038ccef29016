package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crmops_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	Name                string
	Company             string
	Email               string
	Phone               string
	Source              string
	Status              domain.Status
	Priority            domain.Priority
	AssignedTo          *uuid.UUID
	NextFollowUp        *time.Time
	LastContactedAt     *time.Time
	Notes               string
	Tags                []string
	Metadata            map[string]interface{}
	ConvertedCustomerID *uuid.UUID
	ConvertedJobID      *uuid.UUID
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

const leadColumns = `id, tenant_id, name, company, email, phone, source, status, priority,
	assigned_to, next_follow_up, last_contacted_at, notes, tags, metadata,
	converted_customer_id, converted_job_id, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	var status, priority string
	var metadata []byte
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.Name, &lead.Company, &lead.Email, &lead.Phone,
		&lead.Source, &status, &priority,
		&lead.AssignedTo, &lead.NextFollowUp, &lead.LastContactedAt,
		&lead.Notes, &lead.Tags, &metadata,
		&lead.ConvertedCustomerID, &lead.ConvertedJobID, &lead.IsActive,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}

	lead.Status = domain.Status(status)
	lead.Priority = domain.Priority(priority)
	if lead.Tags == nil {
		lead.Tags = []string{}
	}
	lead.Metadata = map[string]interface{}{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return Lead{}, fmt.Errorf("decode lead metadata: %w", err)
		}
	}
	return lead, nil
}

func encodeMetadata(meta map[string]interface{}) ([]byte, error) {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return json.Marshal(meta)
}

type CreateLeadParams struct {
	TenantID     uuid.UUID
	Name         string
	Company      string
	Email        string
	Phone        string
	Source       string
	Status       domain.Status
	Priority     domain.Priority
	AssignedTo   *uuid.UUID
	NextFollowUp *time.Time
	Notes        string
	Tags         []string
	Metadata     map[string]interface{}
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	metadata, err := encodeMetadata(params.Metadata)
	if err != nil {
		return Lead{}, err
	}
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			tenant_id, name, company, email, phone, source, status, priority,
			assigned_to, next_follow_up, notes, tags, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+leadColumns,
		params.TenantID, params.Name, params.Company, params.Email, params.Phone,
		params.Source, string(params.Status), string(params.Priority),
		params.AssignedTo, params.NextFollowUp, params.Notes, tags, metadata,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type UpdateLeadParams struct {
	Name            *string
	Company         *string
	Email           *string
	Phone           *string
	Source          *string
	Status          *domain.Status
	Priority        *domain.Priority
	AssignedTo      *uuid.UUID
	AssignedToSet   bool
	NextFollowUp    *time.Time
	NextFollowUpSet bool
	LastContactedAt *time.Time
	Notes           *string
	Tags            []string
	TagsSet         bool
	Metadata        map[string]interface{}
	MetadataSet     bool
}

// Update applies a partial update over the allow-listed lead fields.
// Status and conversion invariants are enforced by the service layer.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Company != nil {
		add("company", *params.Company)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Phone != nil {
		add("phone", *params.Phone)
	}
	if params.Source != nil {
		add("source", *params.Source)
	}
	if params.Status != nil {
		add("status", string(*params.Status))
	}
	if params.Priority != nil {
		add("priority", string(*params.Priority))
	}
	if params.AssignedToSet {
		add("assigned_to", params.AssignedTo)
	}
	if params.NextFollowUpSet {
		add("next_follow_up", params.NextFollowUp)
	}
	if params.LastContactedAt != nil {
		add("last_contacted_at", *params.LastContactedAt)
	}
	if params.Notes != nil {
		add("notes", *params.Notes)
	}
	if params.TagsSet {
		tags := params.Tags
		if tags == nil {
			tags = []string{}
		}
		add("tags", tags)
	}
	if params.MetadataSet {
		metadata, err := encodeMetadata(params.Metadata)
		if err != nil {
			return Lead{}, err
		}
		add("metadata", metadata)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id, tenantID)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id, tenantID)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+leadColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Archive soft-deletes a lead: the row stays, the lead leaves every active
// view, and any prior conversion link is preserved.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET is_active = FALSE, status = 'lost', updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		id, tenantID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// WithLockedLead runs fn inside a transaction holding an exclusive row lock
// on the lead. A second caller for the same lead id blocks on the SELECT ...
// FOR UPDATE until the first transaction commits or rolls back, so checks
// performed inside fn observe the other writer's outcome. Returning an error
// from fn rolls the whole transaction back.
func (r *Repository) WithLockedLead(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, lead Lead) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`, id, tenantID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := fn(ctx, tx, lead); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MarkConverted flips a lead into its converted terminal state within the
// caller's transaction: status becomes converted, the customer link is set,
// and the lead leaves the active pipeline.
func (r *Repository) MarkConverted(ctx context.Context, tx pgx.Tx, id uuid.UUID, tenantID uuid.UUID, customerID uuid.UUID) (Lead, error) {
	row := tx.QueryRow(ctx, `
		UPDATE leads
		SET status = 'converted', converted_customer_id = $3, is_active = FALSE, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND converted_customer_id IS NULL
		RETURNING `+leadColumns,
		id, tenantID, customerID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// SetLastContactedAt stamps the most recent outbound contact moment.
func (r *Repository) SetLastContactedAt(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET last_contacted_at = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, at)
	return err
}
