package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error)
	GetDetail(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (LeadDetail, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	Summary(ctx context.Context, tenantID uuid.UUID, window time.Duration, upcomingLimit int) (Summary, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, params UpdateLeadParams) (Lead, error)
	Archive(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error)
	SetLastContactedAt(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, at time.Time) error
}

// LeadLocker provides the conversion workflow's exclusive-lock primitive
// plus the writes that must share its transaction.
type LeadLocker interface {
	WithLockedLead(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, lead Lead) error) error
	MarkConverted(ctx context.Context, tx pgx.Tx, id uuid.UUID, tenantID uuid.UUID, customerID uuid.UUID) (Lead, error)
	AddActivityTx(ctx context.Context, tx pgx.Tx, params CreateActivityParams) (Activity, error)
}

// ActivityReader provides read access to the per-lead audit trail.
type ActivityReader interface {
	ListActivities(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]Activity, error)
}

// ActivityWriter appends audit-trail entries outside a transaction.
type ActivityWriter interface {
	AddActivity(ctx context.Context, params CreateActivityParams) (Activity, error)
}

// Compile-time checks that Repository satisfies all segregated interfaces.
var (
	_ LeadReader     = (*Repository)(nil)
	_ LeadWriter     = (*Repository)(nil)
	_ LeadLocker     = (*Repository)(nil)
	_ ActivityReader = (*Repository)(nil)
	_ ActivityWriter = (*Repository)(nil)
)
