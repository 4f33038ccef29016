package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crmops_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Activity is one append-only audit-trail entry on a lead.
type Activity struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	TenantID     uuid.UUID
	Type         domain.ActivityType
	Subject      string
	Notes        string
	CreatedBy    *uuid.UUID
	NextStep     string
	FollowUpDate *time.Time
	Metadata     map[string]interface{}
	CreatedAt    time.Time
}

type CreateActivityParams struct {
	LeadID       uuid.UUID
	TenantID     uuid.UUID
	Type         domain.ActivityType
	Subject      string
	Notes        string
	CreatedBy    *uuid.UUID
	NextStep     string
	FollowUpDate *time.Time
	Metadata     map[string]interface{}
}

const activityColumns = `id, lead_id, tenant_id, type, subject, notes, created_by,
	next_step, follow_up_date, metadata, created_at`

func scanActivity(row rowScanner) (Activity, error) {
	var activity Activity
	var activityType string
	var metadata []byte
	err := row.Scan(
		&activity.ID, &activity.LeadID, &activity.TenantID, &activityType,
		&activity.Subject, &activity.Notes, &activity.CreatedBy,
		&activity.NextStep, &activity.FollowUpDate, &metadata, &activity.CreatedAt,
	)
	if err != nil {
		return Activity{}, err
	}

	activity.Type = domain.ActivityType(activityType)
	activity.Metadata = map[string]interface{}{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &activity.Metadata); err != nil {
			return Activity{}, fmt.Errorf("decode activity metadata: %w", err)
		}
	}
	return activity, nil
}

// AddActivity appends an audit-trail entry outside any transaction.
func (r *Repository) AddActivity(ctx context.Context, params CreateActivityParams) (Activity, error) {
	return addActivity(ctx, r.pool, params)
}

// AddActivityTx appends an audit-trail entry within the caller's transaction,
// used by the conversion orchestrator so the synthetic "Lead Converted" entry
// commits or rolls back together with the conversion itself.
func (r *Repository) AddActivityTx(ctx context.Context, tx pgx.Tx, params CreateActivityParams) (Activity, error) {
	return addActivity(ctx, tx, params)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func addActivity(ctx context.Context, q queryRower, params CreateActivityParams) (Activity, error) {
	metadata, err := encodeMetadata(params.Metadata)
	if err != nil {
		return Activity{}, err
	}

	row := q.QueryRow(ctx, `
		INSERT INTO lead_activities (
			lead_id, tenant_id, type, subject, notes, created_by, next_step, follow_up_date, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+activityColumns,
		params.LeadID, params.TenantID, string(params.Type), params.Subject, params.Notes,
		params.CreatedBy, params.NextStep, params.FollowUpDate, metadata,
	)
	return scanActivity(row)
}

// ListActivities returns all activities for a lead, newest first.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC, id DESC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return activities, nil
}
