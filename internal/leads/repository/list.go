package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crmops_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type ListParams struct {
	TenantID   uuid.UUID
	Search     string
	Status     *domain.Status
	AssignedTo *uuid.UUID
	Priority   *domain.Priority
	Source     *string
	IsActive   *bool
	Offset     int
	Limit      int
}

// List returns leads ordered by next follow-up ascending (nulls last), then
// newest first, so the work queue surfaces what is due next.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT `+leadColumns+`
		FROM leads
		WHERE %s
		ORDER BY next_follow_up ASC NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	// Tenant ID is always the first filter (mandatory for tenant isolation)
	whereClauses := []string{"tenant_id = $1"}
	args := []interface{}{params.TenantID}
	argIdx := 2

	addEquals := func(column string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR company ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, pattern)
		argIdx++
	}
	if params.Status != nil {
		addEquals("status", string(*params.Status))
	}
	if params.AssignedTo != nil {
		addEquals("assigned_to", *params.AssignedTo)
	}
	if params.Priority != nil {
		addEquals("priority", string(*params.Priority))
	}
	if params.Source != nil {
		addEquals("source", *params.Source)
	}
	if params.IsActive != nil {
		addEquals("is_active", *params.IsActive)
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

// StatusCount pairs a lifecycle state with the number of leads in it.
type StatusCount struct {
	Status domain.Status
	Count  int
}

// Summary aggregates the pipeline: per-status counts plus the next few
// active leads whose follow-up falls inside the window.
type Summary struct {
	Counts   []StatusCount
	Upcoming []Lead
}

func (r *Repository) Summary(ctx context.Context, tenantID uuid.UUID, window time.Duration, upcomingLimit int) (Summary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE tenant_id = $1
		GROUP BY status
		ORDER BY status
	`, tenantID)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	summary := Summary{Counts: make([]StatusCount, 0, 5), Upcoming: make([]Lead, 0, upcomingLimit)}
	for rows.Next() {
		var item StatusCount
		var status string
		if err := rows.Scan(&status, &item.Count); err != nil {
			return Summary{}, err
		}
		item.Status = domain.Status(status)
		summary.Counts = append(summary.Counts, item)
	}
	if rows.Err() != nil {
		return Summary{}, rows.Err()
	}

	upcoming, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1
		  AND is_active = TRUE
		  AND next_follow_up IS NOT NULL
		  AND next_follow_up <= now() + $2
		ORDER BY next_follow_up ASC
		LIMIT $3
	`, tenantID, window, upcomingLimit)
	if err != nil {
		return Summary{}, err
	}
	defer upcoming.Close()

	for upcoming.Next() {
		lead, err := scanLead(upcoming)
		if err != nil {
			return Summary{}, err
		}
		summary.Upcoming = append(summary.Upcoming, lead)
	}
	if upcoming.Err() != nil {
		return Summary{}, upcoming.Err()
	}

	return summary, nil
}
