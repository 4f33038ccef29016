package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crmops_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserSummary is a lightweight display projection of an assignee.
type UserSummary struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// CustomerSummary is a lightweight display projection of a converted customer.
type CustomerSummary struct {
	ID      uuid.UUID
	Name    string
	Company string
	Email   string
}

// LeadDetail is a lead with its display associations: assignee,
// converted customer, and the full activity history (newest first).
type LeadDetail struct {
	Lead       Lead
	Assignee   *UserSummary
	Customer   *CustomerSummary
	Activities []Activity
}

// GetDetail loads a lead with its display associations.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (LeadDetail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT l.id, l.tenant_id, l.name, l.company, l.email, l.phone, l.source, l.status, l.priority,
			l.assigned_to, l.next_follow_up, l.last_contacted_at, l.notes, l.tags, l.metadata,
			l.converted_customer_id, l.converted_job_id, l.is_active, l.created_at, l.updated_at,
			u.name, u.email, c.name, c.company, c.email
		FROM leads l
		LEFT JOIN users u ON u.id = l.assigned_to AND u.tenant_id = l.tenant_id
		LEFT JOIN customers c ON c.id = l.converted_customer_id AND c.tenant_id = l.tenant_id
		WHERE l.id = $1 AND l.tenant_id = $2
	`, id, tenantID)

	detail, err := scanLeadDetail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadDetail{}, ErrNotFound
	}
	if err != nil {
		return LeadDetail{}, err
	}

	activities, err := r.ListActivities(ctx, id, tenantID)
	if err != nil {
		return LeadDetail{}, err
	}
	detail.Activities = activities

	return detail, nil
}

func scanLeadDetail(row rowScanner) (LeadDetail, error) {
	var detail LeadDetail
	lead := &detail.Lead
	var status, priority string
	var metadata []byte
	var assigneeName, assigneeEmail, customerName, customerCompany, customerEmail *string

	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.Name, &lead.Company, &lead.Email, &lead.Phone,
		&lead.Source, &status, &priority,
		&lead.AssignedTo, &lead.NextFollowUp, &lead.LastContactedAt,
		&lead.Notes, &lead.Tags, &metadata,
		&lead.ConvertedCustomerID, &lead.ConvertedJobID, &lead.IsActive,
		&lead.CreatedAt, &lead.UpdatedAt,
		&assigneeName, &assigneeEmail, &customerName, &customerCompany, &customerEmail,
	)
	if err != nil {
		return LeadDetail{}, err
	}

	lead.Status = domain.Status(status)
	lead.Priority = domain.Priority(priority)
	if lead.Tags == nil {
		lead.Tags = []string{}
	}
	lead.Metadata = map[string]interface{}{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return LeadDetail{}, fmt.Errorf("decode lead metadata: %w", err)
		}
	}

	if lead.AssignedTo != nil && assigneeName != nil {
		detail.Assignee = &UserSummary{
			ID:    *lead.AssignedTo,
			Name:  *assigneeName,
			Email: strOrEmpty(assigneeEmail),
		}
	}
	if lead.ConvertedCustomerID != nil && customerName != nil {
		detail.Customer = &CustomerSummary{
			ID:      *lead.ConvertedCustomerID,
			Name:    *customerName,
			Company: strOrEmpty(customerCompany),
			Email:   strOrEmpty(customerEmail),
		}
	}

	return detail, nil
}

func strOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
