package transport

import (
	"time"

	"crmops_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	Name         string                 `json:"name" validate:"omitempty,max=200"`
	Company      string                 `json:"company" validate:"omitempty,max=200"`
	Email        string                 `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string                 `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	Source       string                 `json:"source,omitempty" validate:"omitempty,max=100"`
	Status       string                 `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified lost"`
	Priority     string                 `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AssignedTo   *uuid.UUID             `json:"assignedTo,omitempty"`
	NextFollowUp *time.Time             `json:"nextFollowUp,omitempty"`
	Notes        string                 `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Tags         []string               `json:"tags,omitempty" validate:"omitempty,max=50,dive,min=1,max=60"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateLeadRequest struct {
	Name         *string                `json:"name,omitempty" validate:"omitempty,max=200"`
	Company      *string                `json:"company,omitempty" validate:"omitempty,max=200"`
	Email        *string                `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string                `json:"phone,omitempty" validate:"omitempty,max=30"`
	Source       *string                `json:"source,omitempty" validate:"omitempty,max=100"`
	Status       *string                `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified converted lost"`
	Priority     *string                `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AssignedTo   OptionalUUID           `json:"assignedTo,omitempty" validate:"-"`
	NextFollowUp OptionalTime           `json:"nextFollowUp,omitempty" validate:"-"`
	Notes        *string                `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Tags         []string               `json:"tags,omitempty" validate:"omitempty,max=50,dive,min=1,max=60"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type CreateActivityRequest struct {
	Type         string                 `json:"type" validate:"required,oneof=call email meeting note task"`
	Subject      string                 `json:"subject" validate:"required,min=1,max=300"`
	Notes        string                 `json:"notes,omitempty" validate:"omitempty,max=10000"`
	NextStep     string                 `json:"nextStep,omitempty" validate:"omitempty,max=300"`
	FollowUpDate *time.Time             `json:"followUpDate,omitempty"`
	Status       string                 `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified lost"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type ListLeadsRequest struct {
	Search     string `form:"search" validate:"max=100"`
	Status     string `form:"status" validate:"omitempty,oneof=new contacted qualified converted lost"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Priority   string `form:"priority" validate:"omitempty,oneof=low medium high"`
	Source     string `form:"source" validate:"omitempty,max=100"`
	IsActive   string `form:"isActive" validate:"omitempty,oneof=true false"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type LeadResponse struct {
	ID                  uuid.UUID              `json:"id"`
	TenantID            uuid.UUID              `json:"tenantId"`
	Name                string                 `json:"name"`
	Company             string                 `json:"company"`
	Email               string                 `json:"email"`
	Phone               string                 `json:"phone"`
	Source              string                 `json:"source"`
	Status              string                 `json:"status"`
	Priority            string                 `json:"priority"`
	AssignedTo          *uuid.UUID             `json:"assignedTo"`
	NextFollowUp        *time.Time             `json:"nextFollowUp"`
	LastContactedAt     *time.Time             `json:"lastContactedAt"`
	Notes               string                 `json:"notes"`
	Tags                []string               `json:"tags"`
	Metadata            map[string]interface{} `json:"metadata"`
	ConvertedCustomerID *uuid.UUID             `json:"convertedCustomerId"`
	ConvertedJobID      *uuid.UUID             `json:"convertedJobId"`
	IsActive            bool                   `json:"isActive"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

type UserSummaryResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type CustomerSummaryResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Company string    `json:"company"`
	Email   string    `json:"email"`
}

type ActivityResponse struct {
	ID           uuid.UUID              `json:"id"`
	LeadID       uuid.UUID              `json:"leadId"`
	Type         string                 `json:"type"`
	Subject      string                 `json:"subject"`
	Notes        string                 `json:"notes"`
	CreatedBy    *uuid.UUID             `json:"createdBy"`
	NextStep     string                 `json:"nextStep"`
	FollowUpDate *time.Time             `json:"followUpDate"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"createdAt"`
}

type LeadDetailResponse struct {
	LeadResponse
	Assignee   *UserSummaryResponse     `json:"assignee"`
	Customer   *CustomerSummaryResponse `json:"customer"`
	Activities []ActivityResponse       `json:"activities"`
}

type ConvertLeadResponse struct {
	Lead     LeadResponse     `json:"lead"`
	Customer CustomerResponse `json:"customer"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

type StatusCountResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type SummaryResponse struct {
	Counts   []StatusCountResponse `json:"counts"`
	Upcoming []LeadResponse        `json:"upcoming"`
}

// Mapping helpers

func ToLeadResponse(lead repository.Lead) LeadResponse {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := lead.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return LeadResponse{
		ID:                  lead.ID,
		TenantID:            lead.TenantID,
		Name:                lead.Name,
		Company:             lead.Company,
		Email:               lead.Email,
		Phone:               lead.Phone,
		Source:              lead.Source,
		Status:              string(lead.Status),
		Priority:            string(lead.Priority),
		AssignedTo:          lead.AssignedTo,
		NextFollowUp:        lead.NextFollowUp,
		LastContactedAt:     lead.LastContactedAt,
		Notes:               lead.Notes,
		Tags:                tags,
		Metadata:            metadata,
		ConvertedCustomerID: lead.ConvertedCustomerID,
		ConvertedJobID:      lead.ConvertedJobID,
		IsActive:            lead.IsActive,
		CreatedAt:           lead.CreatedAt,
		UpdatedAt:           lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

func ToActivityResponse(activity repository.Activity) ActivityResponse {
	metadata := activity.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return ActivityResponse{
		ID:           activity.ID,
		LeadID:       activity.LeadID,
		Type:         string(activity.Type),
		Subject:      activity.Subject,
		Notes:        activity.Notes,
		CreatedBy:    activity.CreatedBy,
		NextStep:     activity.NextStep,
		FollowUpDate: activity.FollowUpDate,
		Metadata:     metadata,
		CreatedAt:    activity.CreatedAt,
	}
}

func ToActivityResponses(activities []repository.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		out = append(out, ToActivityResponse(activity))
	}
	return out
}

func ToLeadDetailResponse(detail repository.LeadDetail) LeadDetailResponse {
	resp := LeadDetailResponse{
		LeadResponse: ToLeadResponse(detail.Lead),
		Activities:   ToActivityResponses(detail.Activities),
	}
	if detail.Assignee != nil {
		resp.Assignee = &UserSummaryResponse{
			ID:    detail.Assignee.ID,
			Name:  detail.Assignee.Name,
			Email: detail.Assignee.Email,
		}
	}
	if detail.Customer != nil {
		resp.Customer = &CustomerSummaryResponse{
			ID:      detail.Customer.ID,
			Name:    detail.Customer.Name,
			Company: detail.Customer.Company,
			Email:   detail.Customer.Email,
		}
	}
	return resp
}

func ToSummaryResponse(summary repository.Summary) SummaryResponse {
	counts := make([]StatusCountResponse, 0, len(summary.Counts))
	for _, count := range summary.Counts {
		counts = append(counts, StatusCountResponse{Status: string(count.Status), Count: count.Count})
	}
	return SummaryResponse{
		Counts:   counts,
		Upcoming: ToLeadResponses(summary.Upcoming),
	}
}
