package transport

import (
	"testing"
	"time"

	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"

	"github.com/google/uuid"
)

func TestToLeadResponseDefaultsCollections(t *testing.T) {
	resp := ToLeadResponse(repository.Lead{ID: uuid.New(), Name: "Jane"})
	if resp.Tags == nil {
		t.Error("tags should serialize as an empty array, not null")
	}
	if resp.Metadata == nil {
		t.Error("metadata should serialize as an empty object, not null")
	}
}

func TestToLeadDetailResponseMapsAssociations(t *testing.T) {
	assigneeID := uuid.New()
	customerID := uuid.New()
	detail := repository.LeadDetail{
		Lead: repository.Lead{
			ID:                  uuid.New(),
			Name:                "Jane Prospect",
			Status:              domain.StatusConverted,
			AssignedTo:          &assigneeID,
			ConvertedCustomerID: &customerID,
		},
		Assignee: &repository.UserSummary{ID: assigneeID, Name: "Sam Rep", Email: "sam@example.com"},
		Customer: &repository.CustomerSummary{
			ID:      customerID,
			Name:    "Jane Prospect",
			Company: "Acme BV",
			Email:   "jane@acme.example",
		},
		Activities: []repository.Activity{
			{ID: uuid.New(), Type: domain.ActivityNote, Subject: "Lead Converted", CreatedAt: time.Now()},
		},
	}

	resp := ToLeadDetailResponse(detail)
	if resp.Assignee == nil || resp.Assignee.Name != "Sam Rep" {
		t.Fatalf("assignee = %+v, want Sam Rep", resp.Assignee)
	}
	if resp.Customer == nil {
		t.Fatal("customer association missing")
	}
	if resp.Customer.Company != "Acme BV" {
		t.Errorf("customer company = %q, want Acme BV", resp.Customer.Company)
	}
	if len(resp.Activities) != 1 || resp.Activities[0].Subject != "Lead Converted" {
		t.Errorf("activities = %+v, want the conversion entry", resp.Activities)
	}
}
