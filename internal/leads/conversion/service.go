// Package conversion implements the lead-to-customer conversion workflow:
// one customer per lead, guaranteed under concurrent requests by an exclusive
// row lock held for the duration of the conversion transaction.
package conversion

import (
	"context"

	"crmops_backend/internal/customers"
	"crmops_backend/internal/events"
	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/internal/notification/dispatcher"
	"crmops_backend/platform/apperr"
	"crmops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const fallbackCustomerName = "Converted Lead"

// LeadStore is the lead repository slice the orchestrator needs: the lock
// primitive, the transactional writes sharing it, and the post-commit read.
type LeadStore interface {
	repository.LeadLocker
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error)
}

// CustomerStore creates customers inside the conversion transaction and reads
// them back for idempotent replies.
type CustomerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, params customers.CreateParams) (customers.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (customers.Customer, error)
}

// Notifier is invoked strictly after commit; failures never surface.
type Notifier interface {
	NotifyLeadConverted(ctx context.Context, lead dispatcher.Lead, customerID uuid.UUID, triggeredBy *uuid.UUID)
}

type Service struct {
	leads     LeadStore
	customers CustomerStore
	notifier  Notifier
	bus       events.Bus
	log       *logger.Logger
}

func NewService(leads LeadStore, customerStore CustomerStore, notifier Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		leads:     leads,
		customers: customerStore,
		notifier:  notifier,
		bus:       bus,
		log:       log,
	}
}

// Result is the conversion outcome. AlreadyConverted distinguishes the
// idempotent echo from a fresh conversion; both are success responses.
type Result struct {
	Lead             repository.Lead
	Customer         customers.Customer
	AlreadyConverted bool
}

// Convert turns a lead into a customer exactly once. The lead row is locked
// for the duration of the transaction, so concurrent calls on the same lead
// serialize; whichever call finds convertedCustomerId already set returns the
// existing customer without writing anything.
func (s *Service) Convert(ctx context.Context, leadID, tenantID uuid.UUID, actorID *uuid.UUID) (Result, error) {
	var result Result
	var oldStatus string

	err := s.leads.WithLockedLead(ctx, leadID, tenantID, func(ctx context.Context, tx pgx.Tx, lead repository.Lead) error {
		// Idempotency check happens with the lock held: a concurrent convert
		// that committed first is visible here.
		if lead.ConvertedCustomerID != nil {
			existing, err := s.customers.GetByID(ctx, *lead.ConvertedCustomerID, tenantID)
			if err != nil {
				return err
			}
			result = Result{Lead: lead, Customer: existing, AlreadyConverted: true}
			return nil
		}

		oldStatus = string(lead.Status)

		customer, err := s.customers.CreateTx(ctx, tx, customers.CreateParams{
			TenantID: tenantID,
			Name:     customerName(lead),
			Company:  lead.Company,
			Email:    lead.Email,
			Phone:    lead.Phone,
			Notes:    lead.Notes,
		})
		if err != nil {
			return err
		}

		converted, err := s.leads.MarkConverted(ctx, tx, leadID, tenantID, customer.ID)
		if err != nil {
			return err
		}

		_, err = s.leads.AddActivityTx(ctx, tx, repository.CreateActivityParams{
			LeadID:    leadID,
			TenantID:  tenantID,
			Type:      domain.ActivityNote,
			Subject:   "Lead Converted",
			Notes:     "Lead converted to customer " + customer.ID.String(),
			CreatedBy: actorID,
			Metadata: map[string]interface{}{
				"customerId": customer.ID.String(),
				"oldStatus":  oldStatus,
			},
		})
		if err != nil {
			return err
		}

		result = Result{Lead: converted, Customer: customer}
		return nil
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return Result{}, apperr.NotFound("lead not found")
		}
		if appErr, ok := err.(*apperr.Error); ok {
			return Result{}, appErr
		}
		s.log.DatabaseError("leads.convert", err)
		return Result{}, apperr.Internal("failed to convert lead")
	}

	if result.AlreadyConverted {
		return result, nil
	}

	// Post-commit side effects only. A failure here is a degraded-UX
	// condition, never a failed conversion.
	if s.notifier != nil {
		s.notifier.NotifyLeadConverted(ctx, dispatcher.Lead{
			ID:         result.Lead.ID,
			TenantID:   result.Lead.TenantID,
			Name:       result.Lead.Name,
			Company:    result.Lead.Company,
			Status:     string(result.Lead.Status),
			AssignedTo: result.Lead.AssignedTo,
		}, result.Customer.ID, actorID)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadConverted{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      result.Lead.ID,
			TenantID:    result.Lead.TenantID,
			CustomerID:  result.Customer.ID,
			OldStatus:   oldStatus,
			TriggeredBy: actorID,
		})
	}

	return result, nil
}

func customerName(lead repository.Lead) string {
	if lead.Name != "" {
		return lead.Name
	}
	if lead.Company != "" {
		return lead.Company
	}
	return fallbackCustomerName
}
