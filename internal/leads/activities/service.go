// Package activities implements the per-lead audit trail: listing entries and
// logging new ones, with the optional side effects an activity carries (moving
// the follow-up date, overriding status, stamping last contact).
package activities

import (
	"context"
	"time"

	"crmops_backend/internal/events"
	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/internal/notification/dispatcher"
	"crmops_backend/platform/apperr"
	"crmops_backend/platform/logger"
	"crmops_backend/platform/sanitize"

	"github.com/google/uuid"
)

type Store interface {
	repository.ActivityReader
	repository.ActivityWriter
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error)
	Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	SetLastContactedAt(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, at time.Time) error
}

// Notifier delivers the activity notification. Best-effort: the activity
// insert has already committed by the time this runs, and a delivery failure
// never fails the request.
type Notifier interface {
	NotifyLeadActivityLogged(ctx context.Context, lead dispatcher.Lead, activity dispatcher.Activity, triggeredBy *uuid.UUID)
	NotifyLeadStatusChanged(ctx context.Context, lead dispatcher.Lead, oldStatus, newStatus string, triggeredBy *uuid.UUID)
}

// FollowUpScheduler enqueues the follow-up reminder when an activity sets one.
type FollowUpScheduler interface {
	ScheduleFollowUp(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time) error
}

type Service struct {
	repo      Store
	notifier  Notifier
	scheduler FollowUpScheduler
	bus       events.Bus
	log       *logger.Logger
}

func NewService(repo Store, notifier Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		bus:      bus,
		log:      log,
	}
}

// SetFollowUpScheduler injects the reminder scheduler. Optional.
func (s *Service) SetFollowUpScheduler(scheduler FollowUpScheduler) {
	s.scheduler = scheduler
}

func (s *Service) List(ctx context.Context, leadID, tenantID uuid.UUID) ([]repository.Activity, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("activities.list.fetch_lead", err)
		return nil, apperr.Internal("failed to load lead")
	}

	items, err := s.repo.ListActivities(ctx, leadID, tenantID)
	if err != nil {
		s.log.DatabaseError("activities.list", err)
		return nil, apperr.Internal("failed to list activities")
	}
	return items, nil
}

type LogInput struct {
	Type         string
	Subject      string
	Notes        string
	NextStep     string
	FollowUpDate *time.Time
	Status       string
	Metadata     map[string]interface{}
}

// Log appends an activity to the lead's audit trail. A follow-up date or a
// status override on the input additionally updates the parent lead as
// separate writes after the insert; the activity itself is never rolled back
// by a failure in those follow-on updates.
func (s *Service) Log(ctx context.Context, leadID, tenantID uuid.UUID, actorID *uuid.UUID, input LogInput) (repository.Activity, error) {
	if !domain.IsValidActivityType(input.Type) {
		return repository.Activity{}, apperr.Validation("invalid activity type: " + input.Type)
	}
	if input.Subject == "" {
		return repository.Activity{}, apperr.Validation("subject is required")
	}
	if input.Status != "" {
		if !domain.IsValidStatus(input.Status) {
			return repository.Activity{}, apperr.Validation("invalid status: " + input.Status)
		}
		if domain.Status(input.Status) == domain.StatusConverted {
			return repository.Activity{}, apperr.Validation("leads are converted through the convert endpoint")
		}
	}

	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.Activity{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("activities.log.fetch_lead", err)
		return repository.Activity{}, apperr.Internal("failed to load lead")
	}

	activityType := domain.ActivityType(input.Type)
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	activity, err := s.repo.AddActivity(ctx, repository.CreateActivityParams{
		LeadID:       leadID,
		TenantID:     tenantID,
		Type:         activityType,
		Subject:      sanitize.Text(input.Subject),
		Notes:        sanitize.Text(input.Notes),
		CreatedBy:    actorID,
		NextStep:     sanitize.Text(input.NextStep),
		FollowUpDate: input.FollowUpDate,
		Metadata:     metadata,
	})
	if err != nil {
		s.log.DatabaseError("activities.log", err)
		return repository.Activity{}, apperr.Internal("failed to create activity")
	}

	lead = s.applyLeadSideEffects(ctx, lead, actorID, input)

	if activityType.TouchesContact() {
		if err := s.repo.SetLastContactedAt(ctx, leadID, tenantID, activity.CreatedAt); err != nil {
			s.log.DatabaseError("activities.log.last_contacted", err)
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyLeadActivityLogged(ctx, leadContext(lead), dispatcher.Activity{
			ID:      activity.ID,
			Type:    string(activity.Type),
			Subject: activity.Subject,
		}, actorID)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadActivityLogged{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       leadID,
			ActivityID:   activity.ID,
			TenantID:     tenantID,
			ActivityType: string(activity.Type),
			Subject:      activity.Subject,
			TriggeredBy:  actorID,
		})
	}

	return activity, nil
}

// applyLeadSideEffects moves nextFollowUp and status on the parent lead when
// the activity carries them. Failures are logged; the activity entry stands.
func (s *Service) applyLeadSideEffects(ctx context.Context, lead repository.Lead, actorID *uuid.UUID, input LogInput) repository.Lead {
	params := repository.UpdateLeadParams{}
	dirty := false

	if input.FollowUpDate != nil {
		params.NextFollowUp = input.FollowUpDate
		params.NextFollowUpSet = true
		dirty = true
	}

	oldStatus := string(lead.Status)
	statusChanged := false
	if input.Status != "" && lead.Status == domain.StatusConverted {
		s.log.Warn("ignoring status override on converted lead", "leadId", lead.ID, "status", input.Status)
		input.Status = ""
	}
	if input.Status != "" && domain.DidStatusChange(oldStatus, input.Status) {
		status := domain.Status(input.Status)
		params.Status = &status
		statusChanged = true
		dirty = true
	}

	if !dirty {
		return lead
	}

	updated, err := s.repo.Update(ctx, lead.ID, lead.TenantID, params)
	if err != nil {
		s.log.DatabaseError("activities.log.update_lead", err)
		return lead
	}

	if input.FollowUpDate != nil && s.scheduler != nil {
		if err := s.scheduler.ScheduleFollowUp(ctx, lead.ID, lead.TenantID, *input.FollowUpDate); err != nil {
			s.log.Warn("failed to schedule follow-up reminder", "leadId", lead.ID, "error", err)
		}
	}

	if statusChanged {
		if s.notifier != nil {
			s.notifier.NotifyLeadStatusChanged(ctx, leadContext(updated), oldStatus, string(updated.Status), actorID)
		}
		if s.bus != nil {
			s.bus.Publish(ctx, events.LeadStatusChanged{
				BaseEvent:   events.NewBaseEvent(),
				LeadID:      updated.ID,
				TenantID:    updated.TenantID,
				OldStatus:   oldStatus,
				NewStatus:   string(updated.Status),
				TriggeredBy: actorID,
			})
		}
	}

	return updated
}

func leadContext(lead repository.Lead) dispatcher.Lead {
	return dispatcher.Lead{
		ID:         lead.ID,
		TenantID:   lead.TenantID,
		Name:       lead.Name,
		Company:    lead.Company,
		Status:     string(lead.Status),
		AssignedTo: lead.AssignedTo,
	}
}
