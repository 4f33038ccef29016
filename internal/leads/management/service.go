// Package management implements lead intake and day-to-day lead mutations:
// create, list, detail, partial update, and archival. Conversion lives in the
// conversion package; activity logging in the activities package.
package management

import (
	"context"
	"time"

	"crmops_backend/internal/events"
	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/internal/notification/dispatcher"
	"crmops_backend/platform/apperr"
	"crmops_backend/platform/logger"
	"crmops_backend/platform/phone"
	"crmops_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	summaryWindow        = 7 * 24 * time.Hour
	summaryUpcomingLimit = 5

	defaultSource = "unknown"
)

// Notifier is the slice of the notification dispatcher this service uses.
// All methods are best-effort and never return errors.
type Notifier interface {
	NotifyLeadCreated(ctx context.Context, lead dispatcher.Lead, triggeredBy *uuid.UUID)
	NotifyLeadStatusChanged(ctx context.Context, lead dispatcher.Lead, oldStatus, newStatus string, triggeredBy *uuid.UUID)
}

// FollowUpScheduler enqueues a follow-up reminder for a lead. Implemented by
// the asynq-backed scheduler client; nil-safe at the service level so tests
// and degraded deployments can run without Redis.
type FollowUpScheduler interface {
	ScheduleFollowUp(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time) error
}

type Store interface {
	repository.LeadReader
	repository.LeadWriter
}

type Service struct {
	repo          Store
	notifier      Notifier
	scheduler     FollowUpScheduler
	bus           events.Bus
	log           *logger.Logger
	defaultRegion string
}

func NewService(repo Store, notifier Notifier, bus events.Bus, log *logger.Logger, defaultRegion string) *Service {
	return &Service{
		repo:          repo,
		notifier:      notifier,
		bus:           bus,
		log:           log,
		defaultRegion: defaultRegion,
	}
}

// SetFollowUpScheduler injects the reminder scheduler. Optional; without it
// nextFollowUp is stored but no reminder fires.
func (s *Service) SetFollowUpScheduler(scheduler FollowUpScheduler) {
	s.scheduler = scheduler
}

type CreateLeadInput struct {
	Name         string
	Company      string
	Email        string
	Phone        string
	Source       string
	Status       string
	Priority     string
	AssignedTo   *uuid.UUID
	NextFollowUp *time.Time
	Notes        string
	Tags         []string
	Metadata     map[string]interface{}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, input CreateLeadInput) (repository.Lead, error) {
	if input.Name == "" && input.Company == "" {
		return repository.Lead{}, apperr.Validation("name or company is required")
	}

	status := domain.StatusNew
	if input.Status != "" {
		if !domain.IsValidStatus(input.Status) {
			return repository.Lead{}, apperr.Validation("invalid status: " + input.Status)
		}
		status = domain.Status(input.Status)
	}
	if status == domain.StatusConverted {
		return repository.Lead{}, apperr.Validation("leads cannot be created as converted")
	}

	priority := domain.PriorityMedium
	if input.Priority != "" {
		if !domain.IsValidPriority(input.Priority) {
			return repository.Lead{}, apperr.Validation("invalid priority: " + input.Priority)
		}
		priority = domain.Priority(input.Priority)
	}

	source := input.Source
	if source == "" {
		source = defaultSource
	}

	normalizedPhone := phone.NormalizeE164(input.Phone, s.defaultRegion)

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		TenantID:     tenantID,
		Name:         sanitize.Text(input.Name),
		Company:      sanitize.Text(input.Company),
		Email:        input.Email,
		Phone:        normalizedPhone,
		Source:       source,
		Status:       status,
		Priority:     priority,
		AssignedTo:   input.AssignedTo,
		NextFollowUp: input.NextFollowUp,
		Notes:        sanitize.Text(input.Notes),
		Tags:         tags,
		Metadata:     metadata,
	})
	if err != nil {
		s.log.DatabaseError("leads.create", err)
		return repository.Lead{}, apperr.Internal("failed to create lead")
	}

	if s.notifier != nil {
		s.notifier.NotifyLeadCreated(ctx, notifyContext(lead), actorID)
	}

	s.scheduleFollowUp(ctx, lead)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      lead.ID,
			TenantID:    lead.TenantID,
			AssignedTo:  lead.AssignedTo,
			TriggeredBy: actorID,
		})
	}

	return lead, nil
}

type ListInput struct {
	Search     string
	Status     string
	AssignedTo *uuid.UUID
	Priority   string
	Source     *string
	IsActive   *bool
	Page       int
	Limit      int
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, input ListInput) ([]repository.Lead, int, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	params := repository.ListParams{
		TenantID:   tenantID,
		Search:     input.Search,
		AssignedTo: input.AssignedTo,
		Source:     input.Source,
		IsActive:   input.IsActive,
		Offset:     (input.Page - 1) * input.Limit,
		Limit:      input.Limit,
	}
	if input.Status != "" {
		if !domain.IsValidStatus(input.Status) {
			return nil, 0, apperr.Validation("invalid status: " + input.Status)
		}
		status := domain.Status(input.Status)
		params.Status = &status
	}
	if input.Priority != "" {
		if !domain.IsValidPriority(input.Priority) {
			return nil, 0, apperr.Validation("invalid priority: " + input.Priority)
		}
		priority := domain.Priority(input.Priority)
		params.Priority = &priority
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.log.DatabaseError("leads.list", err)
		return nil, 0, apperr.Internal("failed to list leads")
	}

	return leads, total, nil
}

// Summary returns per-status counts plus the next few active leads whose
// follow-up is due within the coming week.
func (s *Service) Summary(ctx context.Context, tenantID uuid.UUID) (repository.Summary, error) {
	summary, err := s.repo.Summary(ctx, tenantID, summaryWindow, summaryUpcomingLimit)
	if err != nil {
		s.log.DatabaseError("leads.summary", err)
		return repository.Summary{}, apperr.Internal("failed to load lead summary")
	}
	return summary, nil
}

func (s *Service) GetDetail(ctx context.Context, id, tenantID uuid.UUID) (repository.LeadDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id, tenantID)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.LeadDetail{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("leads.get_detail", err)
		return repository.LeadDetail{}, apperr.Internal("failed to load lead")
	}
	return detail, nil
}

type UpdateLeadInput struct {
	Name            *string
	Company         *string
	Email           *string
	Phone           *string
	Source          *string
	Status          *string
	Priority        *string
	AssignedTo      *uuid.UUID
	AssignedToSet   bool
	NextFollowUp    *time.Time
	NextFollowUpSet bool
	Notes           *string
	Tags            []string
	TagsSet         bool
	Metadata        map[string]interface{}
	MetadataSet     bool
}

// Update applies a partial update over the allow-listed lead fields. Status
// changes are validated against the lifecycle enum; conversion cannot happen
// here, only through the conversion workflow.
func (s *Service) Update(ctx context.Context, id, tenantID uuid.UUID, actorID *uuid.UUID, input UpdateLeadInput) (repository.Lead, error) {
	current, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("leads.update.fetch", err)
		return repository.Lead{}, apperr.Internal("failed to load lead")
	}

	params := repository.UpdateLeadParams{
		AssignedTo:      input.AssignedTo,
		AssignedToSet:   input.AssignedToSet,
		NextFollowUp:    input.NextFollowUp,
		NextFollowUpSet: input.NextFollowUpSet,
		Tags:            input.Tags,
		TagsSet:         input.TagsSet,
		Metadata:        input.Metadata,
		MetadataSet:     input.MetadataSet,
	}
	if input.Name != nil {
		name := sanitize.Text(*input.Name)
		params.Name = &name
	}
	if input.Company != nil {
		company := sanitize.Text(*input.Company)
		params.Company = &company
	}
	if input.Email != nil {
		params.Email = input.Email
	}
	if input.Phone != nil {
		normalized := phone.NormalizeE164(*input.Phone, s.defaultRegion)
		params.Phone = &normalized
	}
	if input.Source != nil {
		params.Source = input.Source
	}
	if input.Notes != nil {
		notes := sanitize.Text(*input.Notes)
		params.Notes = &notes
	}
	if input.Priority != nil {
		if !domain.IsValidPriority(*input.Priority) {
			return repository.Lead{}, apperr.Validation("invalid priority: " + *input.Priority)
		}
		priority := domain.Priority(*input.Priority)
		params.Priority = &priority
	}

	oldStatus := string(current.Status)
	statusChanged := false
	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return repository.Lead{}, apperr.Validation("invalid status: " + *input.Status)
		}
		if domain.Status(*input.Status) == domain.StatusConverted && current.Status != domain.StatusConverted {
			return repository.Lead{}, apperr.Validation("leads are converted through the convert endpoint")
		}
		if current.Status == domain.StatusConverted && domain.Status(*input.Status) != domain.StatusConverted {
			return repository.Lead{}, apperr.Validation("a converted lead cannot change status")
		}
		statusChanged = domain.DidStatusChange(oldStatus, *input.Status)
		status := domain.Status(*input.Status)
		params.Status = &status
	}

	lead, err := s.repo.Update(ctx, id, tenantID, params)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("leads.update", err)
		return repository.Lead{}, apperr.Internal("failed to update lead")
	}

	if input.NextFollowUpSet && input.NextFollowUp != nil {
		s.scheduleFollowUp(ctx, lead)
	}

	if statusChanged {
		if s.notifier != nil {
			s.notifier.NotifyLeadStatusChanged(ctx, notifyContext(lead), oldStatus, string(lead.Status), actorID)
		}
		if s.bus != nil {
			s.bus.Publish(ctx, events.LeadStatusChanged{
				BaseEvent:   events.NewBaseEvent(),
				LeadID:      lead.ID,
				TenantID:    lead.TenantID,
				OldStatus:   oldStatus,
				NewStatus:   string(lead.Status),
				TriggeredBy: actorID,
			})
		}
	}

	return lead, nil
}

// Archive soft-deletes a lead: isActive false, status lost. A previously set
// convertedCustomerId survives archival.
func (s *Service) Archive(ctx context.Context, id, tenantID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.Archive(ctx, id, tenantID)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("leads.archive", err)
		return repository.Lead{}, apperr.Internal("failed to archive lead")
	}
	return lead, nil
}

func (s *Service) scheduleFollowUp(ctx context.Context, lead repository.Lead) {
	if s.scheduler == nil || lead.NextFollowUp == nil {
		return
	}
	if err := s.scheduler.ScheduleFollowUp(ctx, lead.ID, lead.TenantID, *lead.NextFollowUp); err != nil {
		s.log.Warn("failed to schedule follow-up reminder", "leadId", lead.ID, "error", err)
	}
}

func notifyContext(lead repository.Lead) dispatcher.Lead {
	return dispatcher.Lead{
		ID:         lead.ID,
		TenantID:   lead.TenantID,
		Name:       lead.Name,
		Company:    lead.Company,
		Status:     string(lead.Status),
		AssignedTo: lead.AssignedTo,
	}
}
