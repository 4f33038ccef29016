// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"crmops_backend/platform/events"
	"crmops_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published after a new lead row is committed.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
	TriggeredBy *uuid.UUID `json:"triggeredBy,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published after a lead's status field actually changed.
// Publishers must not emit this event when old and new status are equal.
type LeadStatusChanged struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	OldStatus   string     `json:"oldStatus"`
	NewStatus   string     `json:"newStatus"`
	TriggeredBy *uuid.UUID `json:"triggeredBy,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadConverted is published after the conversion transaction commits.
type LeadConverted struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	CustomerID  uuid.UUID  `json:"customerId"`
	OldStatus   string     `json:"oldStatus"`
	TriggeredBy *uuid.UUID `json:"triggeredBy,omitempty"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// LeadActivityLogged is published after a manual activity entry is persisted.
type LeadActivityLogged struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	ActivityID   uuid.UUID  `json:"activityId"`
	TenantID     uuid.UUID  `json:"tenantId"`
	ActivityType string     `json:"activityType"`
	Subject      string     `json:"subject"`
	TriggeredBy  *uuid.UUID `json:"triggeredBy,omitempty"`
}

func (e LeadActivityLogged) EventName() string { return "leads.activity.logged" }

// LeadFollowUpDue is published by the scheduler worker when a lead's
// follow-up time has been reached. The worker verifies the lead is still
// active and assigned before publishing, so these fields are always set.
type LeadFollowUpDue struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	LeadName   string    `json:"leadName"`
	AssignedTo uuid.UUID `json:"assignedTo"`
	FollowUpAt time.Time `json:"followUpAt"`
}

func (e LeadFollowUpDue) EventName() string { return "leads.lead.follow_up_due" }
