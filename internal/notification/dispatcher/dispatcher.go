// Package dispatcher builds and delivers lead lifecycle notifications. It is
// strictly best-effort: every delivery failure is logged and swallowed so that
// the write that triggered the notification is never rolled back or surfaced
// as failed to the caller.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"crmops_backend/internal/notification/inapp"
	"crmops_backend/internal/users"
	"crmops_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const emailSendConcurrency = 5

// Store is the persistence surface the dispatcher needs.
type Store interface {
	Create(ctx context.Context, p inapp.CreateParams) (inapp.Notification, error)
	CreateBatch(ctx context.Context, items []inapp.CreateParams) ([]inapp.Notification, error)
}

// EmailSender delivers a single plain-text email. Optional; when nil the
// "email" channel is recorded on the notification but nothing is sent.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Lead carries the subset of lead fields notification payloads reference.
type Lead struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Name       string
	Company    string
	Status     string
	AssignedTo *uuid.UUID
}

// Activity carries activity context for activity notifications.
type Activity struct {
	ID      uuid.UUID
	Type    string
	Subject string
}

// Payload describes one notification to deliver. Zero-value Type, Priority,
// and Channels get dispatcher defaults.
type Payload struct {
	Title       string
	Message     string
	Type        string
	Priority    string
	Metadata    map[string]interface{}
	Channels    []string
	Icon        string
	Link        string
	TriggeredBy *uuid.UUID
}

type Dispatcher struct {
	store     Store
	emails    EmailSender
	directory users.Directory
	log       *logger.Logger
}

func New(store Store, log *logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, log: log}
}

// WithEmail enables the email channel. The directory resolves recipient
// addresses; both must be non-nil for emails to go out.
func (d *Dispatcher) WithEmail(sender EmailSender, directory users.Directory) *Dispatcher {
	d.emails = sender
	d.directory = directory
	return d
}

func (d *Dispatcher) logf(event string, err error) {
	if d.log != nil {
		d.log.NotificationError(event, err)
	}
}

func leadDisplayName(lead Lead) string {
	if lead.Name != "" {
		return lead.Name
	}
	if lead.Company != "" {
		return lead.Company
	}
	return "a lead"
}

func leadLink(leadID uuid.UUID) string {
	return "/leads/" + leadID.String()
}

// NotifyLeadCreated tells the assignee a new lead landed on their plate.
// Unassigned leads produce no notification.
func (d *Dispatcher) NotifyLeadCreated(ctx context.Context, lead Lead, triggeredBy *uuid.UUID) {
	if lead.AssignedTo == nil || *lead.AssignedTo == uuid.Nil {
		return
	}

	recipients := NewRecipientSet()
	recipients.Add(lead.AssignedTo)

	d.NotifyUsers(ctx, lead.TenantID, recipients, Payload{
		Title:   "New Lead Assigned",
		Message: fmt.Sprintf("%s was assigned to you", leadDisplayName(lead)),
		Metadata: map[string]interface{}{
			"leadId": lead.ID.String(),
			"event":  "lead_created",
		},
		Link:        leadLink(lead.ID),
		TriggeredBy: triggeredBy,
	})
}

// NotifyLeadStatusChanged notifies the assignee and the actor about a status
// transition. A no-op when nothing actually changed.
func (d *Dispatcher) NotifyLeadStatusChanged(ctx context.Context, lead Lead, oldStatus, newStatus string, triggeredBy *uuid.UUID) {
	if newStatus == "" || newStatus == oldStatus {
		return
	}

	recipients := NewRecipientSet()
	recipients.Add(lead.AssignedTo)
	recipients.Add(triggeredBy)

	d.NotifyUsers(ctx, lead.TenantID, recipients, Payload{
		Title:   "Lead Status Updated",
		Message: fmt.Sprintf("%s moved from %s to %s", leadDisplayName(lead), oldStatus, newStatus),
		Metadata: map[string]interface{}{
			"leadId":    lead.ID.String(),
			"event":     "lead_status_changed",
			"oldStatus": oldStatus,
			"newStatus": newStatus,
		},
		Link:        leadLink(lead.ID),
		TriggeredBy: triggeredBy,
	})
}

// NotifyLeadConverted announces a successful conversion to the assignee and
// the converting user.
func (d *Dispatcher) NotifyLeadConverted(ctx context.Context, lead Lead, customerID uuid.UUID, triggeredBy *uuid.UUID) {
	recipients := NewRecipientSet()
	recipients.Add(lead.AssignedTo)
	recipients.Add(triggeredBy)

	d.NotifyUsers(ctx, lead.TenantID, recipients, Payload{
		Title:    "Lead Converted",
		Message:  fmt.Sprintf("%s is now a customer", leadDisplayName(lead)),
		Priority: "high",
		Metadata: map[string]interface{}{
			"leadId":     lead.ID.String(),
			"event":      "lead_converted",
			"customerId": customerID.String(),
		},
		Link:        "/customers/" + customerID.String(),
		TriggeredBy: triggeredBy,
	})
}

// NotifyLeadActivityLogged notifies the assignee and the actor about a new
// activity entry, using the same recipient rule as status changes.
func (d *Dispatcher) NotifyLeadActivityLogged(ctx context.Context, lead Lead, activity Activity, triggeredBy *uuid.UUID) {
	message := fmt.Sprintf("New %s activity on %s", activity.Type, leadDisplayName(lead))
	if activity.Subject != "" {
		message = fmt.Sprintf("%s: %s", message, activity.Subject)
	}

	recipients := NewRecipientSet()
	recipients.Add(lead.AssignedTo)
	recipients.Add(triggeredBy)

	d.NotifyUsers(ctx, lead.TenantID, recipients, Payload{
		Title:   "New Lead Activity",
		Message: message,
		Metadata: map[string]interface{}{
			"leadId":       lead.ID.String(),
			"event":        "lead_activity_logged",
			"activityId":   activity.ID.String(),
			"activityType": activity.Type,
		},
		Link:        leadLink(lead.ID),
		TriggeredBy: triggeredBy,
	})
}

// NotifyFollowUpDue reminds the assignee that a scheduled follow-up is due.
// Sent with the email channel as well so reminders reach offline users.
func (d *Dispatcher) NotifyFollowUpDue(ctx context.Context, lead Lead, followUpAt time.Time) {
	if lead.AssignedTo == nil || *lead.AssignedTo == uuid.Nil {
		return
	}

	recipients := NewRecipientSet()
	recipients.Add(lead.AssignedTo)

	d.NotifyUsers(ctx, lead.TenantID, recipients, Payload{
		Title:    "Lead Follow-Up Due",
		Message:  fmt.Sprintf("Follow-up with %s was due %s", leadDisplayName(lead), followUpAt.Format("Jan 2, 15:04")),
		Priority: "high",
		Channels: []string{"in_app", "email"},
		Metadata: map[string]interface{}{
			"leadId":     lead.ID.String(),
			"event":      "lead_follow_up_due",
			"followUpAt": followUpAt.Format(time.RFC3339),
		},
		Link: leadLink(lead.ID),
	})
}

// NotifyUsers fans one payload out to every distinct recipient. Recipients are
// deduplicated and nil entries dropped before delivery. All failures are
// logged, never returned.
func (d *Dispatcher) NotifyUsers(ctx context.Context, tenantID uuid.UUID, recipients *RecipientSet, payload Payload) {
	if d == nil || d.store == nil {
		return
	}
	if tenantID == uuid.Nil {
		d.logf("notify_users", fmt.Errorf("missing tenant id for %q", payload.Title))
		return
	}
	if recipients.IsEmpty() {
		return
	}

	payload = applyDefaults(payload)

	ids := recipients.IDs()
	items := make([]inapp.CreateParams, 0, len(ids))
	for _, userID := range ids {
		items = append(items, inapp.CreateParams{
			TenantID:    tenantID,
			UserID:      userID,
			Title:       payload.Title,
			Message:     payload.Message,
			Type:        payload.Type,
			Priority:    payload.Priority,
			Metadata:    payload.Metadata,
			Channels:    payload.Channels,
			Icon:        payload.Icon,
			Link:        payload.Link,
			TriggeredBy: payload.TriggeredBy,
		})
	}

	if len(items) == 1 {
		if _, err := d.store.Create(ctx, items[0]); err != nil {
			d.logf("notify_users", err)
			return
		}
	} else {
		if _, err := d.store.CreateBatch(ctx, items); err != nil {
			d.logf("notify_users", err)
			return
		}
	}

	if hasChannel(payload.Channels, "email") {
		d.sendEmails(ctx, tenantID, ids, payload)
	}
}

// CreateNotification delivers a single ad-hoc notification. Incomplete
// payloads are dropped with a log line rather than rejected.
func (d *Dispatcher) CreateNotification(ctx context.Context, tenantID, userID uuid.UUID, payload Payload) {
	if tenantID == uuid.Nil || userID == uuid.Nil || payload.Title == "" {
		d.logf("create_notification", fmt.Errorf("incomplete notification dropped: tenant=%s user=%s title=%q", tenantID, userID, payload.Title))
		return
	}

	recipients := NewRecipientSet()
	recipients.AddID(userID)
	d.NotifyUsers(ctx, tenantID, recipients, payload)
}

func (d *Dispatcher) sendEmails(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, payload Payload) {
	if d.emails == nil || d.directory == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(emailSendConcurrency)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			user, err := d.directory.GetByID(gctx, userID, tenantID)
			if err != nil {
				d.logf("notification_email", fmt.Errorf("resolve recipient %s: %w", userID, err))
				return nil
			}
			if user.Email == "" {
				return nil
			}
			if err := d.emails.Send(gctx, user.Email, payload.Title, payload.Message); err != nil {
				d.logf("notification_email", fmt.Errorf("send to %s: %w", user.Email, err))
			}
			return nil
		})
	}

	_ = g.Wait()
}

func applyDefaults(p Payload) Payload {
	if p.Type == "" {
		p.Type = "lead"
	}
	if p.Priority == "" {
		p.Priority = "medium"
	}
	if len(p.Channels) == 0 {
		p.Channels = []string{"in_app"}
	}
	if p.Metadata == nil {
		p.Metadata = map[string]interface{}{}
	}
	return p
}

func hasChannel(channels []string, name string) bool {
	for _, c := range channels {
		if c == name {
			return true
		}
	}
	return false
}
