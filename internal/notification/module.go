// Package notification wires lead lifecycle events to user-facing
// notifications. It owns the in-app inbox and the dispatcher the lead
// services use for direct fan-out; scheduled reminders arrive via the
// event bus.
package notification

import (
	"context"

	"crmops_backend/internal/events"
	apphttp "crmops_backend/internal/http"
	"crmops_backend/internal/notification/dispatcher"
	notifhandler "crmops_backend/internal/notification/handler"
	"crmops_backend/internal/notification/inapp"
	"crmops_backend/internal/users"
	"crmops_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module owns the in-app notification inbox and event subscriptions.
type Module struct {
	pool       *pgxpool.Pool
	log        *logger.Logger
	dispatcher *dispatcher.Dispatcher
	handler    *notifhandler.HTTPHandler
}

func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)

	return &Module{
		pool:       pool,
		log:        log,
		dispatcher: dispatcher.New(repo, log),
		handler:    notifhandler.NewHTTPHandler(repo),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// Dispatcher exposes the notification dispatcher for the lead services.
func (m *Module) Dispatcher() *dispatcher.Dispatcher { return m.dispatcher }

// EnableEmail turns on the email channel for notifications that request it.
func (m *Module) EnableEmail(sender dispatcher.EmailSender, directory users.Directory) {
	m.dispatcher.WithEmail(sender, directory)
}

// RegisterRoutes registers the notification inbox routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(notifications)
}

// RegisterHandlers subscribes to scheduler-driven events on the event bus.
// Direct lead mutations notify through the dispatcher at the call site.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadFollowUpDue{}.EventName(), m)
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate dispatcher method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadFollowUpDue:
		assignedTo := e.AssignedTo
		m.dispatcher.NotifyFollowUpDue(ctx, dispatcher.Lead{
			ID:         e.LeadID,
			TenantID:   e.TenantID,
			Name:       e.LeadName,
			AssignedTo: &assignedTo,
		}, e.FollowUpAt)
		return nil
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}
