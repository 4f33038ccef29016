// Package leads is the lead lifecycle bounded context: intake and updates,
// the audit trail, and the one-way conversion into a customer record.
package leads

import (
	"crmops_backend/internal/customers"
	"crmops_backend/internal/events"
	apphttp "crmops_backend/internal/http"
	"crmops_backend/internal/leads/activities"
	"crmops_backend/internal/leads/conversion"
	"crmops_backend/internal/leads/handler"
	"crmops_backend/internal/leads/management"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/internal/notification/dispatcher"
	"crmops_backend/platform/logger"
	"crmops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the lead repository, services, and HTTP handler.
type Module struct {
	repo       *repository.Repository
	management *management.Service
	conversion *conversion.Service
	activities *activities.Service
	handler    *handler.Handler
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, notifier *dispatcher.Dispatcher, val *validator.Validator, log *logger.Logger, defaultRegion string) *Module {
	repo := repository.New(pool)
	customerRepo := customers.New(pool)

	managementSvc := management.NewService(repo, notifier, bus, log, defaultRegion)
	conversionSvc := conversion.NewService(repo, customerRepo, notifier, bus, log)
	activitiesSvc := activities.NewService(repo, notifier, bus, log)

	return &Module{
		repo:       repo,
		management: managementSvc,
		conversion: conversionSvc,
		activities: activitiesSvc,
		handler:    handler.New(managementSvc, conversionSvc, activitiesSvc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the lead routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Repository exposes the lead store for cross-module integration points.
func (m *Module) Repository() *repository.Repository { return m.repo }

// ManagementService exposes the management service for adapters.
func (m *Module) ManagementService() *management.Service { return m.management }

// SetFollowUpScheduler injects the reminder scheduler into the services that
// set follow-up dates.
func (m *Module) SetFollowUpScheduler(scheduler management.FollowUpScheduler) {
	m.management.SetFollowUpScheduler(scheduler)
	m.activities.SetFollowUpScheduler(scheduler)
}
