package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crmops_backend/internal/events"
	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/platform/config"
	"crmops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// leadReader is the repository slice the due-task handler needs.
type leadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   leadReader
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskLeadFollowUpDue, w.handleLeadFollowUpDue)

	return w, nil
}

// handleLeadFollowUpDue re-reads the lead before publishing: the reminder may
// have been enqueued long before it fires, and the lead can have been
// archived, converted, unassigned or rescheduled in the meantime. Stale
// reminders are dropped silently.
func (w *Worker) handleLeadFollowUpDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseLeadFollowUpDuePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	lead, err := w.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if !lead.IsActive || lead.Status == domain.StatusConverted || lead.AssignedTo == nil {
		return nil
	}
	// Postgres stores timestamptz at microsecond precision, so compare at
	// that granularity or a nanosecond-precision enqueue time never matches.
	if lead.NextFollowUp == nil ||
		!lead.NextFollowUp.Truncate(time.Microsecond).Equal(payload.FollowUpAt.Truncate(time.Microsecond)) {
		return nil
	}

	name := lead.Name
	if name == "" {
		name = lead.Company
	}

	return w.bus.PublishSync(ctx, events.LeadFollowUpDue{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		LeadName:   name,
		AssignedTo: *lead.AssignedTo,
		FollowUpAt: *lead.NextFollowUp,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
