package scheduler

import (
	"context"
	"testing"
	"time"

	"crmops_backend/internal/events"
	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeLeadReader struct {
	leads map[uuid.UUID]repository.Lead
}

func (f *fakeLeadReader) GetByID(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func newTestWorker(reader *fakeLeadReader, bus *fakeBus) *Worker {
	return &Worker{repo: reader, bus: bus, log: logger.New("development")}
}

func followUpTask(t *testing.T, leadID, tenantID uuid.UUID, at time.Time) *asynq.Task {
	t.Helper()
	task, err := NewLeadFollowUpDueTask(LeadFollowUpDuePayload{
		LeadID:     leadID.String(),
		TenantID:   tenantID.String(),
		FollowUpAt: at,
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestHandleLeadFollowUpDuePublishes(t *testing.T) {
	tenantID := uuid.New()
	assignee := uuid.New()
	// Nanosecond-precision enqueue time against a microsecond-precision
	// stored value, as Postgres round-trips produce.
	enqueued := time.Date(2026, 9, 1, 9, 30, 0, 123456789, time.UTC)
	stored := enqueued.Truncate(time.Microsecond)

	lead := repository.Lead{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Jane Prospect",
		Status:       domain.StatusQualified,
		AssignedTo:   &assignee,
		NextFollowUp: &stored,
		IsActive:     true,
	}
	bus := &fakeBus{}
	w := newTestWorker(&fakeLeadReader{leads: map[uuid.UUID]repository.Lead{lead.ID: lead}}, bus)

	if err := w.handleLeadFollowUpDue(context.Background(), followUpTask(t, lead.ID, tenantID, enqueued)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	due, ok := bus.published[0].(events.LeadFollowUpDue)
	if !ok {
		t.Fatalf("event = %T, want LeadFollowUpDue", bus.published[0])
	}
	if due.LeadID != lead.ID || due.AssignedTo != assignee {
		t.Errorf("event = %+v, want lead %s assignee %s", due, lead.ID, assignee)
	}
	if due.LeadName != "Jane Prospect" {
		t.Errorf("lead name = %q, want Jane Prospect", due.LeadName)
	}
}

func TestHandleLeadFollowUpDueDropsStale(t *testing.T) {
	tenantID := uuid.New()
	assignee := uuid.New()
	at := time.Now().Add(time.Hour).UTC()
	rescheduled := at.Add(24 * time.Hour)

	base := repository.Lead{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Jane Prospect",
		Status:       domain.StatusContacted,
		AssignedTo:   &assignee,
		NextFollowUp: &at,
		IsActive:     true,
	}

	cases := []struct {
		name   string
		mutate func(lead repository.Lead) repository.Lead
	}{
		{"archived lead", func(l repository.Lead) repository.Lead { l.IsActive = false; return l }},
		{"converted lead", func(l repository.Lead) repository.Lead { l.Status = domain.StatusConverted; return l }},
		{"unassigned lead", func(l repository.Lead) repository.Lead { l.AssignedTo = nil; return l }},
		{"cleared follow-up", func(l repository.Lead) repository.Lead { l.NextFollowUp = nil; return l }},
		{"rescheduled follow-up", func(l repository.Lead) repository.Lead { l.NextFollowUp = &rescheduled; return l }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lead := tc.mutate(base)
			bus := &fakeBus{}
			w := newTestWorker(&fakeLeadReader{leads: map[uuid.UUID]repository.Lead{lead.ID: lead}}, bus)

			if err := w.handleLeadFollowUpDue(context.Background(), followUpTask(t, lead.ID, tenantID, at)); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(bus.published) != 0 {
				t.Fatalf("stale reminder should be dropped, got %d events", len(bus.published))
			}
		})
	}
}

func TestHandleLeadFollowUpDueMissingLead(t *testing.T) {
	bus := &fakeBus{}
	w := newTestWorker(&fakeLeadReader{leads: map[uuid.UUID]repository.Lead{}}, bus)

	err := w.handleLeadFollowUpDue(context.Background(), followUpTask(t, uuid.New(), uuid.New(), time.Now()))
	if err != nil {
		t.Fatalf("deleted leads should not retry the task, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected no events for a deleted lead, got %d", len(bus.published))
	}
}
